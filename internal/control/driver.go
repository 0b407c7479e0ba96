package control

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Thejas775/Browser-Agent/internal/agent"
	"github.com/Thejas775/Browser-Agent/internal/config"
	"github.com/Thejas775/Browser-Agent/internal/metrics"
)

var (
	ErrEmptyTask   = errors.New("task description is empty")
	ErrRunInFlight = errors.New("a previous run is still in flight")
)

type RunRequest struct {
	Task              string `json:"task"`
	MaxSteps          int    `json:"max_steps"`
	MaxActionsPerStep int    `json:"max_actions_per_step"`
}

// Driver runs one agent at a time on behalf of the session.
type Driver struct {
	builder  Builder
	session  *Session
	metrics  *metrics.Collector
	logger   *zap.Logger
	inFlight atomic.Bool
}

func NewDriver(b Builder, s *Session, m *metrics.Collector, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		builder: b,
		session: s,
		metrics: m,
		logger:  logger.With(zap.String("component", "driver")),
	}
}

func (d *Driver) Session() *Session { return d.session }

// Start builds an agent for req and runs it to completion, blocking the caller.
//
// It returns an error only when no run was started: an empty task, a run
// still in flight, or a failed agent construction such as
// config.ErrMissingAPIKey. Errors from the run itself are appended to the log
// sequence as "Error: <message>" and swallowed. The run flag is cleared on
// every path once the run returns.
func (d *Driver) Start(ctx context.Context, req RunRequest) error {
	task := strings.TrimSpace(req.Task)
	if task == "" {
		d.metrics.RunFinished(metrics.OutcomeRejected, 0)
		return ErrEmptyTask
	}
	if !d.inFlight.CompareAndSwap(false, true) {
		d.metrics.RunFinished(metrics.OutcomeRejected, 0)
		return ErrRunInFlight
	}
	defer d.inFlight.Store(false)

	maxSteps := ClampSteps(req.MaxSteps)
	maxActions := ClampActions(req.MaxActionsPerStep)

	ag, err := d.builder.NewAgent(task)
	if err != nil {
		outcome := metrics.OutcomeFailure
		if errors.Is(err, config.ErrMissingAPIKey) {
			outcome = metrics.OutcomeMissingKey
		}
		d.metrics.RunFinished(outcome, 0)
		d.logger.Error("agent construction failed", zap.Error(err))
		return err
	}

	runID := d.session.begin(RunRequest{Task: task, MaxSteps: maxSteps, MaxActionsPerStep: maxActions})
	d.metrics.SetRunning(true)
	defer func() {
		d.session.finish()
		d.metrics.SetRunning(false)
	}()

	log := d.logger.With(zap.String("run_id", runID))
	log.Info("run started",
		zap.String("task", task),
		zap.Int("max_steps", maxSteps),
		zap.Int("max_actions_per_step", maxActions),
	)

	start := time.Now()
	ag.SetMaxActionsPerStep(maxActions)
	hist, err := runAgent(ctx, ag, maxSteps)
	elapsed := time.Since(start)

	d.record(hist)

	if err != nil {
		d.session.Append(errorPrefix + err.Error())
		d.metrics.RunFinished(metrics.OutcomeFailure, elapsed)
		log.Warn("run failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return nil
	}

	d.metrics.RunFinished(metrics.OutcomeSuccess, elapsed)
	log.Info("run finished", zap.Duration("elapsed", elapsed))
	return nil
}

// runAgent turns a panic inside the agent into an error like any other failure.
func runAgent(ctx context.Context, ag AgentRunner, maxSteps int) (hist *agent.History, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return ag.Run(ctx, maxSteps)
}

func (d *Driver) record(hist *agent.History) {
	if hist == nil {
		return
	}
	d.metrics.Steps(len(hist.Steps))
	for _, s := range hist.Steps {
		for _, a := range s.Actions {
			d.metrics.Action(string(a.Type))
		}
	}
}
