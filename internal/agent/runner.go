package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Thejas775/Browser-Agent/internal/browser"
)

var (
	ErrInterrupted     = errors.New("execution interrupted")
	ErrMaxSteps        = errors.New("max steps reached")
	ErrTooManyFailures = errors.New("too many consecutive failures")
	ErrSnapshotFail    = errors.New("snapshot error")
	ErrLLMFail         = errors.New("llm error")
)

type runner struct {
	agent    *Agent
	drv      browser.Driver
	task     string
	mem      *StepMemory
	prevTree string
	reporter *Reporter
	history  *History
}

func newRunner(a *Agent, drv browser.Driver) *runner {
	return &runner{
		agent:    a,
		drv:      drv,
		task:     a.task,
		mem:      NewStepMemory(10, 3),
		reporter: NewReporter(a.llm, a.task, a.summarize, a.logger),
		history:  &History{Task: a.task},
	}
}

func (r *runner) run(ctx context.Context, maxSteps int) (*History, error) {
	start := time.Now()

	if r.agent.startURL != "" {
		r.task = BuildTaskWithEnvironment(r.agent.task, r.agent.startURL)
	}
	if r.agent.planner != nil {
		plan, err := r.agent.planner.BuildPlan(ctx, r.agent.task)
		if err != nil {
			r.agent.logger.Warn("plan failed, continuing without plan", zap.Error(err))
		} else if s := plan.String(); s != "" {
			r.agent.logger.Info("plan built", zap.Int("steps", len(plan.Steps)))
			r.task += "\n\nHIGH-LEVEL PLAN:\n" + s
		}
	}

	failures := 0
	for step := 1; step <= maxSteps; step++ {
		if ctx.Err() != nil {
			r.reporter.Finish(ctx, start, ReasonInterrupted, r.mem, r.history)
			return r.history, ErrInterrupted
		}

		finished, err := r.executeStep(ctx, step)
		if err != nil {
			failures++
			r.reporter.StepError(step, err)
			if failures >= r.agent.maxFailures {
				r.reporter.Finish(ctx, start, ReasonTooManyFailures, r.mem, r.history)
				return r.history, fmt.Errorf("%w: %w", ErrTooManyFailures, err)
			}
		} else {
			failures = 0
		}

		if finished {
			r.reporter.Finish(ctx, start, ReasonFinished, r.mem, r.history)
			return r.history, nil
		}

		if step < maxSteps && !sleepCtx(ctx, r.agent.stepDelay) {
			r.reporter.Finish(ctx, start, ReasonInterrupted, r.mem, r.history)
			return r.history, ErrInterrupted
		}
	}

	r.reporter.Finish(ctx, start, ReasonMaxSteps, r.mem, r.history)
	return r.history, ErrMaxSteps
}

// sleepCtx reports false when ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
