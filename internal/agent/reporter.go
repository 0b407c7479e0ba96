package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Thejas775/Browser-Agent/internal/llm"
)

const summaryTimeout = 30 * time.Second

type Reporter struct {
	llm       llm.Client
	task      string
	summarize bool
	logger    *zap.Logger
	trace     []string

	finalAction llm.Action
	finalURL    string
}

func NewReporter(llmClient llm.Client, task string, summarize bool, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{
		llm:       llmClient,
		task:      task,
		summarize: summarize,
		logger:    logger,
	}
}

func (r *Reporter) LogDecision(step int, url string, d *llm.DecisionOutput, actions []llm.Action) {
	r.finalURL = url
	if len(actions) > 0 {
		r.finalAction = actions[len(actions)-1]
	}

	parts := make([]string, 0, len(actions))
	for _, a := range actions {
		decor := ""
		if a.IsDestructive {
			decor = " [DESTRUCTIVE]"
		}
		parts = append(parts, fmt.Sprintf("%s[%d] %q%s", a.Type, a.TargetID, a.Text, decor))
	}
	rendered := strings.Join(parts, ", ")

	r.logger.Info("decision",
		zap.Int("step", step),
		zap.String("url", url),
		zap.String("phase", strings.ToUpper(d.CurrentPhase)),
		zap.String("observation", d.Observation),
		zap.String("thought", d.Thought),
		zap.String("actions", rendered),
	)

	r.trace = append(r.trace, fmt.Sprintf(
		"STEP %d | URL=%s | PHASE=%s | ACTIONS=%s | OBS=%s",
		step, url, strings.ToUpper(d.CurrentPhase), rendered, d.Observation,
	))
}

func (r *Reporter) StepError(step int, err error) {
	r.logger.Warn("step error", zap.Int("step", step), zap.Error(err))
	r.trace = append(r.trace, fmt.Sprintf("STEP %d | ERROR=%v", step, err))
}

func (r *Reporter) Trace() []string {
	out := make([]string, len(r.trace))
	copy(out, r.trace)
	return out
}

// Finish completes h and logs the execution report.
func (r *Reporter) Finish(ctx context.Context, start time.Time, reason ExitReason, mem *StepMemory, h *History) {
	duration := time.Since(start).Truncate(time.Millisecond)

	h.ExitReason = reason
	h.Duration = duration
	h.LoopTriggered = mem.LoopTriggered()
	if h.FinalURL == "" {
		h.FinalURL = r.finalURL
	}

	if r.summarize {
		// The run context may already be cancelled; the report is still wanted.
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), summaryTimeout)
		summary, err := r.llm.SummarizeRun(sctx, llm.SummaryInput{
			Task:        r.task,
			ExitReason:  reason.Humanize(),
			FinalURL:    r.finalURL,
			FinalAction: r.finalAction,
			Duration:    duration.String(),
			Steps:       mem.FullHistory(),
		})
		cancel()
		if err != nil {
			r.logger.Warn("failed to generate summary", zap.Error(err))
		} else {
			h.Summary = summary
		}
	}

	r.logger.Info("execution report",
		zap.String("task", r.task),
		zap.Duration("duration", duration),
		zap.String("exit_reason", string(reason)),
		zap.Int("steps", len(h.Steps)),
		zap.Bool("loop_triggered", h.LoopTriggered),
		zap.Strings("trace", r.trace),
		zap.String("summary", h.Summary),
	)
}
