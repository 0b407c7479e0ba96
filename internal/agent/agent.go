package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Thejas775/Browser-Agent/internal/browser"
	"github.com/Thejas775/Browser-Agent/internal/llm"
	"github.com/Thejas775/Browser-Agent/internal/planner"
)

const (
	DefaultMaxActionsPerStep = 10
	DefaultMaxFailures       = 3
	DefaultStepDelay         = time.Second
	DefaultStartURL          = "https://www.google.com"
)

var (
	ErrEmptyTask = errors.New("task is empty")
	ErrNoLLM     = errors.New("llm client is nil")
)

// ConfirmFunc decides whether a destructive action may run.
type ConfirmFunc func(action llm.Action) bool

// DenyDestructive is the default ConfirmFunc.
func DenyDestructive(llm.Action) bool { return false }

// Agent drives a browser towards a natural-language task. One Agent serves one task.
type Agent struct {
	task              string
	llm               llm.Client
	maxActionsPerStep int

	openBrowser browser.Opener
	planner     planner.Client
	startURL    string
	stepDelay   time.Duration
	maxFailures int
	summarize   bool
	confirm     ConfirmFunc
	logger      *zap.Logger
}

type Option func(*Agent)

func WithBrowser(open browser.Opener) Option {
	return func(a *Agent) { a.openBrowser = open }
}

func WithPlanner(p planner.Client) Option {
	return func(a *Agent) { a.planner = p }
}

// WithStartURL sets the first page. An empty url keeps whatever the browser opens with.
func WithStartURL(url string) Option {
	return func(a *Agent) { a.startURL = url }
}

func WithStepDelay(d time.Duration) Option {
	return func(a *Agent) { a.stepDelay = d }
}

func WithMaxFailures(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxFailures = n
		}
	}
}

// WithSummary toggles the LLM-written summary at the end of a run.
func WithSummary(enabled bool) Option {
	return func(a *Agent) { a.summarize = enabled }
}

func WithConfirm(fn ConfirmFunc) Option {
	return func(a *Agent) {
		if fn != nil {
			a.confirm = fn
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

func New(task string, client llm.Client, opts ...Option) (*Agent, error) {
	task = strings.TrimSpace(task)
	if task == "" {
		return nil, ErrEmptyTask
	}
	if client == nil {
		return nil, ErrNoLLM
	}

	a := &Agent{
		task:              task,
		llm:               client,
		maxActionsPerStep: DefaultMaxActionsPerStep,
		openBrowser:       browser.NewOpener(browser.Options{}),
		startURL:          DefaultStartURL,
		stepDelay:         DefaultStepDelay,
		maxFailures:       DefaultMaxFailures,
		summarize:         true,
		confirm:           DenyDestructive,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(zap.String("component", "agent"))
	return a, nil
}

func (a *Agent) Task() string { return a.task }

func (a *Agent) MaxActionsPerStep() int { return a.maxActionsPerStep }

// SetMaxActionsPerStep caps how many actions of one model answer are executed.
// Values below 1 are raised to 1.
func (a *Agent) SetMaxActionsPerStep(n int) {
	if n < 1 {
		n = 1
	}
	a.maxActionsPerStep = n
}

// Run opens a browser and works on the task for at most maxSteps steps.
// The returned History is non-nil whenever the browser could be opened.
func (a *Agent) Run(ctx context.Context, maxSteps int) (*History, error) {
	if maxSteps < 1 {
		maxSteps = 1
	}

	drv, err := a.openBrowser(ctx)
	if err != nil {
		return nil, fmt.Errorf("open browser: %w", err)
	}
	defer func() {
		if err := drv.Close(); err != nil {
			a.logger.Warn("browser close failed", zap.Error(err))
		}
	}()

	if a.startURL != "" {
		if err := drv.Navigate(ctx, a.startURL); err != nil {
			return nil, fmt.Errorf("could not navigate to %s: %w", a.startURL, err)
		}
	}

	return newRunner(a, drv).run(ctx, maxSteps)
}
