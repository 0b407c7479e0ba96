package control

import (
	"context"

	"go.uber.org/zap"

	"github.com/Thejas775/Browser-Agent/internal/agent"
	"github.com/Thejas775/Browser-Agent/internal/browser"
	"github.com/Thejas775/Browser-Agent/internal/config"
	"github.com/Thejas775/Browser-Agent/internal/llm"
	"github.com/Thejas775/Browser-Agent/internal/metrics"
	"github.com/Thejas775/Browser-Agent/internal/planner"
)

// AgentRunner is what the driver needs from an automation agent.
type AgentRunner interface {
	SetMaxActionsPerStep(n int)
	Run(ctx context.Context, maxSteps int) (*agent.History, error)
}

// Builder constructs one agent per task.
type Builder interface {
	NewAgent(task string) (AgentRunner, error)
}

// Factory builds Gemini-backed agents from configuration.
type Factory struct {
	cfg     *config.Config
	logger  *zap.Logger
	opener   browser.Opener
	confirm  agent.ConfirmFunc
	observer llm.Observer
}

type FactoryOption func(*Factory)

// WithOpener replaces the browser opener derived from cfg.Browser.
func WithOpener(open browser.Opener) FactoryOption {
	return func(f *Factory) { f.opener = open }
}

func WithConfirm(fn agent.ConfirmFunc) FactoryOption {
	return func(f *Factory) { f.confirm = fn }
}

// WithMetrics records every LLM request of the built agents into m.
func WithMetrics(m *metrics.Collector) FactoryOption {
	return func(f *Factory) {
		if m != nil {
			f.observer = m
		}
	}
}

func NewFactory(cfg *config.Config, logger *zap.Logger, opts ...FactoryOption) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	f := &Factory{
		cfg:    cfg,
		logger: logger,
		opener: browser.NewOpener(browser.Options{
			Engine:      cfg.Browser.Engine,
			Headless:    cfg.Browser.Headless,
			Width:       cfg.Browser.Width,
			Height:      cfg.Browser.Height,
			UserDataDir: cfg.Browser.UserDataDir,
			Timeout:     cfg.Browser.Timeout,
			Screenshots: cfg.Browser.Screenshots,
			Logger:      logger,
		}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Factory) llmOptions(apiKey string) llm.Options {
	return llm.Options{
		APIKey:  apiKey,
		BaseURL: f.cfg.LLM.BaseURL,
		Model:   llm.DefaultModel,
		Timeout: f.cfg.LLM.Timeout,
		Logger:  f.logger,

		RequestsPerMinute: f.cfg.LLM.RequestsPerMinute,
		Observer:          f.observer,
	}
}

// NewAgent looks the credential up again on every call and fails with
// config.ErrMissingAPIKey before anything is built when it is absent.
func (f *Factory) NewAgent(task string) (AgentRunner, error) {
	apiKey, err := f.cfg.ResolveAPIKey()
	if err != nil {
		return nil, err
	}

	client, err := llm.NewGeminiClient(f.llmOptions(apiKey))
	if err != nil {
		return nil, err
	}

	opts := []agent.Option{
		agent.WithBrowser(f.opener),
		agent.WithStartURL(f.cfg.Agent.StartURL),
		agent.WithStepDelay(f.cfg.Agent.StepDelay),
		agent.WithMaxFailures(f.cfg.Agent.MaxFailures),
		agent.WithSummary(f.cfg.Agent.Summary),
		agent.WithConfirm(f.confirm),
		agent.WithLogger(f.logger),
	}

	if f.cfg.Agent.Planning {
		opts = append(opts, agent.WithPlanner(planner.NewGeminiPlanner(client)))
	}

	a, err := agent.New(task, client, opts...)
	if err != nil {
		return nil, err
	}
	return a, nil
}
