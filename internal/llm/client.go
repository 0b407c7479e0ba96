package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultModel is the only model the panel drives the agent with.
	DefaultModel = "gemini-2.0-flash-exp"

	// DefaultBaseURL is Gemini's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

	safeDOMLimit = 60000
)

// Operations reported to an Observer.
const (
	OpDecide    = "decide"
	OpSummarize = "summarize"
	OpPlan      = "plan"
)

var ErrMissingAPIKey = errors.New("api key is empty")

// Observer receives one record per completion request sent.
type Observer interface {
	LLMRequest(op, outcome string, d time.Duration)
}

type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger

	// RequestsPerMinute throttles calls made by one client. Zero means unlimited.
	RequestsPerMinute int
	Observer          Observer
}

// GeminiClient talks to Gemini through the OpenAI chat completions protocol.
type GeminiClient struct {
	client   *openai.Client
	model    string
	limiter  *rate.Limiter
	observer Observer
	logger   *zap.Logger
}

// NewChatClient builds the raw chat client shared by the agent client and the planner.
func NewChatClient(opts Options) (*openai.Client, error) {
	if opts.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = DefaultBaseURL
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	return openai.NewClientWithConfig(cfg), nil
}

func NewGeminiClient(opts Options) (*GeminiClient, error) {
	client, err := NewChatClient(opts)
	if err != nil {
		return nil, err
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiClient{
		client:   client,
		model:    model,
		limiter:  newLimiter(opts.RequestsPerMinute),
		observer: opts.Observer,
		logger:   logger.With(zap.String("component", "llm"), zap.String("model", model)),
	}, nil
}

func newLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
}

// wait blocks until the limiter admits one more request or ctx ends.
func (c *GeminiClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

func (c *GeminiClient) Model() string {
	return c.model
}

// Complete sends one chat completion through the client's throttle. Every
// caller sharing the client shares the request budget. An empty req.Model is
// set to the client's model.
func (c *GeminiClient) Complete(ctx context.Context, op string, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if err := c.wait(ctx); err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	if req.Model == "" {
		req.Model = c.model
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if c.observer != nil {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		c.observer.LLMRequest(op, outcome, time.Since(start))
	}
	return resp, err
}
