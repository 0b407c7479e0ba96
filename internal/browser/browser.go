package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	EngineChromedp   = "chromedp"
	EnginePlaywright = "playwright"
)

var (
	ErrUnknownEngine   = errors.New("unknown browser engine")
	ErrElementNotFound = errors.New("element not found")
)

type Options struct {
	Engine      string
	Headless    bool
	Width       int
	Height      int
	UserDataDir string
	// Timeout bounds every single browser call.
	Timeout     time.Duration
	Screenshots bool
	Logger      *zap.Logger
}

// Driver is the set of page operations the agent needs. Elements are
// addressed by the data-ai-id assigned during the last Snapshot.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Snapshot(ctx context.Context) (*PageSnapshot, error)
	Click(ctx context.Context, id int) error
	Type(ctx context.Context, id int, text string, submit bool) error
	Scroll(ctx context.Context) error
	Close() error
}

// Opener starts a fresh browser for a single run.
type Opener func(ctx context.Context) (Driver, error)

// Open starts the engine named in opts.
func Open(ctx context.Context, opts Options) (Driver, error) {
	opts = opts.withDefaults()
	switch strings.ToLower(opts.Engine) {
	case EngineChromedp:
		return newChromedpDriver(ctx, opts)
	case EnginePlaywright:
		return newPlaywrightDriver(opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, opts.Engine)
	}
}

// NewOpener binds opts for repeated use.
func NewOpener(opts Options) Opener {
	return func(ctx context.Context) (Driver, error) {
		return Open(ctx, opts)
	}
}

func (o Options) withDefaults() Options {
	if o.Engine == "" {
		o.Engine = EngineChromedp
	}
	if o.Width <= 0 {
		o.Width = 1280
	}
	if o.Height <= 0 {
		o.Height = 720
	}
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

func selectorFor(id int) string {
	return fmt.Sprintf("[data-ai-id='%d']", id)
}
