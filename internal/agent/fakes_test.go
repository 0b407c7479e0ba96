package agent

import (
	"context"
	"errors"
	"sync"

	"github.com/Thejas775/Browser-Agent/internal/browser"
	"github.com/Thejas775/Browser-Agent/internal/llm"
)

type fakeDriver struct {
	mu       sync.Mutex
	trees    []string
	snapErr  error
	clickErr  error
	scrollErr error
	calls     []string
	closed    bool
}

func (d *fakeDriver) record(call string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, call)
}

func (d *fakeDriver) Navigate(_ context.Context, url string) error {
	d.record("navigate " + url)
	return nil
}

func (d *fakeDriver) Snapshot(_ context.Context) (*browser.PageSnapshot, error) {
	d.record("snapshot")
	if d.snapErr != nil {
		return nil, d.snapErr
	}
	tree := "[1] <button label=\"Go\">"
	if len(d.trees) > 0 {
		tree = d.trees[0]
		if len(d.trees) > 1 {
			d.trees = d.trees[1:]
		}
	}
	return &browser.PageSnapshot{URL: "https://example.com/", Title: "Example", Tree: tree}, nil
}

func (d *fakeDriver) Click(_ context.Context, id int) error {
	d.record("click")
	return d.clickErr
}

func (d *fakeDriver) Type(_ context.Context, id int, text string, submit bool) error {
	d.record("type " + text)
	return nil
}

func (d *fakeDriver) Scroll(_ context.Context) error {
	d.record("scroll")
	return d.scrollErr
}

func (d *fakeDriver) Close() error {
	d.closed = true
	return nil
}

func (d *fakeDriver) count(call string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (d *fakeDriver) opener() browser.Opener {
	return func(context.Context) (browser.Driver, error) { return d, nil }
}

// scriptedLLM answers with decisions in order and repeats the last one.
type scriptedLLM struct {
	decisions []*llm.DecisionOutput
	err       error
	inputs    []llm.DecisionInput
	summaries int
}

func (s *scriptedLLM) DecideActions(_ context.Context, in llm.DecisionInput) (*llm.DecisionOutput, error) {
	s.inputs = append(s.inputs, in)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.decisions) == 0 {
		return nil, errors.New("no scripted decision")
	}
	d := s.decisions[0]
	if len(s.decisions) > 1 {
		s.decisions = s.decisions[1:]
	}
	return d, nil
}

func (s *scriptedLLM) SummarizeRun(context.Context, llm.SummaryInput) (string, error) {
	s.summaries++
	return "summary", nil
}

func decide(actions ...llm.Action) *llm.DecisionOutput {
	return &llm.DecisionOutput{CurrentPhase: "search", Thought: "t", Actions: actions}
}
