package agent

import (
	"time"

	"github.com/Thejas775/Browser-Agent/internal/llm"
)

type StepRecord struct {
	Step    int
	URL     string
	Thought string
	Actions []llm.Action
	Err     string
}

// History is the outcome of one Run.
type History struct {
	Task          string
	Steps         []StepRecord
	ExitReason    ExitReason
	Duration      time.Duration
	FinalURL      string
	Summary       string
	LoopTriggered bool
}

func (h *History) add(rec StepRecord) {
	h.Steps = append(h.Steps, rec)
	if rec.URL != "" {
		h.FinalURL = rec.URL
	}
}

// Done reports whether the model declared the task finished.
func (h *History) Done() bool {
	return h != nil && h.ExitReason == ReasonFinished
}

func (h *History) ActionCount() int {
	if h == nil {
		return 0
	}
	n := 0
	for _, s := range h.Steps {
		n += len(s.Actions)
	}
	return n
}
