package llm

import "context"

type ActionType string

const (
	ActionClick     ActionType = "click"
	ActionTypeInput ActionType = "type"
	ActionScroll    ActionType = "scroll_down"
	ActionNavigate  ActionType = "navigate"
	ActionFinish    ActionType = "finish"
)

type Action struct {
	Type          ActionType `json:"type"`
	TargetID      int        `json:"target_id,omitempty"`
	Text          string     `json:"text,omitempty"`
	URL           string     `json:"url,omitempty"`
	Submit        bool       `json:"submit,omitempty"`
	IsDestructive bool       `json:"is_destructive,omitempty"`
}

type DecisionInput struct {
	Task             string
	DOMTree          string
	CurrentURL       string
	History          string // short description of previous steps
	ScreenshotBase64 string
	MaxActions       int
}

type DecisionOutput struct {
	CurrentPhase string   `json:"current_phase"`
	Observation  string   `json:"observation"`
	Thought      string   `json:"thought"`
	Actions      []Action `json:"actions"`

	// Action is accepted when the model answers with a single action object.
	Action *Action `json:"action,omitempty"`
}

type SummaryInput struct {
	Task        string
	ExitReason  string
	FinalURL    string
	FinalAction Action
	Duration    string
	Steps       []string
}

type Client interface {
	DecideActions(ctx context.Context, input DecisionInput) (*DecisionOutput, error)
	SummarizeRun(ctx context.Context, input SummaryInput) (string, error)
}
