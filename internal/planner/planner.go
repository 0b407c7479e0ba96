package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Thejas775/Browser-Agent/internal/llm"
)

const (
	ModeNavigation  = "navigation"
	ModeInteraction = "interaction"
)

type PlanStep struct {
	Index int    `json:"index"`
	Goal  string `json:"goal"`
	Mode  string `json:"mode"`
}

type Plan struct {
	Steps []PlanStep `json:"steps"`
}

// String renders the plan the way it is shown to the decision model.
func (p *Plan) String() string {
	if p == nil || len(p.Steps) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, s := range p.Steps {
		sb.WriteString(fmt.Sprintf("%d. [%s] %s\n", s.Index, s.Mode, s.Goal))
	}
	return strings.TrimRight(sb.String(), "\n")
}

type Client interface {
	BuildPlan(ctx context.Context, task string) (*Plan, error)
}

// GeminiPlanner shares its client, and so its request budget, with the agent.
type GeminiPlanner struct {
	client *llm.GeminiClient
}

func NewGeminiPlanner(client *llm.GeminiClient) *GeminiPlanner {
	return &GeminiPlanner{client: client}
}

func (p *GeminiPlanner) BuildPlan(ctx context.Context, task string) (*Plan, error) {
	userMsg := fmt.Sprintf("User task:\n%s\n\nProduce 3-7 high-level steps.", task)

	resp, err := p.client.Complete(ctx, llm.OpPlan, openai.ChatCompletionRequest{
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: llm.PlannerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMsg},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("planner completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("planner returned no choices")
	}

	return ParsePlan(resp.Choices[0].Message.Content)
}

// ParsePlan decodes the planner answer and fills in missing indexes and modes.
func ParsePlan(content string) (*Plan, error) {
	content = llm.StripFences(content)

	var plan Plan
	if err := json.Unmarshal([]byte(content), &plan); err != nil {
		return nil, fmt.Errorf("planner JSON parse error: %w | content: %s", err, content)
	}

	for i := range plan.Steps {
		if plan.Steps[i].Index == 0 {
			plan.Steps[i].Index = i + 1
		}
		plan.Steps[i].Mode = normalizeMode(plan.Steps[i].Mode, plan.Steps[i].Goal)
	}

	return &plan, nil
}

func normalizeMode(mode, goal string) string {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == ModeNavigation || mode == ModeInteraction {
		return mode
	}
	g := strings.ToLower(goal)
	if strings.Contains(g, "search") || strings.Contains(g, "go to") || strings.Contains(g, "open") {
		return ModeNavigation
	}
	return ModeInteraction
}
