package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

func (c *GeminiClient) DecideActions(ctx context.Context, input DecisionInput) (*DecisionOutput, error) {
	var sb strings.Builder
	sb.WriteString("TASK: " + input.Task + "\n")
	sb.WriteString("URL: " + input.CurrentURL + "\n")
	if input.MaxActions > 0 {
		sb.WriteString("MAX_ACTIONS: " + strconv.Itoa(input.MaxActions) + "\n")
	}

	if input.History != "" {
		sb.WriteString("HISTORY:\n" + input.History + "\n")
	}

	dom := input.DOMTree
	if len(dom) > safeDOMLimit {
		dom = dom[:safeDOMLimit] + "\n...[TRUNCATED]"
	}
	sb.WriteString("\nDOM:\n" + dom)

	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: sb.String()},
	}

	if input.ScreenshotBase64 != "" {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: "data:image/jpeg;base64," + input.ScreenshotBase64,
			},
		})
	}

	resp, err := c.Complete(ctx, OpDecide, openai.ChatCompletionRequest{
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: visionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
		MaxTokens:   800,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices")
	}

	c.logger.Debug("decision received",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return ParseDecision(resp.Choices[0].Message.Content)
}

// ParseDecision decodes a model answer. Markdown fences are stripped and a
// single "action" object is folded into Actions.
func ParseDecision(content string) (*DecisionOutput, error) {
	content = StripFences(content)

	var out DecisionOutput
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("json parse error: %w | content: %s", err, content)
	}

	if len(out.Actions) == 0 && out.Action != nil {
		out.Actions = []Action{*out.Action}
	}
	out.Action = nil

	for i := range out.Actions {
		normalizeActionType(&out.Actions[i])
	}
	return &out, nil
}

// StripFences removes a Markdown code fence around a JSON answer.
func StripFences(content string) string {
	content = strings.TrimSpace(content)
	content = strings.Trim(content, "`")
	content = strings.TrimPrefix(content, "json")
	return strings.TrimSpace(content)
}

func normalizeActionType(a *Action) {
	t := strings.ToLower(strings.TrimSpace(string(a.Type)))
	switch t {
	case "scroll", "scroll_down":
		a.Type = ActionScroll
	case "click":
		a.Type = ActionClick
	case "type", "input", "fill":
		a.Type = ActionTypeInput
	case "navigate", "goto", "go_to_url":
		a.Type = ActionNavigate
	case "finish", "done":
		a.Type = ActionFinish
	default:
		// Left as is so the executor reports it back to the model.
		a.Type = ActionType(t)
	}
}
