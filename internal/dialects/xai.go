package dialects

import (
	"encoding/json"

	"github.com/Davincible/chat-dialect-router/internal/prompt"
	"github.com/Davincible/chat-dialect-router/internal/reasoning"
)

// XAICompiler targets an OpenAI-adjacent dialect whose reasoning knob only
// accepts two levels. A nil canonical list compiles to an empty messages
// array.
type XAICompiler struct {
	name string
}

func NewXAICompiler() *XAICompiler {
	return &XAICompiler{name: "xai"}
}

func (x *XAICompiler) Name() string {
	return x.name
}

func (x *XAICompiler) Compile(req *prompt.Request) ([]byte, error) {
	if req == nil {
		return nil, ErrNilRequest
	}

	messages := make([]map[string]any, 0, len(req.Messages))

	if len(req.Messages) > 0 {
		merged := prompt.Merge(req.Messages, req.Names, prompt.MergeOptions{Tools: true})
		messages = openAIMessages(merged)
	}

	body := map[string]any{
		"model":    req.Model,
		"messages": messages,
	}

	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}

	applyOpenAISampling(body, req)

	if level := xaiEffortLevel(reasoning.ParseEffort(req.ReasoningEffort)); level != "" {
		body["reasoning_effort"] = level
	}

	if tools := openAITools(req.Tools); len(tools) > 0 {
		body["tools"] = tools

		if req.ToolChoice != nil {
			body["tool_choice"] = req.ToolChoice
		}
	}

	if req.EnableWebSearch {
		body["search_parameters"] = map[string]any{"mode": "auto"}
	}

	return json.Marshal(body)
}

// xaiEffortLevel collapses the six-level effort scale onto the dialect's
// low/high pair; auto and unknown omit the field.
func xaiEffortLevel(effort reasoning.Effort) string {
	switch effort {
	case reasoning.EffortMin, reasoning.EffortLow, reasoning.EffortMedium:
		return "low"
	case reasoning.EffortHigh, reasoning.EffortMax:
		return "high"
	default:
		return ""
	}
}
