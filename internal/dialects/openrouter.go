package dialects

import (
	"encoding/json"

	"github.com/Davincible/chat-dialect-router/internal/prompt"
	"github.com/Davincible/chat-dialect-router/internal/reasoning"
)

// OpenRouterCompiler targets the aggregator's chat-completions superset:
// OpenAI message shapes plus a reasoning block that takes either a symbolic
// effort or a numeric token allowance depending on the routed model.
type OpenRouterCompiler struct {
	name string
}

func NewOpenRouterCompiler() *OpenRouterCompiler {
	return &OpenRouterCompiler{name: "openrouter"}
}

func (o *OpenRouterCompiler) Name() string {
	return o.name
}

func (o *OpenRouterCompiler) Compile(req *prompt.Request) ([]byte, error) {
	if req == nil {
		return nil, ErrNilRequest
	}

	body := map[string]any{
		"model":    req.Model,
		"messages": openAIMessages(req.Messages),
	}

	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}

	applyOpenAISampling(body, req)

	if req.TopK != nil {
		body["top_k"] = *req.TopK
	}

	if effort := reasoning.ParseEffort(req.ReasoningEffort); effort != reasoning.EffortAuto {
		if budget := reasoning.TokenBudget(req.MaxTokens, effort, req.Model, req.Stream); budget != reasoning.BudgetOmit {
			body["reasoning"] = map[string]any{"max_tokens": budget}
		} else if level := reasoning.SymbolicLevel(effort); level != "" {
			body["reasoning"] = map[string]any{"effort": level}
		}

		if _, ok := body["reasoning"]; ok {
			body["include_reasoning"] = true
		}
	}

	if tools := openAITools(req.Tools); len(tools) > 0 {
		body["tools"] = tools

		if req.ToolChoice != nil {
			body["tool_choice"] = req.ToolChoice
		}
	}

	if len(req.JSONSchema) > 0 {
		body["response_format"] = map[string]any{
			"type":        "json_schema",
			"json_schema": json.RawMessage(req.JSONSchema),
		}
	}

	if req.EnableWebSearch {
		body["plugins"] = []map[string]any{{"id": "web"}}
	}

	return json.Marshal(body)
}
