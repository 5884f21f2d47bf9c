package dialects

import (
	"encoding/json"

	"github.com/Davincible/chat-dialect-router/internal/prompt"
)

// MistralCompiler targets a strict-alternation dialect: a single leading
// system turn, user/assistant alternation enforced with placeholders, and an
// assistant prefill expressed as a trailing assistant turn with prefix: true.
type MistralCompiler struct {
	name string
}

func NewMistralCompiler() *MistralCompiler {
	return &MistralCompiler{name: "mistral"}
}

func (m *MistralCompiler) Name() string {
	return m.name
}

func (m *MistralCompiler) Compile(req *prompt.Request) ([]byte, error) {
	if req == nil {
		return nil, ErrNilRequest
	}

	merged := prompt.Merge(req.Messages, req.Names, prompt.MergeOptions{
		Strict:       true,
		Placeholders: true,
		Tools:        true,
	})

	messages := make([]map[string]any, 0, len(merged)+1)

	for _, msg := range merged {
		entry := map[string]any{
			"role":    msg.Role,
			"content": flatText(msg.Content),
		}

		if len(msg.ToolCalls) > 0 {
			entry["tool_calls"] = msg.ToolCalls
		}

		if msg.Role == prompt.RoleTool && msg.ToolCallID != "" {
			entry["tool_call_id"] = msg.ToolCallID
		}

		messages = append(messages, entry)
	}

	if req.AssistantPrefill != "" {
		messages = append(messages, map[string]any{
			"role":    prompt.RoleAssistant,
			"content": req.AssistantPrefill,
			"prefix":  true,
		})
	}

	body := map[string]any{
		"model":       req.Model,
		"messages":    messages,
		"safe_prompt": false,
	}

	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}

	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}

	if req.TopP != nil {
		body["top_p"] = *req.TopP
	}

	if len(req.Stop) > 0 {
		body["stop"] = req.Stop
	}

	if req.Seed != nil {
		body["random_seed"] = *req.Seed
	}

	if req.Stream {
		body["stream"] = true
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

	return json.Marshal(body)
}
