package dialects

import (
	"encoding/json"

	"github.com/Davincible/chat-dialect-router/internal/prompt"
)

// CohereCompiler targets the chat-history dialect: merged speaker-prefixed
// turns, text-only content, native tool_calls and tool-result messages.
type CohereCompiler struct {
	name string
}

func NewCohereCompiler() *CohereCompiler {
	return &CohereCompiler{name: "cohere"}
}

func (c *CohereCompiler) Name() string {
	return c.name
}

func (c *CohereCompiler) Compile(req *prompt.Request) ([]byte, error) {
	if req == nil {
		return nil, ErrNilRequest
	}

	merged := prompt.Merge(req.Messages, req.Names, prompt.MergeOptions{Tools: true})

	messages := make([]map[string]any, 0, len(merged))

	for _, m := range merged {
		entry := map[string]any{
			"role": m.Role,
			// Media parts have no slot in this dialect; only the
			// text survives.
			"content": flatText(m.Content),
		}

		if len(m.ToolCalls) > 0 {
			entry["tool_calls"] = m.ToolCalls
		}

		if m.Role == prompt.RoleTool && m.ToolCallID != "" {
			entry["tool_call_id"] = m.ToolCallID
		}

		messages = append(messages, entry)
	}

	body := map[string]any{
		"model":    req.Model,
		"messages": messages,
	}

	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}

	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}

	if req.TopP != nil {
		body["p"] = *req.TopP
	}

	if req.TopK != nil {
		body["k"] = *req.TopK
	}

	if len(req.Stop) > 0 {
		body["stop_sequences"] = req.Stop
	}

	if req.Seed != nil {
		body["seed"] = *req.Seed
	}

	if req.Stream {
		body["stream"] = true
	}

	if tools := openAITools(req.Tools); len(tools) > 0 {
		body["tools"] = tools
	}

	return json.Marshal(body)
}
