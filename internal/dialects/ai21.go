package dialects

import (
	"encoding/json"

	"github.com/Davincible/chat-dialect-router/internal/prompt"
)

// AI21Compiler targets the simplest dialect: flat text messages with
// system/user/assistant roles and no tool or media support. A nil canonical
// list compiles to an empty messages array.
type AI21Compiler struct {
	name string
}

func NewAI21Compiler() *AI21Compiler {
	return &AI21Compiler{name: "ai21"}
}

func (a *AI21Compiler) Name() string {
	return a.name
}

func (a *AI21Compiler) Compile(req *prompt.Request) ([]byte, error) {
	if req == nil {
		return nil, ErrNilRequest
	}

	messages := make([]map[string]any, 0, len(req.Messages))

	if len(req.Messages) > 0 {
		merged := prompt.Merge(req.Messages, req.Names, prompt.MergeOptions{Strict: true})

		for _, m := range merged {
			messages = append(messages, map[string]any{
				"role":    m.Role,
				"content": flatText(m.Content),
			})
		}
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
		body["top_p"] = *req.TopP
	}

	if len(req.Stop) > 0 {
		body["stop"] = req.Stop
	}

	if req.Stream {
		body["stream"] = true
	}

	return json.Marshal(body)
}
