package dialects

import (
	"encoding/json"
	"regexp"

	"github.com/Davincible/chat-dialect-router/internal/prompt"
	"github.com/Davincible/chat-dialect-router/internal/reasoning"
)

// OpenAICompiler targets the chat-completions dialect: speaker names ride in
// the sanitized name field, tool calls in a dedicated message field, and
// reasoning effort as a symbolic level.
type OpenAICompiler struct {
	name string
}

func NewOpenAICompiler() *OpenAICompiler {
	return &OpenAICompiler{name: "openai"}
}

func (o *OpenAICompiler) Name() string {
	return o.name
}

var nameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func (o *OpenAICompiler) Compile(req *prompt.Request) ([]byte, error) {
	if req == nil {
		return nil, ErrNilRequest
	}

	body := map[string]any{
		"model":    req.Model,
		"messages": openAIMessages(req.Messages),
	}

	if req.MaxTokens > 0 {
		if reasoning.UsesMaxCompletionTokens(req.Model) {
			body["max_completion_tokens"] = req.MaxTokens
		} else {
			body["max_tokens"] = req.MaxTokens
		}
	}

	applyOpenAISampling(body, req)

	if level := reasoning.SymbolicLevel(reasoning.ParseEffort(req.ReasoningEffort)); level != "" && reasoning.SupportsSymbolicEffort(req.Model) {
		body["reasoning_effort"] = level
	}

	if len(req.JSONSchema) > 0 {
		body["response_format"] = map[string]any{
			"type":        "json_schema",
			"json_schema": json.RawMessage(req.JSONSchema),
		}
	}

	if tools := openAITools(req.Tools); len(tools) > 0 && reasoning.SupportsToolUse(req.Model) {
		body["tools"] = tools

		if req.ToolChoice != nil {
			body["tool_choice"] = req.ToolChoice
		}
	}

	if req.EnableWebSearch {
		body["web_search_options"] = map[string]any{}
	}

	return json.Marshal(body)
}

// openAIMessages converts the canonical list into chat-completions messages.
// A nil canonical list still yields an empty array, never null.
func openAIMessages(messages []prompt.Message) []map[string]any {
	out := make([]map[string]any, 0, len(messages))

	for _, m := range prompt.CloneMessages(messages) {
		entry := map[string]any{"role": m.Role}

		switch m.Name {
		case "":
		case prompt.NameExampleUser, prompt.NameExampleAssistant:
			entry["role"] = prompt.RoleSystem
			entry["name"] = m.Name
		default:
			entry["name"] = nameSanitizer.ReplaceAllString(m.Name, "_")
		}

		if m.Content.IsParts() {
			entry["content"] = openAIContentParts(m.Content.Parts)
		} else {
			entry["content"] = m.Content.Text
		}

		if len(m.ToolCalls) > 0 {
			entry["tool_calls"] = m.ToolCalls
		}

		if m.Role == prompt.RoleTool && m.ToolCallID != "" {
			entry["tool_call_id"] = m.ToolCallID
		}

		out = append(out, entry)
	}

	return out
}

func openAIContentParts(parts []prompt.Part) []map[string]any {
	out := make([]map[string]any, 0, len(parts))

	for _, p := range parts {
		switch p.Type {
		case prompt.PartText:
			out = append(out, map[string]any{"type": "text", "text": p.Text})
		case prompt.PartImage:
			out = append(out, map[string]any{
				"type":      "image_url",
				"image_url": map[string]any{"url": p.URL},
			})
		case prompt.PartToolUse, prompt.PartToolResult:
			for _, flat := range prompt.FlattenToolParts([]prompt.Part{p}) {
				out = append(out, map[string]any{"type": "text", "text": flat.Text})
			}
		default:
			out = append(out, map[string]any{"type": "text", "text": ""})
		}
	}

	return out
}

func openAITools(tools []prompt.Tool) []map[string]any {
	out := make([]map[string]any, 0, len(tools))

	for _, t := range tools {
		switch {
		case t.Function != nil:
			fn := map[string]any{"name": t.Function.Name}
			if t.Function.Description != "" {
				fn["description"] = t.Function.Description
			}

			if len(t.Function.Parameters) > 0 {
				fn["parameters"] = json.RawMessage(t.Function.Parameters)
			}

			out = append(out, map[string]any{"type": "function", "function": fn})
		case t.Name != "":
			fn := map[string]any{"name": t.Name}
			if len(t.Schema) > 0 {
				fn["parameters"] = json.RawMessage(t.Schema)
			}

			out = append(out, map[string]any{"type": "function", "function": fn})
		}
	}

	return out
}

func applyOpenAISampling(body map[string]any, req *prompt.Request) {
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
		body["seed"] = *req.Seed
	}

	if req.Stream {
		body["stream"] = true
	}
}
