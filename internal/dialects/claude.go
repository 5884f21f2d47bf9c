package dialects

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Davincible/chat-dialect-router/internal/prompt"
	"github.com/Davincible/chat-dialect-router/internal/reasoning"
)

// ClaudeCompiler targets the Messages-protocol dialect: a separate system
// block list, strict user/assistant alternation, no assistant-authored
// images, and numeric thinking budgets.
type ClaudeCompiler struct {
	name string
}

func NewClaudeCompiler() *ClaudeCompiler {
	return &ClaudeCompiler{name: "claude"}
}

func (c *ClaudeCompiler) Name() string {
	return c.name
}

type claudeRequest struct {
	Model         string           `json:"model"`
	System        []claudeContent  `json:"system,omitempty"`
	Messages      []claudeMessage  `json:"messages"`
	MaxTokens     int              `json:"max_tokens"`
	StopSequences []string         `json:"stop_sequences,omitempty"`
	Temperature   *float64         `json:"temperature,omitempty"`
	TopP          *float64         `json:"top_p,omitempty"`
	TopK          *int             `json:"top_k,omitempty"`
	Stream        bool             `json:"stream,omitempty"`
	Tools         []map[string]any `json:"tools,omitempty"`
	ToolChoice    any              `json:"tool_choice,omitempty"`
	Thinking      *claudeThinking  `json:"thinking,omitempty"`
}

type claudeThinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

type claudeMessage struct {
	Role    string          `json:"role"`
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type         string             `json:"type"`
	Text         string             `json:"text,omitempty"`
	Source       *claudeImageSource `json:"source,omitempty"`
	ID           string             `json:"id,omitempty"`
	Name         string             `json:"name,omitempty"`
	Input        map[string]any     `json:"input,omitempty"`
	ToolUseID    string             `json:"tool_use_id,omitempty"`
	Content      any                `json:"content,omitempty"`
	CacheControl *cacheControl      `json:"cache_control,omitempty"`
}

type claudeImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

func (c *ClaudeCompiler) Compile(req *prompt.Request) ([]byte, error) {
	if req == nil {
		return nil, ErrNilRequest
	}

	messages := prompt.CloneMessages(req.Messages)
	messages = prompt.EmbedInlineMedia(messages, prompt.MediaOptions{})

	toolsSupported := reasoning.SupportsToolUse(req.Model) && len(req.Tools) > 0

	body := claudeRequest{
		Model:         req.Model,
		MaxTokens:     req.MaxTokens,
		StopSequences: req.Stop,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		TopK:          req.TopK,
		Stream:        req.Stream,
		ToolChoice:    req.ToolChoice,
	}

	if req.UseSysPrompt {
		var system []claudeContent

		for len(messages) > 0 && messages[0].Role == prompt.RoleSystem {
			m := messages[0]
			messages = messages[1:]

			prompt.ApplySpeakerPrefix(&m, req.Names)

			if text := flatText(m.Content); text != "" {
				system = append(system, claudeContent{Type: "text", Text: text})
			}
		}

		body.System = system

		if len(messages) == 0 {
			messages = []prompt.Message{{
				Role:    prompt.RoleUser,
				Content: prompt.Text(prompt.PlaceholderText),
			}}
		}
	}

	out := make([]claudeMessage, 0, len(messages))

	for i := range messages {
		prompt.ApplySpeakerPrefix(&messages[i], req.Names)
		out = append(out, c.convertMessage(messages[i]))
	}

	out = c.relocateAssistantImages(out)

	if req.AssistantPrefill != "" {
		// The dialect rejects prefills with dangling whitespace.
		trimmed := strings.TrimRight(req.AssistantPrefill, " \t\r\n")
		out = append(out, claudeMessage{
			Role:    prompt.RoleAssistant,
			Content: []claudeContent{{Type: "text", Text: trimmed}},
		})
	}

	out = mergeClaudeAdjacent(out)

	effort := reasoning.ParseEffort(req.ReasoningEffort)
	if budget := reasoning.TokenBudget(req.MaxTokens, effort, req.Model, req.Stream); budget != reasoning.BudgetOmit && reasoning.SupportsThinking(req.Model) {
		body.Thinking = &claudeThinking{Type: "enabled", BudgetTokens: budget}

		// Active reasoning forbids a prefill, so a trailing assistant
		// turn becomes a user turn.
		if len(out) > 0 && out[len(out)-1].Role == prompt.RoleAssistant {
			out[len(out)-1].Role = prompt.RoleUser
			out = mergeClaudeAdjacent(out)
		}
	}

	if toolsSupported {
		body.Tools = claudeTools(req.Tools)
	} else {
		out = flattenClaudeToolContent(out)
		body.ToolChoice = nil
	}

	if req.EnableWebSearch {
		body.Tools = append(body.Tools, map[string]any{
			"type": "web_search_20250305",
			"name": "web_search",
		})
	}

	if req.CacheTTL != "" && len(body.System) > 0 {
		applySystemPromptCache(body.System, req.CacheTTL)
	}

	if req.CachingAtDepth >= 0 {
		applyDepthCache(out, req.CachingAtDepth, req.CacheTTL, req.AssistantPrefill != "")
	}

	body.Messages = out

	return json.Marshal(body)
}

func (c *ClaudeCompiler) convertMessage(m prompt.Message) claudeMessage {
	role := m.Role

	var parts []claudeContent

	switch role {
	case prompt.RoleTool:
		// Tool results travel as user turns holding a tool_result part.
		role = prompt.RoleUser
		parts = append(parts, claudeContent{
			Type:      "tool_result",
			ToolUseID: m.ToolCallID,
			Content:   flatText(m.Content),
		})
	default:
		if role == prompt.RoleSystem {
			// A system turn this deep in the conversation has no
			// native slot; it rides as a user turn.
			role = prompt.RoleUser
		}

		parts = append(parts, contentToClaudeParts(m.Content)...)

		for _, p := range prompt.ToolCallParts(m.ToolCalls) {
			parts = append(parts, claudeContent{
				Type:  "tool_use",
				ID:    p.ToolID,
				Name:  p.ToolName,
				Input: p.ToolInput,
			})
		}
	}

	if parts == nil {
		parts = []claudeContent{}
	}

	return claudeMessage{Role: role, Content: parts}
}

func contentToClaudeParts(content prompt.Content) []claudeContent {
	if !content.IsParts() {
		if content.Text == "" {
			return nil
		}

		return []claudeContent{{Type: "text", Text: content.Text}}
	}

	var parts []claudeContent

	for _, p := range content.Parts {
		switch p.Type {
		case prompt.PartText:
			parts = append(parts, claudeContent{Type: "text", Text: p.Text})
		case prompt.PartInlineData:
			parts = append(parts, claudeContent{Type: "image", Source: &claudeImageSource{
				Type:      "base64",
				MediaType: p.MIMEType,
				Data:      p.Data,
			}})
		case prompt.PartImage:
			parts = append(parts, claudeContent{Type: "image", Source: &claudeImageSource{
				Type: "url",
				URL:  p.URL,
			}})
		case prompt.PartToolUse:
			parts = append(parts, claudeContent{
				Type:  "tool_use",
				ID:    p.ToolID,
				Name:  p.ToolName,
				Input: p.ToolInput,
			})
		case prompt.PartToolResult:
			parts = append(parts, claudeContent{
				Type:      "tool_result",
				ToolUseID: p.ToolCallID,
				Content:   p.ResultContent,
			})
		default:
			parts = append(parts, claudeContent{Type: "text", Text: ""})
		}
	}

	return parts
}

// relocateAssistantImages enforces the no-assistant-images rule: images found
// in assistant turns move to the next user turn, or to a fresh user turn
// inserted right after when none follows.
func (c *ClaudeCompiler) relocateAssistantImages(messages []claudeMessage) []claudeMessage {
	for i := 0; i < len(messages); i++ {
		if messages[i].Role != prompt.RoleAssistant {
			continue
		}

		var (
			kept   []claudeContent
			images []claudeContent
		)

		for _, part := range messages[i].Content {
			if part.Type == "image" {
				images = append(images, part)
				continue
			}

			kept = append(kept, part)
		}

		if len(images) == 0 {
			continue
		}

		if kept == nil {
			kept = []claudeContent{}
		}

		messages[i].Content = kept

		if i+1 < len(messages) && messages[i+1].Role == prompt.RoleUser {
			messages[i+1].Content = append(messages[i+1].Content, images...)
			continue
		}

		inserted := claudeMessage{Role: prompt.RoleUser, Content: images}
		messages = append(messages[:i+1], append([]claudeMessage{inserted}, messages[i+1:]...)...)
		i++
	}

	return messages
}

func mergeClaudeAdjacent(messages []claudeMessage) []claudeMessage {
	out := make([]claudeMessage, 0, len(messages))

	for _, m := range messages {
		if len(out) > 0 && out[len(out)-1].Role == m.Role {
			out[len(out)-1].Content = append(out[len(out)-1].Content, m.Content...)
			continue
		}

		out = append(out, m)
	}

	return out
}

func claudeTools(tools []prompt.Tool) []map[string]any {
	out := make([]map[string]any, 0, len(tools))

	for _, t := range tools {
		entry := map[string]any{}

		switch {
		case t.Function != nil:
			entry["name"] = t.Function.Name
			if t.Function.Description != "" {
				entry["description"] = t.Function.Description
			}

			if len(t.Function.Parameters) > 0 {
				entry["input_schema"] = json.RawMessage(t.Function.Parameters)
			}
		case t.Name != "":
			entry["name"] = t.Name
			if len(t.Schema) > 0 {
				entry["input_schema"] = json.RawMessage(t.Schema)
			}
		default:
			continue
		}

		out = append(out, entry)
	}

	return out
}

// flattenClaudeToolContent rewrites tool parts back into JSON text for models
// without tool support.
func flattenClaudeToolContent(messages []claudeMessage) []claudeMessage {
	for i := range messages {
		for j, part := range messages[i].Content {
			switch part.Type {
			case "tool_use":
				payload, err := json.Marshal(map[string]any{
					"name":  part.Name,
					"input": part.Input,
				})
				if err != nil {
					messages[i].Content[j] = claudeContent{Type: "text", Text: ""}
					continue
				}

				messages[i].Content[j] = claudeContent{Type: "text", Text: string(payload)}
			case "tool_result":
				messages[i].Content[j] = claudeContent{
					Type: "text",
					Text: fmt.Sprintf("%v", part.Content),
				}
			}
		}
	}

	return messages
}

func flatText(content prompt.Content) string {
	if !content.IsParts() {
		return content.Text
	}

	var segments []string

	for _, p := range content.Parts {
		if p.Type == prompt.PartText && p.Text != "" {
			segments = append(segments, p.Text)
		}
	}

	return strings.Join(segments, "\n\n")
}
