package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role and part type constants shared across the engine.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"

	PartText       = "text"
	PartImage      = "image"
	PartVideo      = "video"
	PartAudio      = "audio"
	PartToolUse    = "tool_use"
	PartToolResult = "tool_result"
	PartInlineData = "inline_data"

	// Speaker names marking few-shot exemplar turns.
	NameExampleUser      = "example_user"
	NameExampleAssistant = "example_assistant"
)

// Part is one tagged unit of message content.
type Part struct {
	Type string

	// PartText
	Text string

	// PartImage / PartVideo / PartAudio: a URL or data: URI.
	URL string

	// PartInlineData, produced by the media embedder.
	MIMEType   string
	Data       string
	Resolution string

	// PartToolUse
	ToolID    string
	ToolName  string
	ToolInput map[string]any

	// PartToolResult
	ToolCallID    string
	ResultContent string
}

// Content is either a flat string or an ordered part list; exactly what the
// wire carries for "content": string | array.
type Content struct {
	Text  string
	Parts []Part
}

// IsParts reports whether the content is structured.
func (c Content) IsParts() bool {
	return c.Parts != nil
}

// Empty reports whether there is nothing to send.
func (c Content) Empty() bool {
	return !c.IsParts() && c.Text == ""
}

func Text(s string) Content {
	return Content{Text: s}
}

func PartsContent(parts ...Part) Content {
	if parts == nil {
		parts = []Part{}
	}

	return Content{Parts: parts}
}

func TextPart(s string) Part {
	return Part{Type: PartText, Text: s}
}

func ImagePart(url string) Part {
	return Part{Type: PartImage, URL: url}
}

func VideoPart(url string) Part {
	return Part{Type: PartVideo, URL: url}
}

func AudioPart(url string) Part {
	return Part{Type: PartAudio, URL: url}
}

// ToolCall is the generic tool invocation representation.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type,omitempty"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool is a generic tool definition offered to the model.
type Tool struct {
	Type     string          `json:"type,omitempty"`
	Function *ToolFunction   `json:"function,omitempty"`
	Name     string          `json:"name,omitempty"`
	Schema   json.RawMessage `json:"input_schema,omitempty"`
}

type ToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Message is the canonical provider-agnostic conversation turn.
type Message struct {
	Role       string     `json:"role"`
	Content    Content    `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Signature  string     `json:"signature,omitempty"`
}

// Clone returns a deep copy so compilers never mutate caller-owned data.
func (m Message) Clone() Message {
	out := m

	if m.Content.Parts != nil {
		out.Content.Parts = make([]Part, len(m.Content.Parts))
		copy(out.Content.Parts, m.Content.Parts)

		for i, p := range out.Content.Parts {
			if p.ToolInput != nil {
				in := make(map[string]any, len(p.ToolInput))
				for k, v := range p.ToolInput {
					in[k] = v
				}

				out.Content.Parts[i].ToolInput = in
			}
		}
	}

	if m.ToolCalls != nil {
		out.ToolCalls = make([]ToolCall, len(m.ToolCalls))
		copy(out.ToolCalls, m.ToolCalls)
	}

	return out
}

// CloneMessages deep-copies a message list.
func CloneMessages(messages []Message) []Message {
	out := make([]Message, len(messages))
	for i, m := range messages {
		out[i] = m.Clone()
	}

	return out
}

// PromptNames is the speaker naming context supplied by the caller.
type PromptNames struct {
	CharName   string   `json:"char_name"`
	UserName   string   `json:"user_name"`
	GroupNames []string `json:"group_names,omitempty"`
}

// StartsWithGroupName reports whether the text already carries a recognized
// group member prefix ("Alice: ...").
func (n PromptNames) StartsWithGroupName(text string) bool {
	for _, name := range n.GroupNames {
		if name != "" && strings.HasPrefix(text, name+": ") {
			return true
		}
	}

	return false
}

// Request is the canonical inbound request consumed by exactly one compiler.
type Request struct {
	Model            string          `json:"model"`
	Messages         []Message       `json:"messages"`
	MaxTokens        int             `json:"max_tokens,omitempty"`
	Temperature      *float64        `json:"temperature,omitempty"`
	TopP             *float64        `json:"top_p,omitempty"`
	TopK             *int            `json:"top_k,omitempty"`
	Stream           bool            `json:"stream,omitempty"`
	Stop             []string        `json:"stop,omitempty"`
	Seed             *int            `json:"seed,omitempty"`
	Tools            []Tool          `json:"tools,omitempty"`
	ToolChoice       any             `json:"tool_choice,omitempty"`
	JSONSchema       json.RawMessage `json:"json_schema,omitempty"`
	ReasoningEffort  string          `json:"reasoning_effort,omitempty"`
	UseSysPrompt     bool            `json:"use_sysprompt,omitempty"`
	AssistantPrefill string          `json:"assistant_prefill,omitempty"`
	EnableWebSearch  bool            `json:"enable_web_search,omitempty"`
	CacheTTL         string          `json:"ttl,omitempty"`
	CachingAtDepth   int             `json:"caching_at_depth"`
	Names            PromptNames     `json:"names,omitempty"`
}

// DecodeRequest unmarshals a canonical request with the defaults that
// distinguish "absent" from zero: depth caching is disabled unless the field
// is present.
func DecodeRequest(data []byte) (*Request, error) {
	req := Request{CachingAtDepth: -1}
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decode canonical request: %w", err)
	}

	return &req, nil
}

// MarshalJSON writes content as a plain string when unstructured, or as the
// OpenAI-style tagged part array otherwise.
func (c Content) MarshalJSON() ([]byte, error) {
	if !c.IsParts() {
		return json.Marshal(c.Text)
	}

	parts := make([]map[string]any, 0, len(c.Parts))
	for _, p := range c.Parts {
		parts = append(parts, partToWire(p))
	}

	return json.Marshal(parts)
}

func partToWire(p Part) map[string]any {
	switch p.Type {
	case PartText:
		return map[string]any{"type": "text", "text": p.Text}
	case PartImage:
		return map[string]any{"type": "image_url", "image_url": map[string]any{"url": p.URL}}
	case PartVideo:
		return map[string]any{"type": "video_url", "video_url": map[string]any{"url": p.URL}}
	case PartAudio:
		return map[string]any{"type": "audio_url", "audio_url": map[string]any{"url": p.URL}}
	case PartToolUse:
		return map[string]any{
			"type":  "tool_use",
			"id":    p.ToolID,
			"name":  p.ToolName,
			"input": p.ToolInput,
		}
	case PartToolResult:
		return map[string]any{
			"type":         "tool_result",
			"tool_call_id": p.ToolCallID,
			"content":      p.ResultContent,
		}
	case PartInlineData:
		return map[string]any{
			"type":       "inline_data",
			"mime_type":  p.MIMEType,
			"data":       p.Data,
			"resolution": p.Resolution,
		}
	default:
		// Unrecognized kinds degrade to empty text rather than aborting.
		return map[string]any{"type": "text", "text": ""}
	}
}

// UnmarshalJSON accepts both a bare string and a tagged part array.
func (c *Content) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = s
		c.Parts = nil

		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("content must be a string or an array of parts: %w", err)
	}

	parts := make([]Part, 0, len(raw))

	for _, rp := range raw {
		var wire struct {
			Type     string `json:"type"`
			Text     string `json:"text"`
			ImageURL *struct {
				URL string `json:"url"`
			} `json:"image_url"`
			VideoURL *struct {
				URL string `json:"url"`
			} `json:"video_url"`
			AudioURL *struct {
				URL string `json:"url"`
			} `json:"audio_url"`
			ID         string         `json:"id"`
			Name       string         `json:"name"`
			Input      map[string]any `json:"input"`
			ToolCallID string         `json:"tool_call_id"`
			Content    string         `json:"content"`
		}

		if err := json.Unmarshal(rp, &wire); err != nil {
			return fmt.Errorf("invalid content part: %w", err)
		}

		switch wire.Type {
		case "text":
			parts = append(parts, TextPart(wire.Text))
		case "image_url", "image":
			if wire.ImageURL != nil {
				parts = append(parts, ImagePart(wire.ImageURL.URL))
			}
		case "video_url", "video":
			if wire.VideoURL != nil {
				parts = append(parts, VideoPart(wire.VideoURL.URL))
			}
		case "audio_url", "audio":
			if wire.AudioURL != nil {
				parts = append(parts, AudioPart(wire.AudioURL.URL))
			}
		case "tool_use":
			parts = append(parts, Part{
				Type:      PartToolUse,
				ToolID:    wire.ID,
				ToolName:  wire.Name,
				ToolInput: wire.Input,
			})
		case "tool_result":
			parts = append(parts, Part{
				Type:          PartToolResult,
				ToolCallID:    wire.ToolCallID,
				ResultContent: wire.Content,
			})
		default:
			parts = append(parts, TextPart(""))
		}
	}

	c.Text = ""
	c.Parts = parts

	return nil
}
