package dialects

import (
	"encoding/json"
	"strings"

	"github.com/Davincible/chat-dialect-router/internal/prompt"
	"github.com/Davincible/chat-dialect-router/internal/reasoning"
)

// GeminiCompiler targets the contents/parts dialect: user/model role pairs,
// functionCall/functionResponse tool encoding, inlineData attachments and
// thought signatures.
type GeminiCompiler struct {
	name string
}

func NewGeminiCompiler() *GeminiCompiler {
	return &GeminiCompiler{name: "gemini"}
}

func (g *GeminiCompiler) Name() string {
	return g.name
}

// The wire protocol mandates a thought signature on function calls for some
// model families; this marker tells the backend to skip validation when no
// genuine signature exists.
const syntheticThoughtSignature = "skip_thought_signature_validator"

const geminiModelRole = "model"

type geminiRequest struct {
	Contents          []geminiContent  `json:"contents"`
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	GenerationConfig  map[string]any   `json:"generationConfig,omitempty"`
	Tools             []map[string]any `json:"tools,omitempty"`
	SafetySettings    []map[string]any `json:"safetySettings,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text             string                  `json:"text,omitempty"`
	InlineData       *geminiInlineData       `json:"inlineData,omitempty"`
	FunctionCall     *geminiFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResponse `json:"functionResponse,omitempty"`
	ThoughtSignature string                  `json:"thoughtSignature,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type geminiFunctionResponse struct {
	Name     string `json:"name"`
	Response any    `json:"response"`
}

func (g *GeminiCompiler) Compile(req *prompt.Request) ([]byte, error) {
	if req == nil {
		return nil, ErrNilRequest
	}

	messages := prompt.CloneMessages(req.Messages)
	messages = prompt.EmbedInlineMedia(messages, prompt.MediaOptions{Audio: true, Video: true})

	body := geminiRequest{
		Contents: []geminiContent{},
	}

	if req.UseSysPrompt {
		var parts []geminiPart

		for len(messages) > 0 && messages[0].Role == prompt.RoleSystem {
			m := messages[0]
			messages = messages[1:]

			prompt.ApplySpeakerPrefix(&m, req.Names)

			if text := flatText(m.Content); text != "" {
				parts = append(parts, geminiPart{Text: text})
			}
		}

		if len(parts) > 0 {
			body.SystemInstruction = &geminiContent{Parts: parts}
		}
	}

	registry := make(prompt.ToolNameRegistry)

	for i := range messages {
		prompt.ApplySpeakerPrefix(&messages[i], req.Names)

		content := g.convertMessage(messages[i], registry)
		if len(content.Parts) == 0 {
			continue
		}

		body.Contents = mergeGeminiContents(body.Contents, content)
	}

	if reasoning.RequiresThoughtSignature(req.Model) {
		attachSyntheticSignatures(body.Contents)
	}

	body.GenerationConfig = g.generationConfig(req)
	body.Tools = g.tools(req)
	body.SafetySettings = permissiveSafetySettings()

	return json.Marshal(body)
}

func (g *GeminiCompiler) convertMessage(m prompt.Message, registry prompt.ToolNameRegistry) geminiContent {
	role := prompt.RoleUser
	if m.Role == prompt.RoleAssistant {
		role = geminiModelRole
	}

	var parts []geminiPart

	if m.Role == prompt.RoleTool {
		parts = append(parts, geminiPart{FunctionResponse: &geminiFunctionResponse{
			Name: registry.Resolve(m.ToolCallID),
			Response: map[string]any{
				"content": flatText(m.Content),
			},
		}})

		return geminiContent{Role: role, Parts: parts}
	}

	parts = append(parts, contentToGeminiParts(m.Content, m.Signature, registry)...)

	for _, call := range m.ToolCalls {
		registry.Record(call.ID, call.Function.Name)

		var args map[string]any
		if call.Function.Arguments != "" {
			_ = json.Unmarshal([]byte(call.Function.Arguments), &args)
		}

		parts = append(parts, geminiPart{
			FunctionCall:     &geminiFunctionCall{Name: call.Function.Name, Args: args},
			ThoughtSignature: m.Signature,
		})
	}

	return geminiContent{Role: role, Parts: parts}
}

func contentToGeminiParts(content prompt.Content, signature string, registry prompt.ToolNameRegistry) []geminiPart {
	if !content.IsParts() {
		if content.Text == "" {
			return nil
		}

		return []geminiPart{{Text: content.Text}}
	}

	var parts []geminiPart

	for _, p := range content.Parts {
		switch p.Type {
		case prompt.PartText:
			if p.Text != "" {
				parts = append(parts, geminiPart{Text: p.Text})
			}
		case prompt.PartInlineData:
			parts = append(parts, geminiPart{InlineData: &geminiInlineData{
				MimeType: p.MIMEType,
				Data:     p.Data,
			}})
		case prompt.PartToolUse:
			registry.Record(p.ToolID, p.ToolName)
			parts = append(parts, geminiPart{
				FunctionCall:     &geminiFunctionCall{Name: p.ToolName, Args: p.ToolInput},
				ThoughtSignature: signature,
			})
		case prompt.PartToolResult:
			parts = append(parts, geminiPart{FunctionResponse: &geminiFunctionResponse{
				Name: registry.Resolve(p.ToolCallID),
				Response: map[string]any{
					"content": p.ResultContent,
				},
			}})
		default:
			// Unsupported media refs without inline payloads are
			// dropped rather than failing the request.
		}
	}

	return parts
}

// mergeGeminiContents appends content, folding consecutive same-role turns
// together: new text concatenates into the first existing text part, other
// parts append.
func mergeGeminiContents(contents []geminiContent, next geminiContent) []geminiContent {
	if len(contents) == 0 || contents[len(contents)-1].Role != next.Role {
		return append(contents, next)
	}

	last := &contents[len(contents)-1]

	for _, part := range next.Parts {
		if part.Text != "" && part.InlineData == nil && part.FunctionCall == nil && part.FunctionResponse == nil {
			if idx := firstTextPart(last.Parts); idx >= 0 {
				last.Parts[idx].Text = strings.TrimRight(last.Parts[idx].Text, "\n") + "\n\n" + part.Text
				continue
			}
		}

		last.Parts = append(last.Parts, part)
	}

	return contents
}

func firstTextPart(parts []geminiPart) int {
	for i, p := range parts {
		if p.Text != "" && p.FunctionCall == nil && p.FunctionResponse == nil && p.InlineData == nil {
			return i
		}
	}

	return -1
}

// attachSyntheticSignatures fills the mandated signature field on function
// calls and inline images that lack a genuine one.
func attachSyntheticSignatures(contents []geminiContent) {
	for i := range contents {
		if contents[i].Role != geminiModelRole {
			continue
		}

		for j := range contents[i].Parts {
			part := &contents[i].Parts[j]
			if part.ThoughtSignature != "" {
				continue
			}

			if part.FunctionCall != nil || part.InlineData != nil {
				part.ThoughtSignature = syntheticThoughtSignature
			}
		}
	}
}

func (g *GeminiCompiler) generationConfig(req *prompt.Request) map[string]any {
	cfg := make(map[string]any)

	if req.MaxTokens > 0 {
		cfg["maxOutputTokens"] = req.MaxTokens
	}

	if req.Temperature != nil {
		cfg["temperature"] = *req.Temperature
	}

	if req.TopP != nil {
		cfg["topP"] = *req.TopP
	}

	if req.TopK != nil {
		cfg["topK"] = *req.TopK
	}

	if len(req.Stop) > 0 {
		cfg["stopSequences"] = req.Stop
	}

	if req.Seed != nil {
		cfg["seed"] = *req.Seed
	}

	if len(req.JSONSchema) > 0 {
		cfg["responseMimeType"] = "application/json"
		cfg["responseSchema"] = json.RawMessage(req.JSONSchema)
	}

	effort := reasoning.ParseEffort(req.ReasoningEffort)
	if budget := reasoning.TokenBudget(req.MaxTokens, effort, req.Model, req.Stream); budget != reasoning.BudgetOmit && reasoning.SupportsThinking(req.Model) {
		cfg["thinkingConfig"] = map[string]any{
			"thinkingBudget":  budget,
			"includeThoughts": true,
		}
	}

	if len(cfg) == 0 {
		return nil
	}

	return cfg
}

func (g *GeminiCompiler) tools(req *prompt.Request) []map[string]any {
	var tools []map[string]any

	if reasoning.SupportsToolUse(req.Model) && len(req.Tools) > 0 {
		declarations := make([]map[string]any, 0, len(req.Tools))

		for _, t := range req.Tools {
			decl := map[string]any{}

			switch {
			case t.Function != nil:
				decl["name"] = t.Function.Name
				if t.Function.Description != "" {
					decl["description"] = t.Function.Description
				}

				if len(t.Function.Parameters) > 0 {
					decl["parameters"] = json.RawMessage(t.Function.Parameters)
				}
			case t.Name != "":
				decl["name"] = t.Name
				if len(t.Schema) > 0 {
					decl["parameters"] = json.RawMessage(t.Schema)
				}
			default:
				continue
			}

			declarations = append(declarations, decl)
		}

		if len(declarations) > 0 {
			tools = append(tools, map[string]any{"functionDeclarations": declarations})
		}
	}

	if req.EnableWebSearch {
		tools = append(tools, map[string]any{"googleSearch": map[string]any{}})
	}

	return tools
}

func permissiveSafetySettings() []map[string]any {
	categories := []string{
		"HARM_CATEGORY_HARASSMENT",
		"HARM_CATEGORY_HATE_SPEECH",
		"HARM_CATEGORY_SEXUALLY_EXPLICIT",
		"HARM_CATEGORY_DANGEROUS_CONTENT",
	}

	settings := make([]map[string]any, 0, len(categories))
	for _, category := range categories {
		settings = append(settings, map[string]any{
			"category":  category,
			"threshold": "BLOCK_NONE",
		})
	}

	return settings
}
