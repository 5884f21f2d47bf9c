package prompt

import "encoding/json"

// ToolNameRegistry remembers which function name a tool call id belongs to so
// a later tool result can be resolved against dialects that key results by
// name instead of id.
type ToolNameRegistry map[string]string

func (r ToolNameRegistry) Record(id, name string) {
	if id != "" && name != "" {
		r[id] = name
	}
}

// Resolve returns the recorded function name for id, falling back to the id
// itself when the call was never seen.
func (r ToolNameRegistry) Resolve(id string) string {
	if name, ok := r[id]; ok {
		return name
	}

	return id
}

// ToolCallParts converts a generic tool-call list into tool_use content
// parts, parsing the JSON argument payload into a structured input map.
func ToolCallParts(calls []ToolCall) []Part {
	parts := make([]Part, 0, len(calls))

	for _, call := range calls {
		var input map[string]any
		if call.Function.Arguments != "" {
			// Unparseable arguments degrade to an empty input rather
			// than failing the whole compilation.
			_ = json.Unmarshal([]byte(call.Function.Arguments), &input)
		}

		parts = append(parts, Part{
			Type:      PartToolUse,
			ToolID:    call.ID,
			ToolName:  call.Function.Name,
			ToolInput: input,
		})
	}

	return parts
}

// PartsToToolCalls is the reverse mapping, used by dialects that carry tool
// invocations in a dedicated request field rather than in content.
func PartsToToolCalls(parts []Part) []ToolCall {
	var calls []ToolCall

	for _, p := range parts {
		if p.Type != PartToolUse {
			continue
		}

		args := "{}"
		if p.ToolInput != nil {
			if raw, err := json.Marshal(p.ToolInput); err == nil {
				args = string(raw)
			}
		}

		calls = append(calls, ToolCall{
			ID:   p.ToolID,
			Type: "function",
			Function: FunctionCall{
				Name:      p.ToolName,
				Arguments: args,
			},
		})
	}

	return calls
}

// FlattenToolParts rewrites tool_use and tool_result parts into plain JSON
// text, the fallback for targets with no tool-call support.
func FlattenToolParts(parts []Part) []Part {
	out := make([]Part, 0, len(parts))

	for _, p := range parts {
		switch p.Type {
		case PartToolUse:
			payload, err := json.Marshal(map[string]any{
				"name":  p.ToolName,
				"input": p.ToolInput,
			})
			if err != nil {
				out = append(out, TextPart(""))
				continue
			}

			out = append(out, TextPart(string(payload)))
		case PartToolResult:
			payload, err := json.Marshal(map[string]any{
				"tool_call_id": p.ToolCallID,
				"content":      p.ResultContent,
			})
			if err != nil {
				out = append(out, TextPart(""))
				continue
			}

			out = append(out, TextPart(string(payload)))
		default:
			out = append(out, p)
		}
	}

	return out
}
