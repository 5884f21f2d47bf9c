package prompt

import (
	"strings"

	"github.com/google/uuid"
)

// PlaceholderText seeds conversations that would otherwise compile to an
// empty message list; several dialects reject empty conversations outright.
const PlaceholderText = "[Start a new chat]"

// mergeSeparator joins squashed same-role turns and flattened content parts.
const mergeSeparator = "\n\n"

// MergeOptions controls the role normalizer.
type MergeOptions struct {
	// Strict demotes non-leading system messages to user and enforces the
	// system->user opening shape required by strict-alternation dialects.
	Strict bool

	// Placeholders inserts synthetic user turns where Strict demands a user
	// message that the conversation does not have.
	Placeholders bool

	// Single collapses the whole conversation into user turns, prefixing
	// each with its speaker so attribution survives.
	Single bool

	// Tools keeps tool-role messages and tool call fields; when false they
	// are demoted to plain user turns.
	Tools bool
}

// Merge produces a role-normalized copy of messages: adjacent same-role turns
// are squashed (tool turns never are), exemplar names become speaker prefixes,
// structured parts survive untouched, and the result is never empty. The input
// slice is not modified.
func Merge(messages []Message, names PromptNames, opts MergeOptions) []Message {
	out := mergePass(CloneMessages(messages), names, opts)

	if opts.Strict {
		out = enforceStrict(out, opts)

		// Demotions and insertions can create new same-role neighbors;
		// one non-strict pass re-squashes them.
		rest := opts
		rest.Strict = false
		rest.Single = false
		out = mergePass(out, names, rest)
	}

	return out
}

func mergePass(messages []Message, names PromptNames, opts MergeOptions) []Message {
	tokens := make(map[string]Part)

	// Flatten structured content to text, stashing non-text parts behind
	// unique opaque tokens so they survive string concatenation.
	for i := range messages {
		messages[i].Content = Text(flattenContent(messages[i].Content, tokens))
	}

	for i := range messages {
		applyNamePrefix(&messages[i], names)
	}

	if !opts.Tools {
		for i := range messages {
			if messages[i].Role == RoleTool {
				messages[i].Role = RoleUser
			}

			messages[i].ToolCalls = nil
			messages[i].ToolCallID = ""
		}
	}

	if opts.Single {
		for i := range messages {
			text := messages[i].Content.Text

			switch messages[i].Role {
			case RoleAssistant:
				if names.CharName != "" && !strings.HasPrefix(text, names.CharName+": ") {
					messages[i].Content = Text(names.CharName + ": " + text)
				}
			case RoleUser:
				if names.UserName != "" && !strings.HasPrefix(text, names.UserName+": ") {
					messages[i].Content = Text(names.UserName + ": " + text)
				}
			}

			messages[i].Role = RoleUser
		}
	}

	messages = squash(messages)

	if len(messages) == 0 {
		messages = []Message{{Role: RoleUser, Content: Text(PlaceholderText)}}
	}

	for i := range messages {
		messages[i].Content = restoreContent(messages[i].Content.Text, tokens)
	}

	return messages
}

func flattenContent(c Content, tokens map[string]Part) string {
	if !c.IsParts() {
		return c.Text
	}

	segments := make([]string, 0, len(c.Parts))

	for _, p := range c.Parts {
		if p.Type == PartText {
			segments = append(segments, p.Text)
			continue
		}

		token := uuid.NewString()
		tokens[token] = p
		segments = append(segments, token)
	}

	return strings.Join(segments, mergeSeparator)
}

// ApplySpeakerPrefix applies the exemplar/name prefix rule to a message that
// may still carry structured content: the prefix lands on the first text part.
func ApplySpeakerPrefix(m *Message, names PromptNames) {
	if !m.Content.IsParts() {
		applyNamePrefix(m, names)
		return
	}

	if m.Name == "" {
		return
	}

	for i, p := range m.Content.Parts {
		if p.Type == PartText {
			probe := Message{Name: m.Name, Content: Text(p.Text)}
			applyNamePrefix(&probe, names)
			m.Content.Parts[i].Text = probe.Content.Text

			break
		}
	}

	m.Name = ""
}

func applyNamePrefix(m *Message, names PromptNames) {
	if m.Name == "" {
		return
	}

	text := m.Content.Text

	var prefix string

	switch m.Name {
	case NameExampleAssistant:
		prefix = names.CharName
	case NameExampleUser:
		prefix = names.UserName
	default:
		prefix = m.Name
	}

	if prefix != "" && !strings.HasPrefix(text, prefix+": ") && !names.StartsWithGroupName(text) {
		m.Content = Text(prefix + ": " + text)
	}

	m.Name = ""
}

func squash(messages []Message) []Message {
	out := make([]Message, 0, len(messages))

	for _, m := range messages {
		if len(out) > 0 {
			prev := &out[len(out)-1]
			if prev.Role == m.Role && m.Role != RoleTool {
				joined := prev.Content.Text
				if joined != "" && m.Content.Text != "" {
					joined += mergeSeparator
				}

				prev.Content = Text(joined + m.Content.Text)

				if len(m.ToolCalls) > 0 {
					prev.ToolCalls = append(prev.ToolCalls, m.ToolCalls...)
				}

				continue
			}
		}

		out = append(out, m)
	}

	return out
}

// restoreContent rebuilds an ordered part array for any message whose
// flattened text still carries stash tokens; plain text stays a flat string.
func restoreContent(text string, tokens map[string]Part) Content {
	if len(tokens) == 0 || !containsToken(text, tokens) {
		return Text(text)
	}

	var (
		parts   []Part
		textRun []string
	)

	flush := func() {
		if len(textRun) > 0 {
			parts = append(parts, TextPart(strings.Join(textRun, mergeSeparator)))
			textRun = textRun[:0]
		}
	}

	for _, segment := range strings.Split(text, mergeSeparator) {
		if part, ok := tokens[segment]; ok {
			flush()
			parts = append(parts, part)

			continue
		}

		textRun = append(textRun, segment)
	}

	flush()

	return PartsContent(parts...)
}

func containsToken(text string, tokens map[string]Part) bool {
	for token := range tokens {
		if strings.Contains(text, token) {
			return true
		}
	}

	return false
}

func enforceStrict(messages []Message, opts MergeOptions) []Message {
	for i := range messages {
		if i > 0 && messages[i].Role == RoleSystem {
			messages[i].Role = RoleUser
		}
	}

	if !opts.Placeholders {
		return messages
	}

	placeholder := Message{Role: RoleUser, Content: Text(PlaceholderText)}

	if len(messages) == 0 {
		return []Message{placeholder}
	}

	switch messages[0].Role {
	case RoleSystem:
		if len(messages) == 1 || messages[1].Role != RoleUser {
			rest := append([]Message{placeholder}, messages[1:]...)
			messages = append(messages[:1:1], rest...)
		}
	case RoleUser:
		// Already opens correctly.
	default:
		messages = append([]Message{placeholder}, messages...)
	}

	return messages
}
