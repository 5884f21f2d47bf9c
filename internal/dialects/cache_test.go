package dialects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Davincible/chat-dialect-router/internal/prompt"
)

func textMessage(role, text string) claudeMessage {
	return claudeMessage{Role: role, Content: []claudeContent{{Type: "text", Text: text}}}
}

func markedIndexes(messages []claudeMessage) []int {
	var marked []int

	for i, m := range messages {
		for _, part := range m.Content {
			if part.CacheControl != nil {
				marked = append(marked, i)
				break
			}
		}
	}

	return marked
}

func TestApplySystemPromptCache(t *testing.T) {
	system := []claudeContent{
		{Type: "text", Text: "lore"},
		{Type: "text", Text: "rules"},
	}

	applySystemPromptCache(system, "5m")

	assert.Nil(t, system[0].CacheControl)
	require.NotNil(t, system[1].CacheControl)
	assert.Equal(t, "ephemeral", system[1].CacheControl.Type)
	assert.Equal(t, "5m", system[1].CacheControl.TTL)

	// A second application changes nothing.
	applySystemPromptCache(system, "1h")
	assert.Equal(t, "5m", system[1].CacheControl.TTL)
}

func TestApplyDepthCache(t *testing.T) {
	conversation := func() []claudeMessage {
		return []claudeMessage{
			textMessage("user", "one"),
			textMessage("assistant", "two"),
			textMessage("user", "three"),
			textMessage("assistant", "four"),
			textMessage("user", "five"),
		}
	}

	t.Run("depth zero marks groups zero and two", func(t *testing.T) {
		messages := conversation()
		applyDepthCache(messages, 0, "", false)

		assert.Equal(t, []int{2, 4}, markedIndexes(messages))
	})

	t.Run("depth one marks groups one and three", func(t *testing.T) {
		messages := conversation()
		applyDepthCache(messages, 1, "", false)

		assert.Equal(t, []int{1, 3}, markedIndexes(messages))
	})

	t.Run("trailing prefill is skipped", func(t *testing.T) {
		messages := append(conversation(), textMessage("assistant", "prefill"))
		applyDepthCache(messages, 0, "", true)

		assert.Equal(t, []int{2, 4}, markedIndexes(messages))
	})

	t.Run("same-role run counts as one group", func(t *testing.T) {
		messages := []claudeMessage{
			textMessage("user", "a"),
			textMessage("user", "b"),
			textMessage("assistant", "c"),
			textMessage("user", "d"),
		}

		applyDepthCache(messages, 0, "", false)

		// Group 2 is the user run; its latest message gets the marker.
		assert.Equal(t, []int{1, 3}, markedIndexes(messages))
	})

	t.Run("depth beyond history marks nothing", func(t *testing.T) {
		messages := conversation()
		applyDepthCache(messages, 10, "", false)

		assert.Empty(t, markedIndexes(messages))
	})

	t.Run("idempotent", func(t *testing.T) {
		messages := conversation()
		applyDepthCache(messages, 0, "5m", false)
		applyDepthCache(messages, 0, "1h", false)

		assert.Equal(t, []int{2, 4}, markedIndexes(messages))
		assert.Equal(t, "5m", messages[4].Content[0].CacheControl.TTL)
	})

	t.Run("at most two marks", func(t *testing.T) {
		messages := conversation()
		applyDepthCache(messages, 0, "", false)

		assert.Len(t, markedIndexes(messages), 2)
	})
}

func TestClaudeCompiler_CacheAnnotations(t *testing.T) {
	c := NewClaudeCompiler()

	req := &prompt.Request{
		Model:          "claude-sonnet-4-20250514",
		MaxTokens:      1024,
		UseSysPrompt:   true,
		CacheTTL:       "5m",
		CachingAtDepth: 0,
		Messages: []prompt.Message{
			{Role: prompt.RoleSystem, Content: prompt.Text("lore")},
			{Role: prompt.RoleUser, Content: prompt.Text("hi")},
			{Role: prompt.RoleAssistant, Content: prompt.Text("hello")},
			{Role: prompt.RoleUser, Content: prompt.Text("tell me more")},
		},
	}

	body := compile(t, c, req)

	system := body["system"].([]any)
	require.Len(t, system, 1)
	cache := system[0].(map[string]any)["cache_control"].(map[string]any)
	assert.Equal(t, "ephemeral", cache["type"])
	assert.Equal(t, "5m", cache["ttl"])

	messages := messagesOf(t, body)
	require.Len(t, messages, 3)

	lastParts := messages[2]["content"].([]any)
	assert.NotNil(t, lastParts[len(lastParts)-1].(map[string]any)["cache_control"])
}

func TestClaudeCompiler_NoDepthCacheWhenAbsent(t *testing.T) {
	c := NewClaudeCompiler()

	req := &prompt.Request{
		Model:          "claude-sonnet-4-20250514",
		MaxTokens:      1024,
		CachingAtDepth: -1,
		Messages: []prompt.Message{
			{Role: prompt.RoleUser, Content: prompt.Text("hi")},
		},
	}

	messages := messagesOf(t, compile(t, c, req))

	part := messages[0]["content"].([]any)[0].(map[string]any)
	_, marked := part["cache_control"]
	assert.False(t, marked)
}
