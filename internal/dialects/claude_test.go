package dialects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Davincible/chat-dialect-router/internal/prompt"
)

func TestClaudeCompiler_SystemExtraction(t *testing.T) {
	c := NewClaudeCompiler()

	req := &prompt.Request{
		Model:          "claude-3-5-sonnet-20241022",
		MaxTokens:      1024,
		UseSysPrompt:   true,
		CachingAtDepth: -1,
		Messages: []prompt.Message{
			{Role: prompt.RoleSystem, Content: prompt.Text("lore")},
			{Role: prompt.RoleSystem, Content: prompt.Text("rules")},
			{Role: prompt.RoleUser, Content: prompt.Text("hi")},
		},
	}

	body := compile(t, c, req)

	system, ok := body["system"].([]any)
	require.True(t, ok)
	require.Len(t, system, 2)
	assert.Equal(t, "lore", system[0].(map[string]any)["text"])
	assert.Equal(t, "rules", system[1].(map[string]any)["text"])

	messages := messagesOf(t, body)
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0]["role"])
}

func TestClaudeCompiler_SystemOnlyGetsPlaceholder(t *testing.T) {
	c := NewClaudeCompiler()

	req := &prompt.Request{
		Model:          "claude-3-5-sonnet-20241022",
		MaxTokens:      1024,
		UseSysPrompt:   true,
		CachingAtDepth: -1,
		Messages: []prompt.Message{
			{Role: prompt.RoleSystem, Content: prompt.Text("lore")},
		},
	}

	messages := messagesOf(t, compile(t, c, req))

	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0]["role"])

	parts := messages[0]["content"].([]any)
	require.Len(t, parts, 1)
	assert.Equal(t, prompt.PlaceholderText, parts[0].(map[string]any)["text"])
}

func TestClaudeCompiler_AssistantImageRelocation(t *testing.T) {
	c := NewClaudeCompiler()

	t.Run("moves into following user turn", func(t *testing.T) {
		req := &prompt.Request{
			Model:          "claude-3-5-sonnet-20241022",
			MaxTokens:      1024,
			CachingAtDepth: -1,
			Messages: []prompt.Message{
				{Role: prompt.RoleAssistant, Content: prompt.PartsContent(
					prompt.TextPart("behold"),
					prompt.ImagePart("https://img.example/painting.png"),
				)},
				{Role: prompt.RoleUser, Content: prompt.Text("nice")},
			},
		}

		messages := messagesOf(t, compile(t, c, req))

		require.Len(t, messages, 2)
		assert.Equal(t, "assistant", messages[0]["role"])

		assistantParts := messages[0]["content"].([]any)
		require.Len(t, assistantParts, 1)
		assert.Equal(t, "text", assistantParts[0].(map[string]any)["type"])

		userParts := messages[1]["content"].([]any)
		require.Len(t, userParts, 2)
		assert.Equal(t, "text", userParts[0].(map[string]any)["type"])
		assert.Equal(t, "image", userParts[1].(map[string]any)["type"])
	})

	t.Run("inserts user turn when none follows", func(t *testing.T) {
		req := &prompt.Request{
			Model:          "claude-3-5-sonnet-20241022",
			MaxTokens:      1024,
			CachingAtDepth: -1,
			Messages: []prompt.Message{
				{Role: prompt.RoleUser, Content: prompt.Text("draw me something")},
				{Role: prompt.RoleAssistant, Content: prompt.PartsContent(
					prompt.ImagePart("https://img.example/painting.png"),
				)},
			},
		}

		messages := messagesOf(t, compile(t, c, req))

		require.Len(t, messages, 3)
		assert.Equal(t, "assistant", messages[1]["role"])

		// The assistant keeps an explicitly empty content array.
		assert.Empty(t, messages[1]["content"].([]any))

		assert.Equal(t, "user", messages[2]["role"])

		parts := messages[2]["content"].([]any)
		require.Len(t, parts, 1)

		image := parts[0].(map[string]any)
		assert.Equal(t, "image", image["type"])
		assert.Equal(t, "https://img.example/painting.png", image["source"].(map[string]any)["url"])
	})
}

func TestClaudeCompiler_DataURIImagesBecomeBase64(t *testing.T) {
	c := NewClaudeCompiler()

	req := &prompt.Request{
		Model:          "claude-3-5-sonnet-20241022",
		MaxTokens:      1024,
		CachingAtDepth: -1,
		Messages: []prompt.Message{
			{Role: prompt.RoleUser, Content: prompt.PartsContent(
				prompt.ImagePart("data:image/png;base64,AAAA"),
			)},
		},
	}

	messages := messagesOf(t, compile(t, c, req))

	parts := messages[0]["content"].([]any)
	require.Len(t, parts, 1)

	source := parts[0].(map[string]any)["source"].(map[string]any)
	assert.Equal(t, "base64", source["type"])
	assert.Equal(t, "image/png", source["media_type"])
	assert.Equal(t, "AAAA", source["data"])
}

func TestClaudeCompiler_PrefillTrimmed(t *testing.T) {
	c := NewClaudeCompiler()

	req := &prompt.Request{
		Model:            "claude-3-5-sonnet-20241022",
		MaxTokens:        1024,
		AssistantPrefill: "Sure, here goes: \t\n",
		CachingAtDepth:   -1,
		Messages: []prompt.Message{
			{Role: prompt.RoleUser, Content: prompt.Text("go")},
		},
	}

	messages := messagesOf(t, compile(t, c, req))

	require.Len(t, messages, 2)
	assert.Equal(t, "assistant", messages[1]["role"])

	parts := messages[1]["content"].([]any)
	assert.Equal(t, "Sure, here goes:", parts[0].(map[string]any)["text"])
}

func TestClaudeCompiler_Thinking(t *testing.T) {
	c := NewClaudeCompiler()

	req := &prompt.Request{
		Model:           "claude-sonnet-4-20250514",
		MaxTokens:       10000,
		ReasoningEffort: "medium",
		Stream:          true,
		CachingAtDepth:  -1,
		Messages: []prompt.Message{
			{Role: prompt.RoleUser, Content: prompt.Text("think hard")},
		},
	}

	body := compile(t, c, req)

	thinking, ok := body["thinking"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "enabled", thinking["type"])
	assert.EqualValues(t, 2500, thinking["budget_tokens"])
}

func TestClaudeCompiler_ThinkingDisablesPrefill(t *testing.T) {
	c := NewClaudeCompiler()

	req := &prompt.Request{
		Model:            "claude-sonnet-4-20250514",
		MaxTokens:        10000,
		ReasoningEffort:  "medium",
		Stream:           true,
		AssistantPrefill: "Sure,",
		CachingAtDepth:   -1,
		Messages: []prompt.Message{
			{Role: prompt.RoleUser, Content: prompt.Text("go")},
		},
	}

	body := compile(t, c, req)
	require.NotNil(t, body["thinking"])

	messages := messagesOf(t, body)

	// The demoted prefill folds back into the preceding user turn.
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0]["role"])

	parts := messages[0]["content"].([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, "go", parts[0].(map[string]any)["text"])
	assert.Equal(t, "Sure,", parts[1].(map[string]any)["text"])
}

func TestClaudeCompiler_NoThinkingWithoutEffort(t *testing.T) {
	c := NewClaudeCompiler()

	req := &prompt.Request{
		Model:          "claude-sonnet-4-20250514",
		MaxTokens:      10000,
		CachingAtDepth: -1,
		Messages: []prompt.Message{
			{Role: prompt.RoleUser, Content: prompt.Text("hi")},
		},
	}

	body := compile(t, c, req)
	assert.Nil(t, body["thinking"])
}

func TestClaudeCompiler_Tools(t *testing.T) {
	weather := prompt.Tool{
		Type: "function",
		Function: &prompt.ToolFunction{
			Name:        "get_weather",
			Description: "Current weather for a city",
			Parameters:  []byte(`{"type":"object","properties":{"city":{"type":"string"}}}`),
		},
	}

	c := NewClaudeCompiler()

	t.Run("native definitions", func(t *testing.T) {
		req := &prompt.Request{
			Model:          "claude-sonnet-4-20250514",
			MaxTokens:      1024,
			Tools:          []prompt.Tool{weather},
			CachingAtDepth: -1,
			Messages: []prompt.Message{
				{Role: prompt.RoleUser, Content: prompt.Text("weather in Oslo?")},
			},
		}

		body := compile(t, c, req)

		tools, ok := body["tools"].([]any)
		require.True(t, ok)
		require.Len(t, tools, 1)

		entry := tools[0].(map[string]any)
		assert.Equal(t, "get_weather", entry["name"])
		assert.Equal(t, "Current weather for a city", entry["description"])
		assert.NotNil(t, entry["input_schema"])
	})

	t.Run("flattened for models without tool support", func(t *testing.T) {
		req := &prompt.Request{
			Model:          "claude-instant-1.2",
			MaxTokens:      1024,
			Tools:          []prompt.Tool{weather},
			CachingAtDepth: -1,
			Messages: []prompt.Message{
				{Role: prompt.RoleAssistant, ToolCalls: []prompt.ToolCall{
					{ID: "call_1", Function: prompt.FunctionCall{Name: "get_weather", Arguments: `{"city":"Oslo"}`}},
				}},
				{Role: prompt.RoleTool, ToolCallID: "call_1", Content: prompt.Text("rainy")},
			},
		}

		body := compile(t, c, req)

		assert.Nil(t, body["tools"])

		for _, m := range messagesOf(t, body) {
			for _, p := range m["content"].([]any) {
				assert.Equal(t, "text", p.(map[string]any)["type"])
			}
		}
	})
}

func TestClaudeCompiler_WebSearchTool(t *testing.T) {
	c := NewClaudeCompiler()

	req := &prompt.Request{
		Model:           "claude-sonnet-4-20250514",
		MaxTokens:       1024,
		EnableWebSearch: true,
		CachingAtDepth:  -1,
		Messages: []prompt.Message{
			{Role: prompt.RoleUser, Content: prompt.Text("latest news")},
		},
	}

	body := compile(t, c, req)

	tools, ok := body["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 1)

	entry := tools[0].(map[string]any)
	assert.Equal(t, "web_search_20250305", entry["type"])
	assert.Equal(t, "web_search", entry["name"])
}

func TestClaudeCompiler_ToolResultAsUserTurn(t *testing.T) {
	c := NewClaudeCompiler()

	req := &prompt.Request{
		Model:          "claude-sonnet-4-20250514",
		MaxTokens:      1024,
		CachingAtDepth: -1,
		Messages: []prompt.Message{
			{Role: prompt.RoleTool, ToolCallID: "call_1", Content: prompt.Text("rainy")},
		},
	}

	messages := messagesOf(t, compile(t, c, req))

	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0]["role"])

	part := messages[0]["content"].([]any)[0].(map[string]any)
	assert.Equal(t, "tool_result", part["type"])
	assert.Equal(t, "call_1", part["tool_use_id"])
	assert.Equal(t, "rainy", part["content"])
}
