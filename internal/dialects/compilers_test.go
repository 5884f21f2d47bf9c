package dialects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Davincible/chat-dialect-router/internal/prompt"
)

func TestCohereCompiler(t *testing.T) {
	topP := 0.9
	topK := 40

	c := NewCohereCompiler()

	req := &prompt.Request{
		Model:          "command-r-plus",
		MaxTokens:      512,
		TopP:           &topP,
		TopK:           &topK,
		Stop:           []string{"END"},
		CachingAtDepth: -1,
		Messages: []prompt.Message{
			{Role: prompt.RoleUser, Content: prompt.Text("hi")},
			{Role: prompt.RoleUser, Content: prompt.Text("there")},
			{Role: prompt.RoleAssistant, ToolCalls: []prompt.ToolCall{
				{ID: "call_1", Function: prompt.FunctionCall{Name: "get_weather", Arguments: "{}"}},
			}},
			{Role: prompt.RoleTool, ToolCallID: "call_1", Content: prompt.Text("rainy")},
		},
	}

	body := compile(t, c, req)

	// Nucleus and top-k sampling use this dialect's short names.
	assert.EqualValues(t, 0.9, body["p"])
	assert.EqualValues(t, 40, body["k"])
	assert.Equal(t, []any{"END"}, body["stop_sequences"])

	messages := messagesOf(t, body)
	require.Len(t, messages, 3)

	assert.Equal(t, "hi\n\nthere", messages[0]["content"])
	assert.NotNil(t, messages[1]["tool_calls"])
	assert.Equal(t, "call_1", messages[2]["tool_call_id"])
}

func TestMistralCompiler(t *testing.T) {
	seed := 7

	c := NewMistralCompiler()

	req := &prompt.Request{
		Model:            "mistral-large-latest",
		MaxTokens:        512,
		Seed:             &seed,
		AssistantPrefill: "Sure,",
		CachingAtDepth:   -1,
		Messages: []prompt.Message{
			{Role: prompt.RoleSystem, Content: prompt.Text("lore")},
			{Role: prompt.RoleAssistant, Content: prompt.Text("opening line")},
		},
	}

	body := compile(t, c, req)

	assert.Equal(t, false, body["safe_prompt"])
	assert.EqualValues(t, 7, body["random_seed"])

	messages := messagesOf(t, body)
	require.Len(t, messages, 4)

	// Strict alternation: a placeholder user turn bridges system to assistant.
	assert.Equal(t, "system", messages[0]["role"])
	assert.Equal(t, "user", messages[1]["role"])
	assert.Equal(t, prompt.PlaceholderText, messages[1]["content"])
	assert.Equal(t, "assistant", messages[2]["role"])

	prefill := messages[3]
	assert.Equal(t, "assistant", prefill["role"])
	assert.Equal(t, "Sure,", prefill["content"])
	assert.Equal(t, true, prefill["prefix"])
}

func TestAI21Compiler(t *testing.T) {
	c := NewAI21Compiler()

	t.Run("nil messages yield empty array", func(t *testing.T) {
		data, err := c.Compile(&prompt.Request{Model: "jamba-large", CachingAtDepth: -1})
		require.NoError(t, err)

		assert.Contains(t, string(data), `"messages":[]`)
	})

	t.Run("text only", func(t *testing.T) {
		req := &prompt.Request{
			Model:          "jamba-large",
			CachingAtDepth: -1,
			Messages: []prompt.Message{
				{Role: prompt.RoleUser, Content: prompt.PartsContent(
					prompt.TextPart("look"),
					prompt.ImagePart("https://img.example/a.png"),
				)},
			},
		}

		messages := messagesOf(t, compile(t, c, req))

		require.Len(t, messages, 1)
		assert.Equal(t, "look", messages[0]["content"])
	})
}

func TestXAICompiler_EffortLevels(t *testing.T) {
	tests := []struct {
		effort   string
		expected any
	}{
		{"min", "low"},
		{"low", "low"},
		{"medium", "low"},
		{"high", "high"},
		{"max", "high"},
		{"", nil},
		{"bogus", nil},
	}

	c := NewXAICompiler()

	for _, tt := range tests {
		t.Run("effort "+tt.effort, func(t *testing.T) {
			req := &prompt.Request{
				Model:           "grok-4",
				ReasoningEffort: tt.effort,
				CachingAtDepth:  -1,
			}

			body := compile(t, c, req)
			assert.Equal(t, tt.expected, body["reasoning_effort"])
		})
	}
}

func TestXAICompiler_WebSearch(t *testing.T) {
	c := NewXAICompiler()

	req := &prompt.Request{
		Model:           "grok-4",
		EnableWebSearch: true,
		CachingAtDepth:  -1,
		Messages: []prompt.Message{
			{Role: prompt.RoleUser, Content: prompt.Text("latest news")},
		},
	}

	body := compile(t, c, req)

	search := body["search_parameters"].(map[string]any)
	assert.Equal(t, "auto", search["mode"])
}

func TestOpenRouterCompiler_Reasoning(t *testing.T) {
	c := NewOpenRouterCompiler()

	t.Run("numeric budget for budgeted families", func(t *testing.T) {
		req := &prompt.Request{
			Model:           "claude-sonnet-4-20250514",
			MaxTokens:       10000,
			ReasoningEffort: "medium",
			Stream:          true,
			CachingAtDepth:  -1,
		}

		body := compile(t, c, req)

		block := body["reasoning"].(map[string]any)
		assert.EqualValues(t, 2500, block["max_tokens"])
		assert.Equal(t, true, body["include_reasoning"])
	})

	t.Run("symbolic level elsewhere", func(t *testing.T) {
		req := &prompt.Request{
			Model:           "gpt-4o",
			MaxTokens:       10000,
			ReasoningEffort: "high",
			CachingAtDepth:  -1,
		}

		body := compile(t, c, req)

		block := body["reasoning"].(map[string]any)
		assert.Equal(t, "high", block["effort"])
	})

	t.Run("auto omits the block", func(t *testing.T) {
		req := &prompt.Request{
			Model:          "claude-sonnet-4-20250514",
			MaxTokens:      10000,
			CachingAtDepth: -1,
		}

		body := compile(t, c, req)
		assert.Nil(t, body["reasoning"])
	})
}

func TestOpenRouterCompiler_Extras(t *testing.T) {
	topK := 50

	c := NewOpenRouterCompiler()

	req := &prompt.Request{
		Model:           "meta-llama/llama-3.3-70b",
		TopK:            &topK,
		EnableWebSearch: true,
		CachingAtDepth:  -1,
		Messages: []prompt.Message{
			{Role: prompt.RoleUser, Content: prompt.Text("hi")},
		},
	}

	body := compile(t, c, req)

	assert.EqualValues(t, 50, body["top_k"])

	plugins := body["plugins"].([]any)
	require.Len(t, plugins, 1)
	assert.Equal(t, "web", plugins[0].(map[string]any)["id"])
}
