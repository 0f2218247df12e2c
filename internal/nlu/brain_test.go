package nlu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeIntentJSON(t *testing.T) {
	t.Run("plain JSON", func(t *testing.T) {
		in, err := decodeIntentJSON(`{"intent":"open_app","entities":{"app":"Safari"},"confidence":0.95}`, "open safari")
		require.NoError(t, err)
		assert.Equal(t, "open_app", in.Name)
		assert.Equal(t, "Safari", in.Entity("app"))
		assert.Equal(t, 0.95, in.Confidence)
		assert.Equal(t, "open safari", in.RawText)
	})

	t.Run("fenced JSON", func(t *testing.T) {
		payload := "```json\n{\"intent\":\"search_web\",\"entities\":{\"query\":\"weather\"},\"confidence\":0.9}\n```"
		in, err := decodeIntentJSON(payload, "look up weather")
		require.NoError(t, err)
		assert.Equal(t, "search_web", in.Name)
		assert.Equal(t, "weather", in.Entity("query"))
	})

	t.Run("confidence clamped to [0,1]", func(t *testing.T) {
		in, err := decodeIntentJSON(`{"intent":"open_app","entities":{},"confidence":1.7}`, "x")
		require.NoError(t, err)
		assert.Equal(t, 1.0, in.Confidence)

		in, err = decodeIntentJSON(`{"intent":"open_app","entities":{},"confidence":-0.2}`, "x")
		require.NoError(t, err)
		assert.Equal(t, 0.0, in.Confidence)
	})

	t.Run("missing fields default safely", func(t *testing.T) {
		in, err := decodeIntentJSON(`{}`, "x")
		require.NoError(t, err)
		assert.True(t, in.IsUnknown())
		assert.NotNil(t, in.Entities)
	})

	t.Run("invalid JSON errors", func(t *testing.T) {
		_, err := decodeIntentJSON("I think the user wants to open Safari", "x")
		assert.Error(t, err)
	})
}

func TestMissingEntities(t *testing.T) {
	in := intent("send_text", map[string]any{"target": "john"}, 0.9, "text john")
	assert.Equal(t, []string{"content"}, MissingEntities(in))

	in = intent("send_text", map[string]any{"target": "john", "content": "hi"}, 0.9, "")
	assert.Nil(t, MissingEntities(in))

	in = intent("confirm", nil, 1.0, "yes")
	assert.Nil(t, MissingEntities(in), "intents without required entities are always complete")

	in = intent("open_app", map[string]any{"app": "   "}, 0.8, "")
	assert.Equal(t, []string{"app"}, MissingEntities(in), "whitespace-only entity counts as missing")
}
