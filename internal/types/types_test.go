package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknown(t *testing.T) {
	i := Unknown("gibberish input")
	assert.Equal(t, IntentUnknown, i.Name)
	assert.Equal(t, 0.0, i.Confidence)
	assert.Equal(t, "gibberish input", i.RawText)
	assert.True(t, i.IsUnknown())
}

func TestIntent_Entity(t *testing.T) {
	i := Intent{
		Name: "open_app",
		Entities: map[string]any{
			"app":    "  Notes ",
			"count":  3,
			"absent": nil,
		},
	}

	assert.Equal(t, "Notes", i.Entity("app"))
	assert.Equal(t, "", i.Entity("count"), "non-string entities read as empty")
	assert.Equal(t, "", i.Entity("absent"))
	assert.Equal(t, "", i.Entity("missing"))
}

func TestIntent_Clone_IsDeep(t *testing.T) {
	orig := Intent{
		Name:       "send_text",
		Entities:   map[string]any{"target": "john"},
		Confidence: 0.9,
	}

	cp := orig.Clone()
	cp.Entities["target"] = "mallory"

	assert.Equal(t, "john", orig.Entities["target"])
}

func TestPlan_Clone_IsDeep(t *testing.T) {
	plan := Plan{
		NewStep("open_app", map[string]any{"app": "Notes"}, "Open app"),
		NewStep("type_text", map[string]any{"content": "hello"}, "Type text"),
	}

	cp := plan.Clone()
	require.Len(t, cp, 2)

	cp[0].Params["app"] = "Mail"
	cp[1].RequiresConfirmation = true

	assert.Equal(t, "Notes", plan[0].Params["app"])
	assert.False(t, plan[1].RequiresConfirmation)
}

func TestNormalizeText(t *testing.T) {
	cases := map[string]string{
		"  open   Notes  ":       "open Notes",
		"\ttype\nhello  world\t": "type hello world",
		"":                       "",
		"   ":                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeText(in))
	}
}
