package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelink/internal/safety"
	"pixelink/internal/types"
)

type fakeSession struct{ lastApp string }

func (f fakeSession) LastApp() string { return f.lastApp }

func mkIntent(name string, entities map[string]any) types.Intent {
	if entities == nil {
		entities = map[string]any{}
	}
	return types.Intent{Name: name, Entities: entities, Confidence: 0.9}
}

func TestPlan_OpenApp(t *testing.T) {
	p := NewForPlatform(safety.NewGuard(), "darwin")

	plan, err := p.Plan(mkIntent("open_app", map[string]any{"app": "Notes"}), nil)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, "open_app", plan[0].Action)
	assert.Equal(t, "Notes", plan[0].Param("app"))
	assert.False(t, plan[0].RequiresConfirmation)
}

func TestPlan_LastAppResolution(t *testing.T) {
	p := NewForPlatform(safety.NewGuard(), "darwin")

	plan, err := p.Plan(mkIntent("focus_app", map[string]any{"app": "last"}), fakeSession{lastApp: "Terminal"})
	require.NoError(t, err)
	assert.Equal(t, "Terminal", plan[0].Param("app"))

	// No session context: the literal is kept.
	plan, err = p.Plan(mkIntent("focus_app", map[string]any{"app": "previous"}), nil)
	require.NoError(t, err)
	assert.Equal(t, "previous", plan[0].Param("app"))
}

func TestPlan_WebSearches(t *testing.T) {
	p := NewForPlatform(safety.NewGuard(), "linux")

	plan, err := p.Plan(mkIntent("search_web", map[string]any{"query": "go testing"}), nil)
	require.NoError(t, err)
	assert.Equal(t, "open_url", plan[0].Action)
	assert.Equal(t, "https://www.google.com/search?q=go+testing", plan[0].Param("url"))

	plan, err = p.Plan(mkIntent("search_youtube", map[string]any{"query": "lo-fi"}), nil)
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/results?search_query=lo-fi", plan[0].Param("url"))
}

func TestPlan_EmailReply(t *testing.T) {
	t.Run("darwin", func(t *testing.T) {
		p := NewForPlatform(safety.NewGuard(), "darwin")
		plan, err := p.Plan(mkIntent("reply_email", map[string]any{"content": "on it"}), nil)
		require.NoError(t, err)
		require.Len(t, plan, 5)

		assert.Equal(t, "focus_app", plan[0].Action)
		assert.Equal(t, "Mail", plan[0].Param("app"))
		assert.Equal(t, []string{"command", "r"}, plan[2].Params["keys"])
		assert.Equal(t, "on it", plan[3].Param("content"))

		send := plan[4]
		assert.Equal(t, "send_email", send.Action)
		assert.True(t, send.RequiresConfirmation, "email send is confirmation-gated")
		assert.Equal(t, []string{"command", "shift", "d"}, send.Params["keys"])
	})

	t.Run("linux", func(t *testing.T) {
		p := NewForPlatform(safety.NewGuard(), "linux")
		plan, err := p.Plan(mkIntent("reply_email", map[string]any{"content": "on it"}), nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"ctrl", "r"}, plan[2].Params["keys"])
		assert.Equal(t, []string{"ctrl", "enter"}, plan[4].Params["keys"])
	})
}

func TestPlan_SendText(t *testing.T) {
	in := mkIntent("send_text", map[string]any{"target": "john", "content": "see you at 5"})

	t.Run("native on darwin", func(t *testing.T) {
		p := NewForPlatform(safety.NewGuard(), "darwin")
		plan, err := p.Plan(in, nil)
		require.NoError(t, err)
		require.Len(t, plan, 1)
		assert.Equal(t, "send_text_native", plan[0].Action)
		assert.Equal(t, "john", plan[0].Param("target"))
		assert.Equal(t, "see you at 5", plan[0].Param("content"))
	})

	t.Run("workaround elsewhere", func(t *testing.T) {
		p := NewForPlatform(safety.NewGuard(), "windows")
		plan, err := p.Plan(in, nil)
		require.NoError(t, err)
		require.Len(t, plan, 6)

		actions := make([]string, len(plan))
		for i, s := range plan {
			actions[i] = s.Action
		}
		assert.Equal(t, []string{"focus_app", "wait", "type_text", "press_key", "type_text", "press_key"}, actions)
		assert.Equal(t, "john", plan[2].Param("content"))
		assert.Equal(t, "tab", plan[3].Param("key"))
		assert.Equal(t, "see you at 5", plan[4].Param("content"))
	})
}

func TestPlan_Hotkeys(t *testing.T) {
	p := NewForPlatform(safety.NewGuard(), "darwin")

	plan, err := p.Plan(mkIntent("hotkey", map[string]any{"combo": "copy"}), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"command", "c"}, plan[0].Params["keys"])

	pLinux := NewForPlatform(safety.NewGuard(), "linux")
	plan, err = pLinux.Plan(mkIntent("hotkey", map[string]any{"combo": "switch_window"}), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"alt", "tab"}, plan[0].Params["keys"])

	_, err = p.Plan(mkIntent("hotkey", map[string]any{"combo": "launch_missiles"}), nil)
	assert.Error(t, err)
}

func TestPlan_ProductivityRoutesToPlugins(t *testing.T) {
	p := NewForPlatform(safety.NewGuard(), "darwin")

	plan, err := p.Plan(mkIntent("create_reminder", map[string]any{"name": "buy milk"}), nil)
	require.NoError(t, err)
	assert.Equal(t, "mcp_create_reminder", plan[0].Action)
	assert.Equal(t, "buy milk", plan[0].Param("name"))

	plan, err = p.Plan(mkIntent("create_note", map[string]any{"title": "meeting notes", "folder": "work"}), nil)
	require.NoError(t, err)
	assert.Equal(t, "mcp_create_note", plan[0].Action)
	assert.Equal(t, "work", plan[0].Param("folder_name"))
}

func TestPlan_DialogueIntentsPlanNothing(t *testing.T) {
	p := NewForPlatform(safety.NewGuard(), "darwin")

	for _, name := range []string{"confirm", "cancel", "exit", "unknown", "login", "search_file"} {
		plan, err := p.Plan(mkIntent(name, nil), nil)
		require.NoError(t, err, "intent %s", name)
		assert.Empty(t, plan, "intent %s", name)
	}
}

func TestPlan_UnrecognizedIntentErrors(t *testing.T) {
	p := NewForPlatform(safety.NewGuard(), "darwin")
	_, err := p.Plan(mkIntent("self_destruct", nil), nil)
	assert.Error(t, err)
}

func TestPlan_ScrollDefaults(t *testing.T) {
	p := NewForPlatform(safety.NewGuard(), "darwin")
	plan, err := p.Plan(mkIntent("scroll", nil), nil)
	require.NoError(t, err)
	assert.Equal(t, "down", plan[0].Param("direction"))
	assert.Equal(t, 3, plan[0].Params["amount"])
}
