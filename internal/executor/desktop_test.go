package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelink/internal/safety"
	"pixelink/internal/types"
)

// recordingDriver logs every input call as "op:detail".
type recordingDriver struct {
	calls []string
}

func (d *recordingDriver) TypeText(_ context.Context, text string) error {
	d.calls = append(d.calls, "type:"+text)
	return nil
}

func (d *recordingDriver) Click(context.Context) error {
	d.calls = append(d.calls, "click")
	return nil
}

func (d *recordingDriver) RightClick(context.Context) error {
	d.calls = append(d.calls, "right_click")
	return nil
}

func (d *recordingDriver) DoubleClick(context.Context) error {
	d.calls = append(d.calls, "double_click")
	return nil
}

func (d *recordingDriver) Scroll(_ context.Context, direction string, amount int) error {
	d.calls = append(d.calls, fmt.Sprintf("scroll:%s:%d", direction, amount))
	return nil
}

func (d *recordingDriver) PressKey(_ context.Context, key string) error {
	d.calls = append(d.calls, "key:"+key)
	return nil
}

func (d *recordingDriver) Hotkey(_ context.Context, keys []string) error {
	call := "hotkey"
	for _, k := range keys {
		call += ":" + k
	}
	d.calls = append(d.calls, call)
	return nil
}

type fakeMessenger struct {
	app, target, content string
	err                  error
}

func (m *fakeMessenger) Send(_ context.Context, app, target, content string) error {
	m.app, m.target, m.content = app, target, content
	return m.err
}

func newTestBackend(driver InputDriver, messenger Messenger) *DesktopBackend {
	return NewDesktopBackendFor("darwin", driver, messenger, nil)
}

func TestTypeTextRoutesToDriver(t *testing.T) {
	driver := &recordingDriver{}
	b := newTestBackend(driver, nil)

	err := b.Execute(context.Background(), types.NewStep("type_text", map[string]any{"content": "hello"}, ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"type:hello"}, driver.calls)
}

func TestScrollDefaults(t *testing.T) {
	driver := &recordingDriver{}
	b := newTestBackend(driver, nil)

	err := b.Execute(context.Background(), types.NewStep("scroll", nil, ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"scroll:down:3"}, driver.calls)
}

func TestScrollAcceptsJSONNumbers(t *testing.T) {
	driver := &recordingDriver{}
	b := newTestBackend(driver, nil)

	step := types.NewStep("scroll", map[string]any{"direction": "up", "amount": float64(7)}, "")
	require.NoError(t, b.Execute(context.Background(), step))
	assert.Equal(t, []string{"scroll:up:7"}, driver.calls)
}

func TestHotkeyCoercesKeyList(t *testing.T) {
	driver := &recordingDriver{}
	b := newTestBackend(driver, nil)

	// Keys land as []any after a JSON round trip through the bridge.
	step := types.NewStep("hotkey", map[string]any{"keys": []any{"cmd", "c"}}, "")
	require.NoError(t, b.Execute(context.Background(), step))
	assert.Equal(t, []string{"hotkey:cmd:c"}, driver.calls)
}

func TestHotkeyRequiresKeys(t *testing.T) {
	b := newTestBackend(&recordingDriver{}, nil)
	err := b.Execute(context.Background(), types.NewStep("hotkey", nil, ""))
	assert.Error(t, err)
}

func TestSendTextNativeWithoutMessenger(t *testing.T) {
	b := newTestBackend(&recordingDriver{}, nil)

	step := types.NewStep("send_text_native", map[string]any{
		"app": "Messages", "target": "mom", "content": "on my way",
	}, "")
	err := b.Execute(context.Background(), step)
	assert.Error(t, err)
}

func TestSendTextNativeRoutesToMessenger(t *testing.T) {
	m := &fakeMessenger{}
	b := newTestBackend(&recordingDriver{}, m)

	step := types.NewStep("send_text_native", map[string]any{
		"app": "Messages", "target": "mom", "content": "on my way",
	}, "")
	require.NoError(t, b.Execute(context.Background(), step))
	assert.Equal(t, "Messages", m.app)
	assert.Equal(t, "mom", m.target)
	assert.Equal(t, "on my way", m.content)
}

func TestSendTextNativeMessengerError(t *testing.T) {
	m := &fakeMessenger{err: errors.New("bridge down")}
	b := newTestBackend(&recordingDriver{}, m)

	step := types.NewStep("send_text_native", map[string]any{"target": "mom", "content": "hi"}, "")
	assert.Error(t, b.Execute(context.Background(), step))
}

func TestAutofillLoginPressesEnter(t *testing.T) {
	driver := &recordingDriver{}
	b := newTestBackend(driver, nil)

	require.NoError(t, b.Execute(context.Background(), types.NewStep("autofill_login", nil, "")))
	assert.Equal(t, []string{"key:enter"}, driver.calls)
}

func TestMCPActionRejectedByDesktopBackend(t *testing.T) {
	b := newTestBackend(&recordingDriver{}, nil)
	err := b.Execute(context.Background(), types.NewStep("mcp_create_note", map[string]any{"title": "x"}, ""))
	assert.Error(t, err)
}

func TestResolveApp(t *testing.T) {
	assert.Equal(t, "Google Chrome", ResolveApp("chrome"))
	assert.Equal(t, "Google Chrome", ResolveApp("Browser"))
	assert.Equal(t, "Visual Studio Code", ResolveApp("vs code"))
	assert.Equal(t, "Obsidian", ResolveApp("  Obsidian "))
}

func TestValidateAppName(t *testing.T) {
	assert.NoError(t, validateAppName("Google Chrome"))
	assert.NoError(t, validateAppName("iTerm2"))
	assert.Error(t, validateAppName(""))
	assert.Error(t, validateAppName("Safari; rm -rf /"))
	assert.Error(t, validateAppName("app`whoami`"))
	assert.Error(t, validateAppName("a|b"))
}

func TestValidateURL(t *testing.T) {
	assert.NoError(t, validateURL("https://github.com"))
	assert.NoError(t, validateURL("http://localhost:8080/x"))
	assert.Error(t, validateURL("file:///etc/passwd"))
	assert.Error(t, validateURL("javascript:alert(1)"))
	assert.Error(t, validateURL("https://"))
}

func TestKnownAction(t *testing.T) {
	assert.True(t, KnownAction("open_app"))
	assert.True(t, KnownAction("mcp_anything"))
	assert.False(t, KnownAction("levitate"))
	assert.False(t, KnownAction(""))
}

func TestDefaultProfileActionsAreKnown(t *testing.T) {
	for action := range safety.DefaultProfile() {
		assert.True(t, KnownAction(action), "profile allows %q but no handler exists", action)
	}
}

func TestMCPToolName(t *testing.T) {
	assert.Equal(t, "create_note", MCPToolName("mcp_create_note"))
	assert.True(t, IsMCPAction("mcp_list_reminders"))
	assert.False(t, IsMCPAction("open_app"))
}
