// Package executor runs validated plans step by step, consulting the kill
// switch and per-step confirmation flags between steps.
package executor

import (
	"context"
	"strings"

	"pixelink/internal/types"
)

// The closed action vocabulary. An action name outside this set (or the
// mcp_ passthrough class) is a hard error before dispatch.
const (
	ActionOpenApp        = "open_app"
	ActionFocusApp       = "focus_app"
	ActionCloseApp       = "close_app"
	ActionOpenURL        = "open_url"
	ActionOpenFile       = "open_file"
	ActionTypeText       = "type_text"
	ActionSendTextNative = "send_text_native"
	ActionClick          = "click"
	ActionRightClick     = "right_click"
	ActionDoubleClick    = "double_click"
	ActionScroll         = "scroll"
	ActionPressKey       = "press_key"
	ActionHotkey         = "hotkey"
	ActionSendEmail      = "send_email"
	ActionWait           = "wait"
	ActionAutofillLogin  = "autofill_login"

	// MCPPrefix marks plugin-backed passthrough actions: mcp_<tool_name>
	// invoked with the step params as tool arguments.
	MCPPrefix = "mcp_"
)

// Backend dispatches one primitive action. Implementations map the closed
// vocabulary onto the host OS; the engine never bypasses it.
type Backend interface {
	Execute(ctx context.Context, step types.ActionStep) error
}

// handler runs one action against a DesktopBackend.
type handler func(ctx context.Context, b *DesktopBackend, step types.ActionStep) error

// KnownAction reports whether the name is inside the closed vocabulary.
func KnownAction(name string) bool {
	if strings.HasPrefix(name, MCPPrefix) {
		return true
	}
	_, ok := desktopHandlers[name]
	return ok
}

// IsMCPAction reports whether the step routes through the plugin registry.
func IsMCPAction(name string) bool {
	return strings.HasPrefix(name, MCPPrefix)
}

// MCPToolName strips the passthrough prefix: "mcp_create_note" -> "create_note".
func MCPToolName(action string) string {
	return strings.TrimPrefix(action, MCPPrefix)
}
