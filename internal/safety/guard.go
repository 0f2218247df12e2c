// Package safety validates candidate plans against the permission profile
// and owns the cooperative kill switch.
package safety

import (
	"fmt"
	"sync"

	"pixelink/internal/types"
)

// blockedActions is the permanent deny-list. It cannot be overridden by any
// permission profile.
var blockedActions = map[string]struct{}{
	"delete_file":     {},
	"shutdown_system": {},
	"format_drive":    {},
}

// confirmActions are the only actions gated behind an explicit user
// confirmation before they run.
var confirmActions = map[string]struct{}{
	"send_email":     {},
	"reply_email":    {},
	"autofill_login": {},
}

// DefaultProfile returns the built-in allow-list with every supported action
// enabled.
func DefaultProfile() map[string]bool {
	actions := []string{
		"open_app", "focus_app", "close_app",
		"open_url", "open_file",
		"type_text", "send_text_native",
		"click", "right_click", "double_click", "scroll",
		"press_key", "hotkey",
		"send_email",
		"wait",
		"autofill_login",
		"mcp_create_reminder", "mcp_create_note",
		"mcp_list_reminders", "mcp_list_notes",
		"mcp_get_events", "mcp_create_event",
	}
	profile := make(map[string]bool, len(actions))
	for _, a := range actions {
		profile[a] = true
	}
	return profile
}

// Guard validates whole plans against the active allow-list. Validation is
// all-or-nothing: one disallowed step rejects the entire plan. The allow-list
// is replaceable at runtime; reads happen on the execution path so access is
// RWMutex-guarded.
type Guard struct {
	mu      sync.RWMutex
	allowed map[string]struct{}
}

// NewGuard creates a guard with the default allow-list.
func NewGuard() *Guard {
	g := &Guard{}
	g.SetAllowedActions(DefaultProfile())
	return g
}

// SetAllowedActions replaces the allow-list with the actions explicitly
// enabled in the profile. A nil or empty profile, or one enabling nothing,
// leaves the previous allow-list unchanged.
func (g *Guard) SetAllowedActions(profile map[string]bool) {
	enabled := make(map[string]struct{})
	for name, on := range profile {
		if on {
			enabled[name] = struct{}{}
		}
	}
	if len(enabled) == 0 {
		return
	}
	g.mu.Lock()
	g.allowed = enabled
	g.mu.Unlock()
}

// ValidatePlan walks the entire plan before any step runs. A deny-listed
// action rejects the plan immediately; otherwise every action must be in the
// active allow-list.
func (g *Guard) ValidatePlan(plan types.Plan) types.SafetyResult {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, step := range plan {
		if _, blocked := blockedActions[step.Action]; blocked {
			return types.SafetyResult{
				Allowed: false,
				Reason:  fmt.Sprintf("Blocked unsafe action: %s", step.Action),
			}
		}
		if _, ok := g.allowed[step.Action]; !ok {
			return types.SafetyResult{
				Allowed: false,
				Reason:  fmt.Sprintf("Action not permitted by current safety profile: %s", step.Action),
			}
		}
	}
	return types.SafetyResult{Allowed: true}
}

// RequiresConfirmation reports whether the action is confirmation-gated.
func (g *Guard) RequiresConfirmation(action string) bool {
	_, ok := confirmActions[action]
	return ok
}
