// Package planner maps resolved intents onto ordered plans of executor
// steps. Planning is a pure function of the intent and session context;
// platform divergence is isolated in small lookup functions.
package planner

import (
	"fmt"
	"net/url"
	"runtime"

	"pixelink/internal/types"
)

// ConfirmPolicy reports which actions are confirmation-gated. The safety
// guard satisfies it.
type ConfirmPolicy interface {
	RequiresConfirmation(action string) bool
}

// SessionInfo is the slice of session state planning needs.
type SessionInfo interface {
	LastApp() string
}

// Planner builds plans from intents.
type Planner struct {
	policy   ConfirmPolicy
	platform string
}

// New creates a planner for the host platform.
func New(policy ConfirmPolicy) *Planner {
	return NewForPlatform(policy, runtime.GOOS)
}

// NewForPlatform creates a planner for an explicit platform. Used by tests
// to pin behavior.
func NewForPlatform(policy ConfirmPolicy, platform string) *Planner {
	return &Planner{policy: policy, platform: platform}
}

// Plan dispatches on the intent name and returns the ordered steps. Dialogue
// intents (confirm, cancel, exit, unknown) plan no steps; the orchestrator
// handles them directly.
func (p *Planner) Plan(in types.Intent, sess SessionInfo) (types.Plan, error) {
	switch in.Name {
	case "open_app":
		return types.Plan{types.NewStep("open_app", map[string]any{"app": p.resolveApp(in.Entity("app"), sess)}, "Open app")}, nil

	case "focus_app":
		return types.Plan{types.NewStep("focus_app", map[string]any{"app": p.resolveApp(in.Entity("app"), sess)}, "Focus app")}, nil

	case "close_app":
		return types.Plan{types.NewStep("close_app", map[string]any{"app": p.resolveApp(in.Entity("app"), sess)}, "Close app")}, nil

	case "open_website":
		return types.Plan{types.NewStep("open_url", map[string]any{"url": in.Entity("url")}, "Open website")}, nil

	case "search_web", "browse":
		query := in.Entity("query")
		u := "https://www.google.com/search?q=" + url.QueryEscape(query)
		return types.Plan{types.NewStep("open_url", map[string]any{"url": u}, "Search the web")}, nil

	case "search_youtube":
		query := in.Entity("query")
		u := "https://www.youtube.com/results?search_query=" + url.QueryEscape(query)
		return types.Plan{types.NewStep("open_url", map[string]any{"url": u}, "Search YouTube")}, nil

	case "open_file":
		return types.Plan{types.NewStep("open_file", map[string]any{"path": in.Entity("path")}, "Open file")}, nil

	case "type_text":
		return types.Plan{types.NewStep("type_text", map[string]any{"content": in.Entity("content")}, "Type text")}, nil

	case "click":
		return types.Plan{types.NewStep("click", map[string]any{"target": in.Entity("target")}, "Click")}, nil

	case "right_click":
		return types.Plan{types.NewStep("right_click", map[string]any{"target": in.Entity("target")}, "Right click")}, nil

	case "double_click":
		return types.Plan{types.NewStep("double_click", map[string]any{"target": in.Entity("target")}, "Double click")}, nil

	case "scroll":
		amount, _ := in.Entities["amount"].(int)
		if amount == 0 {
			amount = 3
		}
		direction := in.Entity("direction")
		if direction == "" {
			direction = "down"
		}
		return types.Plan{types.NewStep("scroll", map[string]any{"direction": direction, "amount": amount}, "Scroll")}, nil

	case "press_key":
		return types.Plan{types.NewStep("press_key", map[string]any{"key": in.Entity("key")}, "Press key")}, nil

	case "hotkey":
		keys := clipboardHotkey(p.platform, in.Entity("combo"))
		if keys == nil {
			return nil, fmt.Errorf("unsupported hotkey combo: %q", in.Entity("combo"))
		}
		return types.Plan{types.NewStep("hotkey", map[string]any{"keys": keys}, "Press hotkey")}, nil

	case "send_text":
		return p.planSendText(in), nil

	case "reply_email":
		return p.planEmailReply(in), nil

	case "create_reminder":
		return types.Plan{types.NewStep("mcp_create_reminder", map[string]any{"name": in.Entity("name")}, "Create reminder")}, nil

	case "create_note":
		params := map[string]any{"title": in.Entity("title")}
		if folder := in.Entity("folder"); folder != "" {
			params["folder_name"] = folder
		}
		return types.Plan{types.NewStep("mcp_create_note", params, "Create note")}, nil

	case "list_reminders":
		return types.Plan{types.NewStep("mcp_list_reminders", nil, "List reminders")}, nil

	case "list_notes":
		return types.Plan{types.NewStep("mcp_list_notes", nil, "List notes")}, nil

	case "get_events":
		return types.Plan{types.NewStep("mcp_get_events", nil, "List calendar events")}, nil

	case "create_event":
		params := map[string]any{"summary": in.Entity("summary")}
		if when := in.Entity("when"); when != "" {
			params["when"] = when
		}
		return types.Plan{types.NewStep("mcp_create_event", params, "Create calendar event")}, nil

	case "confirm", "cancel", "exit", types.IntentUnknown, "login", "search_file":
		// Dialogue control, no-op here, or handled by the orchestrator.
		return nil, nil
	}

	return nil, fmt.Errorf("no plan for intent: %s", in.Name)
}

// planSendText builds a native send on platforms with a messaging bridge,
// and a keyboard-driven workaround elsewhere: focus the messaging app, wait
// for it, address the recipient, move to the body, type, send.
func (p *Planner) planSendText(in types.Intent) types.Plan {
	target := in.Entity("target")
	content := in.Entity("content")
	app := in.Entity("app")
	if app == "" {
		app = messagingApp
	}

	if hasNativeMessaging(p.platform) {
		return types.Plan{
			types.NewStep("send_text_native", map[string]any{
				"target":  target,
				"content": content,
				"app":     app,
			}, fmt.Sprintf("Send message to %s", target)),
		}
	}

	return types.Plan{
		types.NewStep("focus_app", map[string]any{"app": app}, "Focus messaging app"),
		types.NewStep("wait", map[string]any{"seconds": 1.0}, "Wait for app"),
		types.NewStep("type_text", map[string]any{"content": target}, "Type recipient"),
		types.NewStep("press_key", map[string]any{"key": "tab"}, "Move to message field"),
		types.NewStep("type_text", map[string]any{"content": content}, "Type message"),
		types.NewStep("press_key", map[string]any{"key": "enter"}, "Send message"),
	}
}

// planEmailReply opens the reply composer in the mail app, types the reply,
// and sends it. The send step is confirmation-gated by policy.
func (p *Planner) planEmailReply(in types.Intent) types.Plan {
	app := in.Entity("app")
	if app == "" {
		app = "Mail"
	}
	sendStep := types.NewStep("send_email", map[string]any{"keys": sendEmailHotkey(p.platform)}, "Send email")
	sendStep.RequiresConfirmation = p.policy.RequiresConfirmation("send_email")

	return types.Plan{
		types.NewStep("focus_app", map[string]any{"app": app}, "Focus email app"),
		types.NewStep("wait", map[string]any{"seconds": 1.0}, "Wait for app"),
		types.NewStep("hotkey", map[string]any{"keys": replyHotkey(p.platform)}, "Open reply"),
		types.NewStep("type_text", map[string]any{"content": in.Entity("content")}, "Type reply"),
		sendStep,
	}
}

// resolveApp maps the literal "last"/"previous" to the session's last app.
func (p *Planner) resolveApp(app string, sess SessionInfo) string {
	if (app == "last" || app == "previous") && sess != nil && sess.LastApp() != "" {
		return sess.LastApp()
	}
	return app
}
