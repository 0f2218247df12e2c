package executor

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	"pixelink/internal/types"
)

// InputDriver abstracts synthetic keyboard and mouse input. Production wires
// a platform driver; tests inject a recorder.
type InputDriver interface {
	TypeText(ctx context.Context, text string) error
	Click(ctx context.Context) error
	RightClick(ctx context.Context) error
	DoubleClick(ctx context.Context) error
	Scroll(ctx context.Context, direction string, amount int) error
	PressKey(ctx context.Context, key string) error
	Hotkey(ctx context.Context, keys []string) error
}

// Messenger sends a message through a native messaging bridge, where the
// platform has one. Backends without a messenger reject send_text_native.
type Messenger interface {
	Send(ctx context.Context, app, target, content string) error
}

// appAliases maps spoken app names to their launchable names.
var appAliases = map[string]string{
	"chrome":   "Google Chrome",
	"browser":  "Google Chrome",
	"code":     "Visual Studio Code",
	"vscode":   "Visual Studio Code",
	"vs code":  "Visual Studio Code",
	"terminal": "Terminal",
	"finder":   "Finder",
	"mail":     "Mail",
	"email":    "Mail",
	"notes":    "Notes",
	"messages": "Messages",
	"slack":    "Slack",
	"spotify":  "Spotify",
	"safari":   "Safari",
	"firefox":  "Firefox",
}

// desktopHandlers is the dispatch table for the closed action vocabulary.
// Built once at package init; an action absent here and without the mcp_
// prefix is rejected before dispatch.
var desktopHandlers map[string]handler

func init() {
	desktopHandlers = map[string]handler{
		ActionOpenApp:        (*DesktopBackend).openApp,
		ActionFocusApp:       (*DesktopBackend).focusApp,
		ActionCloseApp:       (*DesktopBackend).closeApp,
		ActionOpenURL:        (*DesktopBackend).openURL,
		ActionOpenFile:       (*DesktopBackend).openFile,
		ActionTypeText:       (*DesktopBackend).typeText,
		ActionSendTextNative: (*DesktopBackend).sendTextNative,
		ActionClick:          (*DesktopBackend).click,
		ActionRightClick:     (*DesktopBackend).rightClick,
		ActionDoubleClick:    (*DesktopBackend).doubleClick,
		ActionScroll:         (*DesktopBackend).scroll,
		ActionPressKey:       (*DesktopBackend).pressKey,
		ActionHotkey:         (*DesktopBackend).hotkey,
		ActionSendEmail:      (*DesktopBackend).sendEmail,
		ActionWait:           (*DesktopBackend).wait,
		ActionAutofillLogin:  (*DesktopBackend).autofillLogin,
	}
}

// DesktopBackend maps the action vocabulary onto the host OS. App lifecycle
// goes through the platform launcher commands; pointer and keyboard actions
// go through the injected InputDriver.
type DesktopBackend struct {
	driver    InputDriver
	messenger Messenger
	platform  string
	logger    *zap.Logger
}

// NewDesktopBackend builds a backend for the current OS.
func NewDesktopBackend(driver InputDriver, messenger Messenger, logger *zap.Logger) *DesktopBackend {
	return NewDesktopBackendFor(runtime.GOOS, driver, messenger, logger)
}

// NewDesktopBackendFor pins the platform, used by tests.
func NewDesktopBackendFor(platform string, driver InputDriver, messenger Messenger, logger *zap.Logger) *DesktopBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DesktopBackend{
		driver:    driver,
		messenger: messenger,
		platform:  platform,
		logger:    logger,
	}
}

// Execute dispatches one step through the handler table.
func (b *DesktopBackend) Execute(ctx context.Context, step types.ActionStep) error {
	h, ok := desktopHandlers[step.Action]
	if !ok {
		if IsMCPAction(step.Action) {
			return fmt.Errorf("plugin action %q routed to desktop backend", step.Action)
		}
		return fmt.Errorf("unknown action %q", step.Action)
	}
	b.logger.Debug("dispatching step",
		zap.String("action", step.Action),
		zap.String("description", step.Description))
	return h(ctx, b, step)
}

// ResolveApp canonicalizes a spoken app name through the alias table.
func ResolveApp(name string) string {
	if canonical, ok := appAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return canonical
	}
	return strings.TrimSpace(name)
}

// validateAppName rejects names that could smuggle shell syntax into a
// launcher command.
func validateAppName(name string) error {
	if name == "" {
		return fmt.Errorf("empty app name")
	}
	if strings.ContainsAny(name, ";|&$`<>\"'\\\n") {
		return fmt.Errorf("invalid characters in app name %q", name)
	}
	return nil
}

// validateURL accepts only absolute http(s) URLs.
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}

func (b *DesktopBackend) openApp(ctx context.Context, step types.ActionStep) error {
	app := ResolveApp(step.Param("app"))
	if err := validateAppName(app); err != nil {
		return err
	}
	switch b.platform {
	case "darwin":
		return exec.CommandContext(ctx, "open", "-a", app).Run()
	case "windows":
		return exec.CommandContext(ctx, "cmd", "/c", "start", "", app).Run()
	default:
		return exec.CommandContext(ctx, strings.ToLower(app)).Start()
	}
}

func (b *DesktopBackend) focusApp(ctx context.Context, step types.ActionStep) error {
	app := ResolveApp(step.Param("app"))
	if err := validateAppName(app); err != nil {
		return err
	}
	switch b.platform {
	case "darwin":
		script := fmt.Sprintf("tell application %q to activate", app)
		return exec.CommandContext(ctx, "osascript", "-e", script).Run()
	case "windows":
		return exec.CommandContext(ctx, "cmd", "/c", "start", "", app).Run()
	default:
		return exec.CommandContext(ctx, "wmctrl", "-a", app).Run()
	}
}

func (b *DesktopBackend) closeApp(ctx context.Context, step types.ActionStep) error {
	app := ResolveApp(step.Param("app"))
	if err := validateAppName(app); err != nil {
		return err
	}
	switch b.platform {
	case "darwin":
		script := fmt.Sprintf("tell application %q to quit", app)
		return exec.CommandContext(ctx, "osascript", "-e", script).Run()
	case "windows":
		return exec.CommandContext(ctx, "taskkill", "/IM", app+".exe").Run()
	default:
		return exec.CommandContext(ctx, "pkill", "-x", strings.ToLower(app)).Run()
	}
}

func (b *DesktopBackend) openURL(ctx context.Context, step types.ActionStep) error {
	raw := step.Param("url")
	if err := validateURL(raw); err != nil {
		return err
	}
	switch b.platform {
	case "darwin":
		return exec.CommandContext(ctx, "open", raw).Run()
	case "windows":
		return exec.CommandContext(ctx, "cmd", "/c", "start", "", raw).Run()
	default:
		return exec.CommandContext(ctx, "xdg-open", raw).Run()
	}
}

func (b *DesktopBackend) openFile(ctx context.Context, step types.ActionStep) error {
	path := step.Param("path")
	if path == "" {
		return fmt.Errorf("open_file requires a path")
	}
	switch b.platform {
	case "darwin":
		return exec.CommandContext(ctx, "open", path).Run()
	case "windows":
		return exec.CommandContext(ctx, "cmd", "/c", "start", "", path).Run()
	default:
		return exec.CommandContext(ctx, "xdg-open", path).Run()
	}
}

func (b *DesktopBackend) typeText(ctx context.Context, step types.ActionStep) error {
	return b.driver.TypeText(ctx, step.Param("content"))
}

func (b *DesktopBackend) sendTextNative(ctx context.Context, step types.ActionStep) error {
	if b.messenger == nil {
		return fmt.Errorf("native messaging unavailable on %s", b.platform)
	}
	return b.messenger.Send(ctx, step.Param("app"), step.Param("target"), step.Param("content"))
}

func (b *DesktopBackend) click(ctx context.Context, _ types.ActionStep) error {
	return b.driver.Click(ctx)
}

func (b *DesktopBackend) rightClick(ctx context.Context, _ types.ActionStep) error {
	return b.driver.RightClick(ctx)
}

func (b *DesktopBackend) doubleClick(ctx context.Context, _ types.ActionStep) error {
	return b.driver.DoubleClick(ctx)
}

func (b *DesktopBackend) scroll(ctx context.Context, step types.ActionStep) error {
	amount := intParam(step.Params["amount"], 3)
	direction := step.Param("direction")
	if direction == "" {
		direction = "down"
	}
	return b.driver.Scroll(ctx, direction, amount)
}

func (b *DesktopBackend) pressKey(ctx context.Context, step types.ActionStep) error {
	key := step.Param("key")
	if key == "" {
		return fmt.Errorf("press_key requires a key")
	}
	return b.driver.PressKey(ctx, key)
}

func (b *DesktopBackend) hotkey(ctx context.Context, step types.ActionStep) error {
	keys := stringSlice(step.Params["keys"])
	if len(keys) == 0 {
		return fmt.Errorf("hotkey requires keys")
	}
	return b.driver.Hotkey(ctx, keys)
}

// sendEmail presses the mail client's send shortcut. The confirmation gate
// was already consumed by the engine before this runs.
func (b *DesktopBackend) sendEmail(ctx context.Context, step types.ActionStep) error {
	keys := stringSlice(step.Params["keys"])
	if len(keys) == 0 {
		return fmt.Errorf("send_email requires keys")
	}
	return b.driver.Hotkey(ctx, keys)
}

func (b *DesktopBackend) wait(ctx context.Context, step types.ActionStep) error {
	seconds := floatParam(step.Params["seconds"], 1.0)
	if !sleepCtx(ctx, time.Duration(seconds*float64(time.Second))) {
		return ctx.Err()
	}
	return nil
}

// autofillLogin submits credentials already typed into the focused form.
func (b *DesktopBackend) autofillLogin(ctx context.Context, _ types.ActionStep) error {
	return b.driver.PressKey(ctx, "enter")
}

// stringSlice coerces a params value into []string. Values arrive either as
// []string from the planner or []any after a JSON round trip.
func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func intParam(v any, fallback int) int {
	switch vv := v.(type) {
	case int:
		return vv
	case float64:
		return int(vv)
	}
	return fallback
}

func floatParam(v any, fallback float64) float64 {
	switch vv := v.(type) {
	case float64:
		return vv
	case int:
		return float64(vv)
	}
	return fallback
}
