package planner

// Platform-sensitive key combos are resolved through these lookup tables so
// planning logic stays platform-agnostic. Keys follow the executor's hotkey
// vocabulary ("command", "ctrl", "shift", ...).

func replyHotkey(platform string) []string {
	if platform == "darwin" {
		return []string{"command", "r"}
	}
	return []string{"ctrl", "r"}
}

func sendEmailHotkey(platform string) []string {
	if platform == "darwin" {
		return []string{"command", "shift", "d"}
	}
	return []string{"ctrl", "enter"}
}

func clipboardHotkey(platform, combo string) []string {
	mod := "ctrl"
	if platform == "darwin" {
		mod = "command"
	}
	switch combo {
	case "copy":
		return []string{mod, "c"}
	case "paste":
		return []string{mod, "v"}
	case "select_all":
		return []string{mod, "a"}
	case "new_tab":
		return []string{mod, "t"}
	case "close_tab":
		return []string{mod, "w"}
	case "switch_window":
		if platform == "darwin" {
			return []string{"command", "tab"}
		}
		return []string{"alt", "tab"}
	default:
		return nil
	}
}

// messagingApp is the default app targeted by send_text plans.
const messagingApp = "Messages"

// hasNativeMessaging reports whether the platform can send a text message
// through a native messaging bridge. Elsewhere the planner synthesizes a
// keyboard-driven workaround.
func hasNativeMessaging(platform string) bool {
	return platform == "darwin"
}
