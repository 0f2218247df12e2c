package nlu

import "pixelink/internal/types"

// requiredEntities is the static table of entity keys that must be non-empty
// for an intent to be considered complete. It drives both the fallback
// trigger decision and clarification-prompt generation.
var requiredEntities = map[string][]string{
	"open_app":        {"app"},
	"focus_app":       {"app"},
	"close_app":       {"app"},
	"open_website":    {"url"},
	"search_web":      {"query"},
	"search_youtube":  {"query"},
	"search_file":     {"query"},
	"browse":          {"query"},
	"open_file":       {"path"},
	"type_text":       {"content"},
	"press_key":       {"key"},
	"login":           {"service"},
	"send_text":       {"target", "content"},
	"reply_email":     {"content"},
	"create_reminder": {"name"},
	"create_note":     {"title"},
	"create_event":    {"summary"},
}

// MissingEntities returns the required entity keys that are absent or empty
// on the intent. A nil result means the intent is complete.
func MissingEntities(in types.Intent) []string {
	required, ok := requiredEntities[in.Name]
	if !ok {
		return nil
	}
	var missing []string
	for _, key := range required {
		if in.Entity(key) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

// RequiredEntities returns the required keys for an intent name, nil when
// the intent has no required entities.
func RequiredEntities(name string) []string {
	return requiredEntities[name]
}
