// Package nlu turns free-form utterances into structured intents. It layers
// three pieces: a deterministic rule cascade (RuleParser), a bounded LLM
// fallback (Brain), and an LRU+TTL result cache, composed by HybridRouter.
package nlu

import (
	"regexp"
	"strings"

	"pixelink/internal/types"
)

// Context is the slice of session state the parser can consult. The session
// package satisfies it; tests use small fakes.
type Context interface {
	LastIntent() string
	LastApp() string
}

// Entity keys used by the clarification sub-flow.
const (
	EntityRequiresClarification = "requires_clarification"
	EntityClarificationPrompt   = "clarification_prompt"
	EntityClarificationType     = "clarification_type"
)

// Clarification type tags.
const (
	ClarifySendTextTarget  = "send_text_target"
	ClarifySendTextContent = "send_text_content"
)

// RuleParser is a fixed-priority cascade of pattern checks, most specific
// first. The first matching rule wins; there is no backtracking. Confidence
// values are fixed per rule, calibrated by how syntactically unambiguous the
// rule is.
type RuleParser struct{}

// NewRuleParser returns the deterministic rule parser.
func NewRuleParser() *RuleParser {
	return &RuleParser{}
}

var (
	confirmWords = wordSet("yes", "confirm", "ok", "okay", "sure", "yep", "yeah")
	cancelWords  = wordSet("no", "cancel", "stop", "abort", "nevermind")
	exitWords    = wordSet("bye", "goodbye", "exit", "quit")

	// Politeness padding allowed alongside dialogue words ("yes please").
	dialogueFillerWords = wordSet("please", "thanks", "thank", "you", "now", "it", "that")

	domainRE       = regexp.MustCompile(`\b([a-z0-9][a-z0-9-]*(?:\.[a-z0-9][a-z0-9-]*)+)(/\S*)?\b`)
	digitsRE       = regexp.MustCompile(`\b(\d+)\b`)
	wordRE         = regexp.MustCompile(`\b\w+\b`)
	trailingPunctRE = regexp.MustCompile(`[?.!,;:]+$`)
)

// Parse maps normalized text to an intent. Matching is case-insensitive and
// whitespace-insensitive; a miss returns the canonical unknown intent with
// confidence 0.
func (p *RuleParser) Parse(text string, ctx Context) types.Intent {
	normalized := types.NormalizeText(text)
	if normalized == "" {
		return types.Unknown("")
	}
	lowered := strings.ToLower(normalized)
	words := textWords(lowered)

	// Literal dialogue utterances first: every word must be a dialogue
	// word or an accompanying filler, so "ok" inside "open ok cupid" or
	// "quit" inside "quit chrome" never reads as bare dialogue.
	if len(words) <= 3 {
		switch {
		case intersects(words, confirmWords) && subsetOf(words, confirmWords, dialogueFillerWords):
			return intent("confirm", nil, 1.0, normalized)
		case intersects(words, cancelWords) && subsetOf(words, cancelWords, dialogueFillerWords):
			return intent("cancel", nil, 1.0, normalized)
		case intersects(words, exitWords) && subsetOf(words, exitWords, dialogueFillerWords):
			return intent("exit", nil, 1.0, normalized)
		}
	}
	if lowered == "never mind" {
		return intent("cancel", nil, 1.0, normalized)
	}

	// Narrow multi-word phrases before single-keyword rules.
	if in := p.parseEmailReply(lowered, normalized); in != nil {
		return *in
	}
	if in := p.parseMessaging(lowered, normalized); in != nil {
		return *in
	}
	if in := p.parseProductivity(lowered, normalized); in != nil {
		return *in
	}
	if in := p.parseFileSearch(lowered, normalized); in != nil {
		return *in
	}
	if in := p.parseLogin(lowered, normalized); in != nil {
		return *in
	}
	if in := p.parseWebSearch(lowered, normalized); in != nil {
		return *in
	}
	if in := p.parseWebsite(lowered, normalized); in != nil {
		return *in
	}
	if in := p.parseHotkeyPhrases(lowered, normalized); in != nil {
		return *in
	}
	if in := p.parseScroll(lowered, normalized); in != nil {
		return *in
	}
	if in := p.parseClicks(lowered, normalized); in != nil {
		return *in
	}
	if in := p.parseKeyPress(lowered, normalized); in != nil {
		return *in
	}
	if in := p.parseAppLifecycle(lowered, normalized, ctx); in != nil {
		return *in
	}
	if in := p.parseTyping(lowered, normalized); in != nil {
		return *in
	}

	return types.Unknown(normalized)
}

// parseEmailReply handles "reply email saying ..." and close variants.
func (p *RuleParser) parseEmailReply(lowered, raw string) *types.Intent {
	for _, anchor := range []string{"reply email saying", "reply to email saying", "reply to the email saying", "reply saying"} {
		if rest, ok := cutAnchor(lowered, anchor); ok {
			in := intent("reply_email", map[string]any{"content": trimEntity(rest), "app": "Mail"}, 0.95, raw)
			return &in
		}
	}
	if strings.HasPrefix(lowered, "reply email") || strings.HasPrefix(lowered, "reply to email") {
		in := intent("reply_email", map[string]any{
			"content":                   "",
			"app":                       "Mail",
			EntityRequiresClarification: true,
			EntityClarificationType:     "reply_email_content",
			EntityClarificationPrompt:   "What should the reply say?",
		}, 0.9, raw)
		return &in
	}
	return nil
}

// parseMessaging handles "text NAME saying CONTENT", "message NAME", and the
// under-specified forms that produce clarification intents.
func (p *RuleParser) parseMessaging(lowered, raw string) *types.Intent {
	prefixes := []string{"send a text to", "send a message to", "send text to", "send message to", "text", "message"}

	var rest string
	matched := false
	for _, prefix := range prefixes {
		if r, ok := cutAnchor(lowered, prefix); ok {
			rest = r
			matched = true
			break
		}
	}
	if !matched {
		// "send a message" with no recipient at all.
		if lowered == "send a message" || lowered == "send a text" || lowered == "send message" {
			in := intent("send_text", map[string]any{
				"target":                    "",
				"content":                   "",
				"app":                       "Messages",
				EntityRequiresClarification: true,
				EntityClarificationType:     ClarifySendTextTarget,
				EntityClarificationPrompt:   "Who should receive this message?",
			}, 0.85, raw)
			return &in
		}
		return nil
	}
	if rest == "" {
		in := intent("send_text", map[string]any{
			"target":                    "",
			"content":                   "",
			"app":                       "Messages",
			EntityRequiresClarification: true,
			EntityClarificationType:     ClarifySendTextTarget,
			EntityClarificationPrompt:   "Who should receive this message?",
		}, 0.85, raw)
		return &in
	}

	target, content := rest, ""
	for _, sep := range []string{" saying ", " that says ", " telling them ", ": "} {
		if i := strings.Index(rest, sep); i >= 0 {
			target = strings.TrimSpace(rest[:i])
			content = strings.TrimSpace(rest[i+len(sep):])
			break
		}
	}

	entities := map[string]any{
		"target":  trimEntity(target),
		"content": trimEntity(content),
		"app":     "Messages",
	}
	if content == "" {
		entities[EntityRequiresClarification] = true
		entities[EntityClarificationType] = ClarifySendTextContent
		entities[EntityClarificationPrompt] = "What message should I send to " + trimEntity(target) + "?"
		in := intent("send_text", entities, 0.85, raw)
		return &in
	}
	in := intent("send_text", entities, 0.9, raw)
	return &in
}

// parseProductivity handles reminder, note, and calendar phrases that route
// to plugin-backed actions.
func (p *RuleParser) parseProductivity(lowered, raw string) *types.Intent {
	for _, anchor := range []string{"create reminder", "add reminder", "remind me to"} {
		if rest, ok := cutAnchor(lowered, anchor); ok && rest != "" {
			in := intent("create_reminder", map[string]any{"name": trimEntity(rest)}, 0.9, raw)
			return &in
		}
	}
	for _, anchor := range []string{"create note", "add note", "make a note"} {
		if rest, ok := cutAnchor(lowered, anchor); ok && rest != "" {
			title, folder := rest, ""
			if i := strings.LastIndex(rest, " in "); i >= 0 {
				title = strings.TrimSpace(rest[:i])
				folder = strings.TrimSpace(rest[i+4:])
			}
			entities := map[string]any{"title": trimEntity(title)}
			if folder != "" {
				entities["folder"] = trimEntity(folder)
			}
			in := intent("create_note", entities, 0.9, raw)
			return &in
		}
	}
	switch {
	case strings.HasPrefix(lowered, "list reminders"), lowered == "show my reminders", lowered == "what are my reminders":
		in := intent("list_reminders", nil, 0.9, raw)
		return &in
	case strings.HasPrefix(lowered, "list notes"), lowered == "show my notes":
		in := intent("list_notes", nil, 0.9, raw)
		return &in
	case lowered == "what's on my calendar", lowered == "whats on my calendar", strings.HasPrefix(lowered, "list events"), lowered == "show my calendar":
		in := intent("get_events", nil, 0.9, raw)
		return &in
	}
	for _, anchor := range []string{"schedule", "create event"} {
		if rest, ok := cutAnchor(lowered, anchor); ok && rest != "" {
			summary, when := rest, ""
			if i := strings.LastIndex(rest, " at "); i >= 0 {
				summary = strings.TrimSpace(rest[:i])
				when = strings.TrimSpace(rest[i+4:])
			}
			entities := map[string]any{"summary": trimEntity(summary)}
			if when != "" {
				entities["when"] = when
			}
			in := intent("create_event", entities, 0.8, raw)
			return &in
		}
	}
	return nil
}

func (p *RuleParser) parseFileSearch(lowered, raw string) *types.Intent {
	for _, anchor := range []string{"find file", "find the file", "search for file", "search file", "look for file", "locate file"} {
		if rest, ok := cutAnchor(lowered, anchor); ok && rest != "" {
			in := intent("search_file", map[string]any{"query": trimEntity(rest)}, 0.9, raw)
			return &in
		}
	}
	return nil
}

func (p *RuleParser) parseLogin(lowered, raw string) *types.Intent {
	for _, anchor := range []string{"login to", "log in to", "log into", "sign in to", "sign into"} {
		if rest, ok := cutAnchor(lowered, anchor); ok && rest != "" {
			in := intent("login", map[string]any{"service": trimEntity(rest)}, 0.95, raw)
			return &in
		}
	}
	return nil
}

func (p *RuleParser) parseWebSearch(lowered, raw string) *types.Intent {
	for _, anchor := range []string{"search youtube for", "youtube search for", "look up on youtube"} {
		if rest, ok := cutAnchor(lowered, anchor); ok && rest != "" {
			in := intent("search_youtube", map[string]any{"query": trimEntity(rest)}, 0.9, raw)
			return &in
		}
	}
	for _, anchor := range []string{"browse for", "browse the web for"} {
		if rest, ok := cutAnchor(lowered, anchor); ok && rest != "" {
			in := intent("browse", map[string]any{"query": trimEntity(rest)}, 0.85, raw)
			return &in
		}
	}
	for _, anchor := range []string{"search the web for", "search for", "search", "google", "look up"} {
		if rest, ok := cutAnchor(lowered, anchor); ok && rest != "" {
			in := intent("search_web", map[string]any{"query": trimEntity(rest)}, 0.85, raw)
			return &in
		}
	}
	return nil
}

// parseWebsite matches explicit navigation phrases and bare domains.
func (p *RuleParser) parseWebsite(lowered, raw string) *types.Intent {
	for _, anchor := range []string{"open website", "go to website", "navigate to"} {
		if rest, ok := cutAnchor(lowered, anchor); ok && rest != "" {
			in := intent("open_website", map[string]any{"url": normalizeURL(trimEntity(rest))}, 0.9, raw)
			return &in
		}
	}
	for _, anchor := range []string{"go to", "open"} {
		if rest, ok := cutAnchor(lowered, anchor); ok {
			if m := domainRE.FindString(rest); m != "" && m == trimEntity(rest) {
				in := intent("open_website", map[string]any{"url": normalizeURL(m)}, 0.9, raw)
				return &in
			}
		}
	}
	return nil
}

// parseHotkeyPhrases covers clipboard and tab/window control phrases that map
// directly to platform hotkeys.
func (p *RuleParser) parseHotkeyPhrases(lowered, raw string) *types.Intent {
	combos := map[string]string{
		"copy":          "copy",
		"copy that":     "copy",
		"copy this":     "copy",
		"paste":         "paste",
		"paste that":    "paste",
		"select all":    "select_all",
		"new tab":       "new_tab",
		"open a new tab": "new_tab",
		"close tab":     "close_tab",
		"close the tab": "close_tab",
		"switch window": "switch_window",
		"next window":   "switch_window",
	}
	if combo, ok := combos[lowered]; ok {
		in := intent("hotkey", map[string]any{"combo": combo}, 1.0, raw)
		return &in
	}
	return nil
}

func (p *RuleParser) parseScroll(lowered, raw string) *types.Intent {
	if !strings.HasPrefix(lowered, "scroll") {
		return nil
	}
	direction := "down"
	if strings.Contains(lowered, "up") {
		direction = "up"
	}
	amount := 3
	if m := digitsRE.FindString(lowered); m != "" {
		amount = atoiDefault(m, amount)
	}
	in := intent("scroll", map[string]any{"direction": direction, "amount": amount}, 0.9, raw)
	return &in
}

func (p *RuleParser) parseClicks(lowered, raw string) *types.Intent {
	switch {
	case strings.HasPrefix(lowered, "double click"), strings.HasPrefix(lowered, "double-click"):
		rest, _ := cutAnchor(lowered, "double click")
		in := intent("double_click", map[string]any{"target": trimEntity(strings.TrimPrefix(rest, "on "))}, 0.9, raw)
		return &in
	case strings.HasPrefix(lowered, "right click"), strings.HasPrefix(lowered, "right-click"):
		rest, _ := cutAnchor(lowered, "right click")
		in := intent("right_click", map[string]any{"target": trimEntity(strings.TrimPrefix(rest, "on "))}, 0.9, raw)
		return &in
	case strings.HasPrefix(lowered, "click"):
		rest, _ := cutAnchor(lowered, "click")
		in := intent("click", map[string]any{"target": trimEntity(strings.TrimPrefix(rest, "on "))}, 0.9, raw)
		return &in
	}
	return nil
}

func (p *RuleParser) parseKeyPress(lowered, raw string) *types.Intent {
	for _, anchor := range []string{"press", "hit"} {
		if rest, ok := cutAnchor(lowered, anchor); ok && rest != "" {
			key := trimEntity(strings.TrimSuffix(rest, " key"))
			if key != "" && len(strings.Fields(key)) <= 2 {
				in := intent("press_key", map[string]any{"key": key}, 0.9, raw)
				return &in
			}
		}
	}
	return nil
}

func (p *RuleParser) parseAppLifecycle(lowered, raw string, ctx Context) *types.Intent {
	if rest, ok := cutAnchorAny(lowered, "open file", "open the file"); ok && rest != "" {
		in := intent("open_file", map[string]any{"path": trimEntity(rest)}, 0.85, raw)
		return &in
	}
	if rest, ok := cutAnchorAny(lowered, "switch to", "focus on", "focus", "go to"); ok && rest != "" {
		in := intent("focus_app", map[string]any{"app": resolveAppRef(trimEntity(rest), ctx)}, 0.85, raw)
		return &in
	}
	if rest, ok := cutAnchorAny(lowered, "close", "quit"); ok && rest != "" {
		in := intent("close_app", map[string]any{"app": resolveAppRef(trimEntity(rest), ctx)}, 0.85, raw)
		return &in
	}
	if rest, ok := cutAnchorAny(lowered, "open up", "open", "launch", "start", "fire up"); ok && rest != "" {
		in := intent("open_app", map[string]any{"app": resolveAppRef(trimEntity(rest), ctx)}, 0.8, raw)
		return &in
	}
	return nil
}

func (p *RuleParser) parseTyping(lowered, raw string) *types.Intent {
	if rest, ok := cutAnchorAny(lowered, "type", "write", "enter"); ok && rest != "" {
		in := intent("type_text", map[string]any{"content": trimQuotes(rest)}, 0.7, raw)
		return &in
	}
	return nil
}

// --- helpers ---

func intent(name string, entities map[string]any, confidence float64, raw string) types.Intent {
	if entities == nil {
		entities = map[string]any{}
	}
	return types.Intent{Name: name, Entities: entities, Confidence: confidence, RawText: raw}
}

// cutAnchor returns the text following the anchor phrase when the utterance
// starts with it at a word boundary.
func cutAnchor(text, anchor string) (string, bool) {
	if text == anchor {
		return "", true
	}
	if strings.HasPrefix(text, anchor+" ") {
		return strings.TrimSpace(text[len(anchor)+1:]), true
	}
	return "", false
}

func cutAnchorAny(text string, anchors ...string) (string, bool) {
	for _, anchor := range anchors {
		if rest, ok := cutAnchor(text, anchor); ok {
			return rest, true
		}
	}
	return "", false
}

// trimEntity strips trailing punctuation and wrapping quotes from an
// extracted entity value.
func trimEntity(s string) string {
	s = strings.TrimSpace(trailingPunctRE.ReplaceAllString(strings.TrimSpace(s), ""))
	return trimQuotes(s)
}

func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	for _, pair := range [][2]string{{`"`, `"`}, {"'", "'"}, {"“", "”"}} {
		if strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) && len(s) >= len(pair[0])+len(pair[1]) {
			return strings.TrimSpace(s[len(pair[0]) : len(s)-len(pair[1])])
		}
	}
	return s
}

// resolveAppRef maps the literal "last"/"previous" to the session's last app.
func resolveAppRef(app string, ctx Context) string {
	if (app == "last" || app == "previous" || app == "last app" || app == "previous app") && ctx != nil && ctx.LastApp() != "" {
		return ctx.LastApp()
	}
	return app
}

func normalizeURL(u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return "https://" + u
}

func textWords(lowered string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range wordRE.FindAllString(lowered, -1) {
		out[w] = struct{}{}
	}
	return out
}

func wordSet(words ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}

func intersects(a, b map[string]struct{}) bool {
	for w := range a {
		if _, ok := b[w]; ok {
			return true
		}
	}
	return false
}

func subsetOf(words map[string]struct{}, sets ...map[string]struct{}) bool {
	for w := range words {
		found := false
		for _, s := range sets {
			if _, ok := s[w]; ok {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func atoiDefault(s string, def int) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return def
		}
		n = n*10 + int(r-'0')
	}
	if n == 0 {
		return def
	}
	return n
}
