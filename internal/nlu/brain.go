package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"pixelink/internal/config"
	"pixelink/internal/types"
)

// Brain is the fallback parsing contract. Implementations must be safe to
// invoke from worker goroutines; any returned error is absorbed by the
// hybrid router (fail-closed).
type Brain interface {
	Parse(ctx context.Context, text string, sessCtx Context) (types.Intent, error)
}

// systemPrompt tells the model how to parse commands. The model must answer
// with a single JSON object: {"intent": ..., "entities": {...}, "confidence": ...}.
const systemPrompt = `You are the brain of a voice-controlled computer assistant called PixelLink.
Your job is to understand what the user wants to do and return a structured JSON response.

You must respond with ONLY valid JSON, no other text. The JSON must have this structure:
{
    "intent": "<intent_name>",
    "entities": {<key-value pairs of extracted info>},
    "confidence": <0.0 to 1.0>
}

Available intents and their entities:
1. "open_app" {"app"} - open an application ("open Safari", "fire up the browser")
2. "focus_app" {"app"} - switch to an open application ("switch to Terminal")
3. "close_app" {"app"} - close an application ("quit Notes")
4. "type_text" {"content"} - type something ("write Dear John")
5. "click" {"target"} - click something ("click the submit button")
6. "search_web" {"query"} - search the web ("google how to cook pasta")
7. "search_youtube" {"query"} - search YouTube
8. "open_website" {"url"} - open a website ("go to github.com")
9. "open_file" {"path"} - open a file
10. "search_file" {"query"} - find a file by name
11. "send_text" {"target", "content"} - send a text message
12. "reply_email" {"content"} - reply to the current email
13. "login" {"service"} - autofill credentials for a service
14. "press_key" {"key"} - press a single key
15. "scroll" {"direction", "amount"} - scroll the page
16. "create_reminder" {"name"} / "create_note" {"title", "folder"} /
    "list_reminders" / "list_notes" / "get_events" / "create_event" {"summary", "when"}
17. "confirm" / "cancel" / "exit" - dialogue control words
18. "unknown" {"text"} - you cannot understand the request

Important rules:
- Extract the ACTUAL app/content name, not the literal words. "fire up the browser" means Safari or Chrome, not "the browser".
- Be flexible with phrasing - "open up", "launch", "start", "fire up", "get me" all mean open_app.
- confidence should be high (0.9+) if you're sure, lower if uncertain.
- Always return valid JSON, nothing else.`

// GeminiBrain parses utterances with the Gemini API.
type GeminiBrain struct {
	client          *genai.Client
	model           string
	temperature     float32
	maxOutputTokens int32
}

// NewGeminiBrain builds a Gemini-backed brain from LLM config.
func NewGeminiBrain(ctx context.Context, cfg config.LLMConfig) (*GeminiBrain, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 256
	}
	return &GeminiBrain{
		client:          client,
		model:           model,
		temperature:     float32(cfg.Temperature),
		maxOutputTokens: int32(maxTokens),
	}, nil
}

// Parse sends the utterance to Gemini and decodes the JSON intent. Safe for
// concurrent use from worker goroutines.
func (b *GeminiBrain) Parse(ctx context.Context, text string, sessCtx Context) (types.Intent, error) {
	normalized := types.NormalizeText(text)
	if normalized == "" {
		return types.Unknown(""), nil
	}

	prompt := fmt.Sprintf("User said: %q\n\nReturn the JSON response:", normalized)
	if sessCtx != nil && sessCtx.LastIntent() != "" {
		prompt = fmt.Sprintf("Previous intent: %s\n\n%s", sessCtx.LastIntent(), prompt)
	}

	resp, err := b.client.Models.GenerateContent(ctx, b.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
			Temperature:       genai.Ptr(b.temperature),
			MaxOutputTokens:   b.maxOutputTokens,
		},
	)
	if err != nil {
		return types.Intent{}, fmt.Errorf("gemini call failed: %w", err)
	}

	return decodeIntentJSON(resp.Text(), normalized)
}

// decodeIntentJSON parses the model's JSON payload, tolerating markdown code
// fences around it.
func decodeIntentJSON(payload, rawText string) (types.Intent, error) {
	payload = stripCodeFence(strings.TrimSpace(payload))

	var parsed struct {
		Intent     string         `json:"intent"`
		Entities   map[string]any `json:"entities"`
		Confidence float64        `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return types.Intent{}, fmt.Errorf("fallback response is not valid intent JSON: %w", err)
	}

	name := strings.TrimSpace(parsed.Intent)
	if name == "" {
		name = types.IntentUnknown
	}
	entities := parsed.Entities
	if entities == nil {
		entities = map[string]any{}
	}
	confidence := parsed.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return types.Intent{
		Name:       name,
		Entities:   entities,
		Confidence: confidence,
		RawText:    rawText,
	}, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return s
	}
	lines = lines[1:]
	if strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
