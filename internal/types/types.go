// Package types holds the core data model shared by the command pipeline:
// intents, action steps, plans, clarification tickets, and the response
// envelope emitted over the process boundary.
package types

import "strings"

// IntentUnknown is the canonical "no match" intent name.
const IntentUnknown = "unknown"

// Response statuses used across the pipeline and the bridge.
const (
	StatusReady                 = "ready"
	StatusIdle                  = "idle"
	StatusCompleted             = "completed"
	StatusBlocked               = "blocked"
	StatusCanceled              = "canceled"
	StatusUnknown               = "unknown"
	StatusError                 = "error"
	StatusBusy                  = "busy"
	StatusKilled                = "killed"
	StatusAwaitingConfirmation  = "awaiting_confirmation"
	StatusAwaitingClarification = "awaiting_clarification"
	StatusState                 = "state"
	StatusUpdated               = "updated"
	StatusBye                   = "bye"
)

// Intent is the structured interpretation of one utterance.
// It is produced once per request and treated as immutable afterwards.
type Intent struct {
	Name       string         `json:"name"`
	Entities   map[string]any `json:"entities"`
	Confidence float64        `json:"confidence"`
	RawText    string         `json:"raw_text"`
}

// Unknown returns the canonical no-match intent for the given text.
func Unknown(text string) Intent {
	return Intent{
		Name:       IntentUnknown,
		Entities:   map[string]any{"text": text},
		Confidence: 0,
		RawText:    text,
	}
}

// IsUnknown reports whether the intent is the canonical no-match value.
func (i Intent) IsUnknown() bool {
	return i.Name == IntentUnknown || i.Name == ""
}

// Entity returns the named entity as a trimmed string, or "" when absent.
func (i Intent) Entity(key string) string {
	v, ok := i.Entities[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// EntityBool returns the named entity as a bool, false when absent or untyped.
func (i Intent) EntityBool(key string) bool {
	v, ok := i.Entities[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// Clone returns a deep copy so cached intents cannot be mutated by callers.
func (i Intent) Clone() Intent {
	out := i
	out.Entities = make(map[string]any, len(i.Entities))
	for k, v := range i.Entities {
		out.Entities[k] = v
	}
	return out
}

// ActionStep is one primitive operation in a plan. Steps are immutable once
// planned, except RequiresConfirmation which the executor clears when the
// confirmation is consumed.
type ActionStep struct {
	Action               string         `json:"action"`
	Params               map[string]any `json:"params"`
	RequiresConfirmation bool           `json:"requires_confirmation"`
	Description          string         `json:"description"`
}

// NewStep builds an action step without a confirmation requirement.
func NewStep(action string, params map[string]any, description string) ActionStep {
	if params == nil {
		params = map[string]any{}
	}
	return ActionStep{Action: action, Params: params, Description: description}
}

// Param returns the named parameter as a string, or "" when absent.
func (s ActionStep) Param(key string) string {
	v, ok := s.Params[key]
	if !ok || v == nil {
		return ""
	}
	str, ok := v.(string)
	if !ok {
		return ""
	}
	return str
}

// Plan is an ordered list of action steps, validated atomically by the
// safety guard before any step runs.
type Plan []ActionStep

// Clone deep-copies the plan including each step's parameter map.
func (p Plan) Clone() Plan {
	if p == nil {
		return nil
	}
	out := make(Plan, len(p))
	for i, step := range p {
		cp := step
		cp.Params = make(map[string]any, len(step.Params))
		for k, v := range step.Params {
			cp.Params[k] = v
		}
		out[i] = cp
	}
	return out
}

// SafetyResult is the outcome of validating a plan against the permission
// profile. A rejected plan names the offending action in Reason.
type SafetyResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// ClarificationTicket captures a partially understood intent that is waiting
// for one follow-up utterance to fill the missing slot.
type ClarificationTicket struct {
	IntentName   string `json:"intent_name"`
	Type         string `json:"clarification_type"`
	Target       string `json:"target"`
	Content      string `json:"content"`
	App          string `json:"app"`
	Prompt       string `json:"prompt"`
	OriginalText string `json:"original_text"`
}

// Metrics carries per-phase latency for one request.
type Metrics struct {
	ParseMs   float64 `json:"parse_ms"`
	PlanMs    float64 `json:"plan_ms"`
	ExecuteMs float64 `json:"execute_ms"`
	TotalMs   float64 `json:"total_ms"`
	NLUMode   string  `json:"nlu_mode"`
}

// ErrorDetail is the structured error block in an error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Type    string `json:"type,omitempty"`
	Details string `json:"details,omitempty"`
}

// Response is the envelope returned for every request. The orchestrator
// never terminates on a handling error; it always produces one of these.
type Response struct {
	Status               string       `json:"status"`
	Message              string       `json:"message"`
	Source               string       `json:"source,omitempty"`
	Intent               *Intent      `json:"intent,omitempty"`
	Steps                []ActionStep `json:"steps,omitempty"`
	PendingConfirmation  bool         `json:"pending_confirmation"`
	PendingClarification bool         `json:"pending_clarification"`
	ClarificationPrompt  string       `json:"clarification_prompt,omitempty"`
	LastApp              string       `json:"last_app,omitempty"`
	HistoryCount         int          `json:"history_count"`
	Suggestions          []string     `json:"suggestions,omitempty"`
	Metrics              *Metrics     `json:"metrics,omitempty"`
	TraceID              string       `json:"trace_id,omitempty"`
	RequestID            string       `json:"request_id,omitempty"`
	Transcript           string       `json:"transcript,omitempty"`
	Error                *ErrorDetail `json:"error,omitempty"`
}

// NormalizeText trims and collapses internal whitespace. Matching in the rule
// parser additionally lowercases; raw entity extraction keeps original case.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
