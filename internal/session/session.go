// Package session holds mutable per-user dialogue state. The context is
// mutated only by the orchestrator goroutine; no internal locking is needed
// or provided.
package session

import (
	"pixelink/internal/types"
)

// DefaultHistoryLimit bounds the intent/action history; the oldest entries
// are silently evicted.
const DefaultHistoryLimit = 50

// State is the dialogue sub-flow the session is in. Modeling it as a single
// enum makes "pending plan AND pending clarification" unrepresentable.
type State int

const (
	StateIdle State = iota
	StateAwaitingConfirmation
	StateAwaitingClarification
)

func (s State) String() string {
	switch s {
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	case StateAwaitingClarification:
		return "awaiting_clarification"
	default:
		return "idle"
	}
}

// HistoryEntry records one processed utterance or executed action.
type HistoryEntry struct {
	Intent  string `json:"intent,omitempty"`
	Action  string `json:"action,omitempty"`
	RawText string `json:"raw_text,omitempty"`
}

// Snapshot is a read-only view of session state for the process boundary.
type Snapshot struct {
	LastIntent           string `json:"last_intent"`
	LastApp              string `json:"last_app"`
	HistoryCount         int    `json:"history_count"`
	PendingConfirmation  bool   `json:"pending_confirmation"`
	PendingClarification bool   `json:"pending_clarification"`
	ClarificationPrompt  string `json:"clarification_prompt"`
}

// Context is the per-session mutable state: last intent/app, bounded
// history, and the current dialogue sub-flow with its payload.
type Context struct {
	lastIntent string
	lastApp    string
	history    []HistoryEntry
	limit      int

	state  State
	plan   types.Plan
	ticket *types.ClarificationTicket

	browsing []BrowsingEntry
}

// New creates an idle session context with the default history bound.
func New() *Context {
	return &Context{limit: DefaultHistoryLimit}
}

// LastIntent returns the most recently recorded intent name.
func (c *Context) LastIntent() string { return c.lastIntent }

// LastApp returns the most recently opened or focused application.
func (c *Context) LastApp() string { return c.lastApp }

// HistoryLen returns the current history length.
func (c *Context) HistoryLen() int { return len(c.history) }

// History returns a copy of the bounded history, oldest first.
func (c *Context) History() []HistoryEntry {
	out := make([]HistoryEntry, len(c.history))
	copy(out, c.history)
	return out
}

// State returns the current dialogue sub-flow.
func (c *Context) State() State { return c.state }

// RecordIntent notes a parsed intent and appends it to the history.
func (c *Context) RecordIntent(name, rawText string) {
	c.lastIntent = name
	c.appendHistory(HistoryEntry{Intent: name, RawText: rawText})
}

// RecordAction appends an executed action to the history.
func (c *Context) RecordAction(action string) {
	c.appendHistory(HistoryEntry{Action: action})
}

// SetLastApp notes the most recent app target.
func (c *Context) SetLastApp(app string) {
	if app != "" {
		c.lastApp = app
	}
}

func (c *Context) appendHistory(e HistoryEntry) {
	c.history = append(c.history, e)
	if len(c.history) > c.limit {
		c.history = c.history[len(c.history)-c.limit:]
	}
}

// SetPendingPlan suspends a plan awaiting confirmation. Any pending
// clarification is superseded.
func (c *Context) SetPendingPlan(plan types.Plan) {
	if len(plan) == 0 {
		return
	}
	c.state = StateAwaitingConfirmation
	c.plan = plan
	c.ticket = nil
}

// PendingPlan returns the suspended plan, nil when none.
func (c *Context) PendingPlan() types.Plan {
	if c.state != StateAwaitingConfirmation {
		return nil
	}
	return c.plan
}

// SetPendingTicket suspends a clarification ticket. Any pending plan is
// superseded.
func (c *Context) SetPendingTicket(ticket types.ClarificationTicket) {
	c.state = StateAwaitingClarification
	c.ticket = &ticket
	c.plan = nil
}

// PendingTicket returns the open clarification ticket, nil when none.
func (c *Context) PendingTicket() *types.ClarificationTicket {
	if c.state != StateAwaitingClarification {
		return nil
	}
	return c.ticket
}

// ClearPending returns the session to the idle dialogue state, discarding
// any suspended plan or ticket.
func (c *Context) ClearPending() {
	c.state = StateIdle
	c.plan = nil
	c.ticket = nil
}

// Snapshot builds the boundary-layer view of the session.
func (c *Context) Snapshot() Snapshot {
	snap := Snapshot{
		LastIntent:           c.lastIntent,
		LastApp:              c.lastApp,
		HistoryCount:         len(c.history),
		PendingConfirmation:  c.state == StateAwaitingConfirmation,
		PendingClarification: c.state == StateAwaitingClarification,
	}
	if t := c.PendingTicket(); t != nil {
		snap.ClarificationPrompt = t.Prompt
	}
	return snap
}
