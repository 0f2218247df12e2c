// Package runtime is the orchestrator: the pipeline state machine that owns
// the session, routes utterances through parsing, planning, safety
// validation, and execution, and shapes every outcome into a response
// envelope. It is the only package the process boundary talks to.
package runtime

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pixelink/internal/config"
	"pixelink/internal/executor"
	"pixelink/internal/nlu"
	"pixelink/internal/planner"
	"pixelink/internal/plugins"
	"pixelink/internal/safety"
	"pixelink/internal/session"
	"pixelink/internal/types"
	"pixelink/internal/vault"
)

// cancelPhrases abort a pending confirmation or clarification sub-flow.
var cancelPhrases = map[string]struct{}{
	"cancel":     {},
	"stop":       {},
	"abort":      {},
	"no":         {},
	"nevermind":  {},
	"never mind": {},
}

// suggestions shown when an utterance resolves to the unknown intent.
var suggestions = []string{
	"open safari",
	"text mom saying running late",
	"search for weather tomorrow",
	"create note shopping list",
	"scroll down",
	"go back to the last app",
}

// Runtime owns the per-session pipeline. One request is processed at a time;
// concurrent input is rejected with a busy response, never queued.
type Runtime struct {
	cfg     config.Config
	logger  *zap.Logger
	sess    *session.Context
	guard   *safety.Guard
	kill    *safety.KillSwitch
	router  *nlu.HybridRouter
	planner *planner.Planner
	engine  *executor.Engine
	tools   *plugins.Registry
	vault   *vault.Store

	searchRoot string
	busy       atomic.Bool
}

// Options carries the injectable pieces of a Runtime. Zero-value fields get
// working defaults; Backend is required for real execution but may be nil in
// dry-run setups.
type Options struct {
	Config     config.Config
	Brain      nlu.Brain
	Backend    executor.Backend
	Vault      *vault.Store
	Logger     *zap.Logger
	SearchRoot string
}

// New assembles the pipeline. The kill switch is created unstarted; callers
// wire its trigger source through KillSwitch().Start.
func New(opts Options) *Runtime {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	guard := safety.NewGuard()
	guard.SetAllowedActions(opts.Config.Safety.Profile)

	tools := plugins.NewRegistry(logger)
	if err := plugins.RegisterBuiltins(tools, plugins.NewProductivityStore()); err != nil {
		logger.Warn("builtin tool registration failed", zap.Error(err))
	}

	kill := safety.NewKillSwitch(logger)
	return &Runtime{
		cfg:        opts.Config,
		logger:     logger,
		sess:       session.New(),
		guard:      guard,
		kill:       kill,
		router:     nlu.NewHybridRouter(opts.Config.NLU, opts.Brain, logger),
		planner:    planner.New(guard),
		engine:     executor.NewEngine(opts.Backend, kill, opts.Config.Execution, logger),
		tools:      tools,
		vault:      opts.Vault,
		searchRoot: opts.SearchRoot,
	}
}

// KillSwitch exposes the switch so the command layer can wire its trigger.
func (r *Runtime) KillSwitch() *safety.KillSwitch { return r.kill }

// StartKillSwitch starts the trigger listener when the safety config enables
// it. It reports whether the listener was started so callers can skip signal
// wiring on a disabled switch.
func (r *Runtime) StartKillSwitch(ctx context.Context, trigger <-chan struct{}) bool {
	if !r.cfg.Safety.EnableKillSwitch {
		r.logger.Info("kill switch disabled by config")
		return false
	}
	r.kill.Start(ctx, trigger)
	return true
}

// Tools exposes the plugin registry for external tool registration.
func (r *Runtime) Tools() *plugins.Registry { return r.tools }

// Snapshot returns the boundary view of the session.
func (r *Runtime) Snapshot() session.Snapshot { return r.sess.Snapshot() }

// Close shuts down the fallback worker pool and the kill switch listener.
func (r *Runtime) Close() {
	r.router.Close()
	r.kill.Stop()
}

// SetPreferences applies a runtime preference update. A nil speed or empty
// profile leaves that setting unchanged.
func (r *Runtime) SetPreferences(speed *float64, profile map[string]bool) {
	if speed != nil {
		r.engine.SetSpeed(*speed)
		r.logger.Info("execution speed updated", zap.Float64("speed", r.engine.Speed()))
	}
	if len(profile) > 0 {
		r.guard.SetAllowedActions(profile)
		r.logger.Info("permission profile updated", zap.Int("actions", len(profile)))
	}
}

// HandleInput runs one utterance through the pipeline and always returns a
// response envelope; handling errors never escape as Go errors.
func (r *Runtime) HandleInput(ctx context.Context, text, source, requestID string) types.Response {
	traceID := uuid.NewString()
	if !r.busy.CompareAndSwap(false, true) {
		return types.Response{
			Status:    types.StatusBusy,
			Message:   "Still working on the previous request.",
			Source:    source,
			TraceID:   traceID,
			RequestID: requestID,
			Error:     &types.ErrorDetail{Code: "PIPELINE_BUSY"},
		}
	}
	defer r.busy.Store(false)

	start := time.Now()
	req := &request{
		source:    source,
		requestID: requestID,
		traceID:   traceID,
		metrics:   &types.Metrics{},
	}

	resp := r.process(ctx, text, req)

	req.metrics.TotalMs = msSince(start)
	resp.Metrics = req.metrics
	resp.Source = source
	resp.TraceID = traceID
	resp.RequestID = requestID
	r.fillSnapshot(&resp)

	r.logger.Info("request handled",
		zap.String("trace_id", traceID),
		zap.String("source", source),
		zap.String("status", resp.Status),
		zap.String("nlu_mode", req.metrics.NLUMode),
		zap.Float64("total_ms", req.metrics.TotalMs))
	return resp
}

// request carries per-request bookkeeping through the pipeline.
type request struct {
	source    string
	requestID string
	traceID   string
	metrics   *types.Metrics
}

func (r *Runtime) process(ctx context.Context, text string, req *request) types.Response {
	normalized := types.NormalizeText(text)
	if normalized == "" {
		return types.Response{
			Status:      types.StatusUnknown,
			Message:     "I didn't catch that. Try one of these:",
			Suggestions: suggestions,
		}
	}

	// Clarification-first: the follow-up utterance is a slot value, not a
	// fresh command, so it must not go through the parser.
	if ticket := r.sess.PendingTicket(); ticket != nil {
		return r.handleClarificationReply(ctx, normalized, ticket, req)
	}

	parseStart := time.Now()
	result := r.router.Parse(ctx, normalized, r.sess, req.source)
	req.metrics.ParseMs = msSince(parseStart)
	req.metrics.NLUMode = result.Mode
	in := result.Intent
	r.sess.RecordIntent(in.Name, in.RawText)

	if r.sess.State() == session.StateAwaitingConfirmation {
		return r.handleConfirmationReply(ctx, normalized, in, req)
	}

	return r.dispatchIntent(ctx, in, req)
}

// handleConfirmationReply interprets input while a plan is suspended. Only
// confirm and cancel consume the state; anything else re-prompts.
func (r *Runtime) handleConfirmationReply(ctx context.Context, normalized string, in types.Intent, req *request) types.Response {
	switch {
	case in.Name == "confirm":
		plan := r.sess.PendingPlan()
		r.sess.ClearPending()
		return r.runPlan(ctx, in, plan, req)
	case in.Name == "cancel" || in.Name == "exit" || isCancelPhrase(normalized):
		r.sess.ClearPending()
		return types.Response{Status: types.StatusCanceled, Message: "Okay, canceled."}
	default:
		return types.Response{
			Status:              types.StatusAwaitingConfirmation,
			Message:             "Please confirm or cancel the pending action first.",
			PendingConfirmation: true,
		}
	}
}

// handleClarificationReply merges the follow-up utterance into the ticket's
// missing slot and re-enters planning with the completed intent.
func (r *Runtime) handleClarificationReply(ctx context.Context, normalized string, ticket *types.ClarificationTicket, req *request) types.Response {
	req.metrics.NLUMode = "clarification"

	if isCancelPhrase(strings.ToLower(normalized)) {
		r.sess.ClearPending()
		return types.Response{Status: types.StatusCanceled, Message: "Okay, canceled."}
	}

	merged := *ticket
	switch ticket.Type {
	case nlu.ClarifySendTextTarget:
		merged.Target = normalized
	case nlu.ClarifySendTextContent, "reply_email_content":
		merged.Content = normalized
	default:
		merged.Content = normalized
	}

	// A filled target without content needs one more round.
	if merged.IntentName == "send_text" && merged.Content == "" {
		merged.Type = nlu.ClarifySendTextContent
		merged.Prompt = fmt.Sprintf("What message should I send to %s?", merged.Target)
		r.sess.SetPendingTicket(merged)
		return types.Response{
			Status:               types.StatusAwaitingClarification,
			Message:              merged.Prompt,
			PendingClarification: true,
			ClarificationPrompt:  merged.Prompt,
		}
	}

	r.sess.ClearPending()
	in := intentFromTicket(merged, normalized)
	r.sess.RecordIntent(in.Name, in.RawText)
	return r.dispatchIntent(ctx, in, req)
}

// dispatchIntent handles a resolved intent: dialogue control, orchestrator
// flows (search, login), clarification openings, then planning and execution.
func (r *Runtime) dispatchIntent(ctx context.Context, in types.Intent, req *request) types.Response {
	switch in.Name {
	case types.IntentUnknown:
		return types.Response{
			Status:      types.StatusUnknown,
			Message:     "I didn't understand that. Try one of these:",
			Intent:      &in,
			Suggestions: suggestions,
		}
	case "exit":
		return types.Response{Status: types.StatusBye, Message: "Goodbye."}
	case "confirm":
		return types.Response{Status: types.StatusIdle, Message: "Nothing to confirm."}
	case "cancel":
		return types.Response{Status: types.StatusIdle, Message: "Nothing to cancel."}
	case "search_file":
		return r.handleFileSearch(in, req)
	case "login":
		return r.handleLogin(ctx, in, req)
	}

	if in.EntityBool(nlu.EntityRequiresClarification) {
		ticket := ticketFromIntent(in)
		r.sess.SetPendingTicket(ticket)
		return types.Response{
			Status:               types.StatusAwaitingClarification,
			Message:              ticket.Prompt,
			Intent:               &in,
			PendingClarification: true,
			ClarificationPrompt:  ticket.Prompt,
		}
	}

	planStart := time.Now()
	plan, err := r.planner.Plan(in, r.sess)
	req.metrics.PlanMs = msSince(planStart)
	if err != nil {
		return types.Response{
			Status:  types.StatusError,
			Message: "I couldn't plan that action.",
			Intent:  &in,
			Error:   &types.ErrorDetail{Code: "PLANNING_FAILED", Details: err.Error()},
		}
	}
	if len(plan) == 0 {
		return types.Response{Status: types.StatusIdle, Message: "Nothing to do.", Intent: &in}
	}

	if verdict := r.guard.ValidatePlan(plan); !verdict.Allowed {
		r.logger.Warn("plan blocked",
			zap.String("trace_id", req.traceID),
			zap.String("intent", in.Name),
			zap.String("reason", verdict.Reason))
		return types.Response{
			Status:  types.StatusBlocked,
			Message: verdict.Reason,
			Intent:  &in,
			Error:   &types.ErrorDetail{Code: "SAFETY_VIOLATION", Details: verdict.Reason},
		}
	}

	resp := r.runPlan(ctx, in, plan, req)
	resp.Intent = &in
	return resp
}

// runPlan routes mcp_ steps through the tool registry and everything else
// through the execution engine, then folds the outcome into a response.
func (r *Runtime) runPlan(ctx context.Context, in types.Intent, plan types.Plan, req *request) types.Response {
	if len(plan) == 0 {
		return types.Response{Status: types.StatusIdle, Message: "Nothing to do."}
	}

	execStart := time.Now()
	defer func() { req.metrics.ExecuteMs = msSince(execStart) }()

	if executor.IsMCPAction(plan[0].Action) {
		return r.runToolPlan(ctx, plan)
	}

	res := r.engine.Execute(ctx, plan)
	switch {
	case res.Killed:
		return types.Response{
			Status:  types.StatusKilled,
			Message: "Stopped by kill switch.",
			Error:   &types.ErrorDetail{Code: "KILL_SWITCH_TRIGGERED"},
		}
	case res.Err != nil:
		return types.Response{
			Status:  types.StatusError,
			Message: fmt.Sprintf("Action %s failed.", res.FailedStep),
			Error:   &types.ErrorDetail{Code: "EXECUTION_FAILED", Type: res.FailedStep, Details: res.Err.Error()},
		}
	case len(res.Pending) > 0:
		r.recordExecuted(in, plan[:len(plan)-len(res.Pending)])
		r.sess.SetPendingPlan(res.Pending)
		prompt := confirmationPrompt(res.Pending[0])
		return types.Response{
			Status:              types.StatusAwaitingConfirmation,
			Message:             prompt,
			Steps:               res.Pending,
			PendingConfirmation: true,
		}
	}

	r.recordExecuted(in, plan)
	return types.Response{
		Status:  types.StatusCompleted,
		Message: completionMessage(plan),
		Steps:   plan,
	}
}

// runToolPlan invokes each mcp_ step through the plugin registry.
func (r *Runtime) runToolPlan(ctx context.Context, plan types.Plan) types.Response {
	var messages []string
	for _, step := range plan {
		name := executor.MCPToolName(step.Action)
		out, err := r.tools.Invoke(ctx, name, step.Params)
		if err != nil {
			return types.Response{
				Status:  types.StatusError,
				Message: fmt.Sprintf("Tool %s failed.", name),
				Error:   &types.ErrorDetail{Code: "TOOL_FAILED", Type: name, Details: err.Error()},
			}
		}
		r.sess.RecordAction(step.Action)
		messages = append(messages, toolMessage(name, out))
	}
	return types.Response{
		Status:  types.StatusCompleted,
		Message: strings.Join(messages, " "),
		Steps:   plan,
	}
}

// handleFileSearch answers a search_file intent from the local index.
func (r *Runtime) handleFileSearch(in types.Intent, req *request) types.Response {
	query := in.Entity("query")
	if query == "" {
		return types.Response{
			Status:  types.StatusError,
			Message: "What file should I look for?",
			Intent:  &in,
			Error:   &types.ErrorDetail{Code: "MISSING_ENTITY", Details: "search_file requires a query"},
		}
	}

	execStart := time.Now()
	matches, err := searchFiles(r.searchRoot, query, maxSearchResults)
	req.metrics.ExecuteMs = msSince(execStart)
	if err != nil {
		return types.Response{
			Status:  types.StatusError,
			Message: "File search failed.",
			Intent:  &in,
			Error:   &types.ErrorDetail{Code: "SEARCH_FAILED", Details: err.Error()},
		}
	}
	r.sess.RecordAction("search_file")
	if len(matches) == 0 {
		return types.Response{
			Status:  types.StatusCompleted,
			Message: fmt.Sprintf("No files matching %q.", query),
			Intent:  &in,
		}
	}
	return types.Response{
		Status:  types.StatusCompleted,
		Message: fmt.Sprintf("Found %d file(s) matching %q: %s", len(matches), query, strings.Join(matches, ", ")),
		Intent:  &in,
	}
}

// handleLogin builds the credential autofill plan from the vault. The
// credentials are typed into the focused form, but the final submit step is
// confirmation-gated so nothing is sent until the user confirms.
func (r *Runtime) handleLogin(ctx context.Context, in types.Intent, req *request) types.Response {
	service := in.Entity("service")
	if r.vault == nil {
		return types.Response{
			Status:  types.StatusError,
			Message: "No credential vault is configured.",
			Intent:  &in,
			Error:   &types.ErrorDetail{Code: "VAULT_UNAVAILABLE"},
		}
	}
	cred, err := r.vault.Get(ctx, service)
	if err != nil {
		return types.Response{
			Status:  types.StatusError,
			Message: fmt.Sprintf("No saved login for %s.", service),
			Intent:  &in,
			Error:   &types.ErrorDetail{Code: "CREDENTIAL_NOT_FOUND", Details: err.Error()},
		}
	}

	planStart := time.Now()
	submit := types.NewStep("autofill_login", map[string]any{"service": cred.Service},
		fmt.Sprintf("Submit login for %s", cred.Service))
	submit.RequiresConfirmation = r.guard.RequiresConfirmation("autofill_login")
	plan := types.Plan{
		types.NewStep("type_text", map[string]any{"content": cred.Username}, "Type username"),
		types.NewStep("press_key", map[string]any{"key": "tab"}, "Move to password field"),
		types.NewStep("type_text", map[string]any{"content": cred.Password}, "Type password"),
		submit,
	}
	req.metrics.PlanMs = msSince(planStart)

	if verdict := r.guard.ValidatePlan(plan); !verdict.Allowed {
		return types.Response{
			Status:  types.StatusBlocked,
			Message: verdict.Reason,
			Intent:  &in,
			Error:   &types.ErrorDetail{Code: "SAFETY_VIOLATION", Details: verdict.Reason},
		}
	}

	resp := r.runPlan(ctx, in, plan, req)
	resp.Intent = &in
	return resp
}

// recordExecuted folds executed steps back into session state: action
// history, last-app tracking, and browsing history for web intents.
func (r *Runtime) recordExecuted(in types.Intent, plan types.Plan) {
	for _, step := range plan {
		r.sess.RecordAction(step.Action)
		switch step.Action {
		case "open_app", "focus_app":
			r.sess.SetLastApp(step.Param("app"))
		case "open_url":
			r.sess.AddBrowsingEntry(step.Param("url"), in.Entity("query"))
		}
	}
}

func (r *Runtime) fillSnapshot(resp *types.Response) {
	snap := r.sess.Snapshot()
	resp.LastApp = snap.LastApp
	resp.HistoryCount = snap.HistoryCount
	if snap.PendingConfirmation {
		resp.PendingConfirmation = true
	}
	if snap.PendingClarification {
		resp.PendingClarification = true
		if resp.ClarificationPrompt == "" {
			resp.ClarificationPrompt = snap.ClarificationPrompt
		}
	}
}

func isCancelPhrase(normalized string) bool {
	_, ok := cancelPhrases[strings.ToLower(normalized)]
	return ok
}

// ticketFromIntent lifts a partially understood intent into a clarification
// ticket.
func ticketFromIntent(in types.Intent) types.ClarificationTicket {
	prompt := in.Entity(nlu.EntityClarificationPrompt)
	if prompt == "" {
		prompt = "Could you give me a bit more detail?"
	}
	return types.ClarificationTicket{
		IntentName:   in.Name,
		Type:         in.Entity(nlu.EntityClarificationType),
		Target:       in.Entity("target"),
		Content:      in.Entity("content"),
		App:          in.Entity("app"),
		Prompt:       prompt,
		OriginalText: in.RawText,
	}
}

// intentFromTicket rebuilds a complete intent after the missing slot was
// filled by the follow-up utterance.
func intentFromTicket(t types.ClarificationTicket, reply string) types.Intent {
	entities := map[string]any{}
	if t.Target != "" {
		entities["target"] = t.Target
	}
	if t.Content != "" {
		entities["content"] = t.Content
	}
	if t.App != "" {
		entities["app"] = t.App
	}
	return types.Intent{
		Name:       t.IntentName,
		Entities:   entities,
		Confidence: 0.9,
		RawText:    strings.TrimSpace(t.OriginalText + " " + reply),
	}
}

func confirmationPrompt(step types.ActionStep) string {
	desc := step.Description
	if desc == "" {
		desc = step.Action
	}
	return fmt.Sprintf("This will %s. Confirm?", strings.ToLower(desc))
}

func completionMessage(plan types.Plan) string {
	if len(plan) == 1 && plan[0].Description != "" {
		return fmt.Sprintf("Done: %s.", strings.ToLower(plan[0].Description))
	}
	return fmt.Sprintf("Done, %d step(s) executed.", len(plan))
}

func toolMessage(name string, out any) string {
	switch v := out.(type) {
	case []plugins.Reminder:
		if len(v) == 0 {
			return "You have no reminders."
		}
		names := make([]string, len(v))
		for i, rem := range v {
			names[i] = rem.Name
		}
		return "Reminders: " + strings.Join(names, ", ") + "."
	case []plugins.Note:
		if len(v) == 0 {
			return "You have no notes."
		}
		titles := make([]string, len(v))
		for i, n := range v {
			titles[i] = n.Title
		}
		return "Notes: " + strings.Join(titles, ", ") + "."
	case []plugins.Event:
		if len(v) == 0 {
			return "Your calendar is clear."
		}
		items := make([]string, len(v))
		for i, e := range v {
			items[i] = e.Summary
			if e.When != "" {
				items[i] += " at " + e.When
			}
		}
		return "Events: " + strings.Join(items, ", ") + "."
	}
	return fmt.Sprintf("Done: %s.", name)
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t)) / float64(time.Millisecond)
}
