package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"pixelink/internal/config"
	"pixelink/internal/safety"
	"pixelink/internal/types"
)

// Result reports how far a plan got.
//
// Exactly one of the following holds: Completed is true and Pending is empty;
// Killed is true; Pending is non-empty because a step demanded confirmation;
// or Err is set and FailedStep names the action that raised it.
type Result struct {
	Completed  bool
	Killed     bool
	Pending    types.Plan
	FailedStep string
	Err        error
}

// Engine walks a validated plan through a Backend. Between steps it pauses
// proportionally to the configured execution speed, polls the kill switch,
// and suspends on any step flagged as requiring confirmation.
type Engine struct {
	backend Backend
	kill    *safety.KillSwitch
	logger  *zap.Logger

	mu     sync.Mutex
	cfg    config.ExecutionConfig
	dryRun bool
}

// NewEngine builds an engine paced by the execution config. Speed is clamped
// to the supported range; zero falls back to normal speed.
func NewEngine(backend Backend, kill *safety.KillSwitch, cfg config.ExecutionConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Speed == 0 {
		cfg.Speed = 1.0
	}
	cfg.Speed = config.ClampSpeed(cfg.Speed)
	return &Engine{
		backend: backend,
		kill:    kill,
		logger:  logger,
		cfg:     cfg,
		dryRun:  cfg.DryRun,
	}
}

// SetSpeed updates the inter-step pacing for subsequent executions.
func (e *Engine) SetSpeed(speed float64) {
	e.mu.Lock()
	e.cfg.Speed = config.ClampSpeed(speed)
	e.mu.Unlock()
}

// Speed returns the current clamped execution speed.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.Speed
}

// SetDryRun toggles dry-run mode: steps are logged and counted but never
// dispatched to the backend.
func (e *Engine) SetDryRun(on bool) {
	e.mu.Lock()
	e.dryRun = on
	e.mu.Unlock()
}

// Execute runs the plan's steps in order.
//
// Before each step the kill switch is polled; if triggered, execution aborts
// with Killed set and the remaining steps are discarded. If a step carries
// RequiresConfirmation, the engine clears the flag and returns immediately
// with that step and everything after it as Pending, without dispatching it.
// A backend error aborts the plan at the failing step.
func (e *Engine) Execute(ctx context.Context, plan types.Plan) Result {
	e.mu.Lock()
	delay := e.cfg.StepDelay()
	dryRun := e.dryRun
	e.mu.Unlock()

	for i, step := range plan {
		if e.kill != nil && e.kill.Triggered() {
			e.logger.Warn("execution aborted by kill switch",
				zap.String("action", step.Action),
				zap.Int("step", i))
			return Result{Killed: true}
		}
		if err := ctx.Err(); err != nil {
			return Result{FailedStep: step.Action, Err: err}
		}

		if step.RequiresConfirmation {
			pending := plan[i:].Clone()
			pending[0].RequiresConfirmation = false
			e.logger.Info("execution suspended for confirmation",
				zap.String("action", step.Action),
				zap.Int("pending_steps", len(pending)))
			return Result{Pending: pending}
		}

		if !KnownAction(step.Action) {
			return Result{
				FailedStep: step.Action,
				Err:        fmt.Errorf("unknown action %q", step.Action),
			}
		}

		if dryRun {
			e.logger.Info("dry run step skipped",
				zap.String("action", step.Action),
				zap.Any("params", step.Params))
		} else if err := e.backend.Execute(ctx, step); err != nil {
			e.logger.Error("step failed",
				zap.String("action", step.Action),
				zap.Int("step", i),
				zap.Error(err))
			return Result{FailedStep: step.Action, Err: err}
		}

		if i < len(plan)-1 && delay > 0 {
			if !sleepCtx(ctx, delay) {
				return Result{FailedStep: step.Action, Err: ctx.Err()}
			}
		}
	}
	return Result{Completed: true}
}

// sleepCtx sleeps for d unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
