package nlu

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"pixelink/internal/config"
	"pixelink/internal/types"
)

// Parse modes reported alongside the intent.
const (
	ModeRules    = "rules"
	ModeFallback = "llm_fallback"
	ModeCache    = "llm_cache"
)

// fallbackFloor is the minimum confidence a fallback result needs before it
// can ever replace a rule result.
const fallbackFloor = 0.4

// workerCallTimeout caps how long an abandoned fallback call may keep a
// worker busy after its request has moved on.
const workerCallTimeout = 10 * time.Second

// Result pairs a parsed intent with the mode that produced it.
type Result struct {
	Intent types.Intent
	Mode   string
}

// snapshot is an immutable copy of the session fields the fallback needs.
// Workers must not touch live session state from their own goroutines.
type snapshot struct {
	lastIntent string
	lastApp    string
}

func (s snapshot) LastIntent() string { return s.lastIntent }
func (s snapshot) LastApp() string    { return s.lastApp }

// HybridRouter composes the rule parser, the fallback brain, and the result
// cache into one Parse operation with a fail-closed timeout policy. The
// fallback runs on a small fixed-size worker pool; the calling goroutine
// waits up to a source-specific budget and then proceeds regardless of the
// worker's eventual completion. A late result is never applied to the
// request that timed out, but a successful one still populates the cache
// for future identical queries.
type HybridRouter struct {
	rules  *RuleParser
	brain  Brain
	cache  *ResultCache
	cfg    config.NLUConfig
	logger *zap.Logger

	group singleflight.Group

	jobs      chan fallbackJob
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type fallbackJob struct {
	key     string
	text    string
	snap    snapshot
	resolve func(types.Intent, error)
}

// NewHybridRouter builds the router and starts its worker pool. brain may be
// nil, in which case parsing is rules-only.
func NewHybridRouter(cfg config.NLUConfig, brain Brain, logger *zap.Logger) *HybridRouter {
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	r := &HybridRouter{
		rules:  NewRuleParser(),
		brain:  brain,
		cache:  NewResultCache(cfg.CacheSize, cfg.CacheTTL()),
		cfg:    cfg,
		logger: logger,
		jobs:   make(chan fallbackJob, workers*4),
	}
	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

// Close shuts down the worker pool and waits for in-flight calls to finish.
func (r *HybridRouter) Close() {
	r.closeOnce.Do(func() {
		close(r.jobs)
	})
	r.wg.Wait()
}

// Parse resolves text to an intent. source selects the timeout budget
// ("voice" gets more headroom than "text").
func (r *HybridRouter) Parse(ctx context.Context, text string, sessCtx Context, source string) Result {
	ruleIntent := r.rules.Parse(text, sessCtx)

	if !r.cfg.Enabled || r.brain == nil || !r.shouldFallback(ruleIntent) {
		return Result{Intent: ruleIntent, Mode: ModeRules}
	}

	snap := snapshot{}
	if sessCtx != nil {
		snap = snapshot{lastIntent: sessCtx.LastIntent(), lastApp: sessCtx.LastApp()}
	}
	key := CacheKey(text, snap.lastIntent)

	if cached, ok := r.cache.Get(key); ok {
		if r.isBetterFallback(ruleIntent, cached) {
			return Result{Intent: cached, Mode: ModeCache}
		}
		return Result{Intent: ruleIntent, Mode: ModeRules}
	}

	fbIntent, ok := r.dispatchFallback(ctx, key, text, snap, r.cfg.Timeout(source))
	if ok && r.isBetterFallback(ruleIntent, fbIntent) {
		return Result{Intent: fbIntent, Mode: ModeFallback}
	}
	return Result{Intent: ruleIntent, Mode: ModeRules}
}

// shouldFallback decides whether the rule result is insufficient: unknown
// intent, confidence under threshold, or a required entity missing.
func (r *HybridRouter) shouldFallback(in types.Intent) bool {
	if in.IsUnknown() {
		return true
	}
	if in.Confidence < r.cfg.ConfidenceThreshold {
		return true
	}
	return len(MissingEntities(in)) > 0
}

// isBetterFallback applies the replacement policy: the fallback wins only
// when it is a known intent, clears the confidence floor, has every
// required entity, and beats both the rule confidence and the threshold.
func (r *HybridRouter) isBetterFallback(rule, fb types.Intent) bool {
	if fb.IsUnknown() {
		return false
	}
	if fb.Confidence < fallbackFloor {
		return false
	}
	if len(MissingEntities(fb)) > 0 {
		return false
	}
	if rule.IsUnknown() {
		return true
	}
	threshold := r.cfg.ConfidenceThreshold
	if rule.Confidence > threshold {
		threshold = rule.Confidence
	}
	return fb.Confidence >= threshold
}

// dispatchFallback submits the call to the worker pool and waits up to
// budget. Concurrent identical queries are collapsed onto one underlying
// call. Timeout or error reports ok=false and the caller fail-closes to the
// rule result.
func (r *HybridRouter) dispatchFallback(ctx context.Context, key, text string, snap snapshot, budget time.Duration) (types.Intent, bool) {
	ch := r.group.DoChan(key, func() (any, error) {
		return r.runOnPool(key, text, snap)
	})

	timer := time.NewTimer(budget)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.Err != nil {
			r.logger.Warn("fallback parse failed", zap.String("key", key), zap.Error(res.Err))
			return types.Intent{}, false
		}
		return res.Val.(types.Intent), true
	case <-timer.C:
		r.logger.Warn("fallback parse timed out",
			zap.String("key", key), zap.Duration("budget", budget))
		return types.Intent{}, false
	case <-ctx.Done():
		return types.Intent{}, false
	}
}

// runOnPool blocks until a worker has executed the brain call. The worker
// writes accepted results to the cache itself, so a call that outlives its
// request still benefits future queries.
func (r *HybridRouter) runOnPool(key, text string, snap snapshot) (types.Intent, error) {
	done := make(chan struct{})
	var (
		out    types.Intent
		outErr error
	)
	job := fallbackJob{
		key:  key,
		text: text,
		snap: snap,
		resolve: func(in types.Intent, err error) {
			out, outErr = in, err
			close(done)
		},
	}

	select {
	case r.jobs <- job:
	case <-time.After(workerCallTimeout):
		return types.Intent{}, context.DeadlineExceeded
	}
	<-done
	return out, outErr
}

func (r *HybridRouter) worker() {
	defer r.wg.Done()
	for job := range r.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), workerCallTimeout)
		in, err := r.brain.Parse(ctx, job.text, job.snap)
		cancel()

		if err == nil && !in.IsUnknown() && len(MissingEntities(in)) == 0 && in.Confidence >= fallbackFloor {
			r.cache.Set(job.key, in)
		}
		job.resolve(in, err)
	}
}
