package safety

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// KillSwitch is the user-triggered global abort signal. A background
// listener sets one shared flag when the trigger source fires; the flag is
// never cleared automatically. The signal is cooperative: it stops steps
// that have not started, it does not preempt a step mid-flight.
type KillSwitch struct {
	triggered atomic.Bool
	logger    *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewKillSwitch creates an untriggered kill switch.
func NewKillSwitch(logger *zap.Logger) *KillSwitch {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KillSwitch{logger: logger}
}

// Start launches the background listener. Each receive on trigger sets the
// flag. The listener runs until Stop or ctx cancellation. Starting twice is
// a no-op.
func (k *KillSwitch) Start(ctx context.Context, trigger <-chan struct{}) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.running {
		return
	}
	k.running = true

	ctx, cancel := context.WithCancel(ctx)
	k.cancel = cancel
	k.done = make(chan struct{})

	go func() {
		defer close(k.done)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-trigger:
				if !ok {
					return
				}
				if !k.triggered.Swap(true) {
					k.logger.Warn("kill switch triggered")
				}
			}
		}
	}()
}

// Stop terminates the listener. The flag keeps its current value.
func (k *KillSwitch) Stop() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.running {
		return
	}
	k.running = false
	k.cancel()
	<-k.done
}

// Triggered is a lock-free read of the abort flag.
func (k *KillSwitch) Triggered() bool {
	return k.triggered.Load()
}

// Trigger sets the flag directly, bypassing the listener. Used by the
// process boundary and tests.
func (k *KillSwitch) Trigger() {
	k.triggered.Store(true)
}

// Reset clears the flag. Only an explicit user action resets it.
func (k *KillSwitch) Reset() {
	k.triggered.Store(false)
}
