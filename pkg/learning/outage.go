package learning

import (
	"log/slog"
	"sync"
)

// outageTracker surfaces a single warning per contiguous storage outage
// (§7: "a single warning is surfaced per contiguous outage"), modeled on
// the teacher's stateful warning-tracker idiom.
type outageTracker struct {
	mu      sync.Mutex
	active  bool
	lastErr error
}

func (o *outageTracker) recordFailure(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active {
		o.lastErr = err
		return
	}
	o.active = true
	o.lastErr = err
	slog.Warn("learning store degraded", "error", err)
}

func (o *outageTracker) recordSuccess() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active {
		slog.Info("learning store recovered")
	}
	o.active = false
	o.lastErr = nil
}

func (o *outageTracker) degraded() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

func (o *outageTracker) lastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}
