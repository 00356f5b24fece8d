package usecase

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// inflightGuard admits one caller at a time. A second caller is turned away,
// never queued.
type inflightGuard struct {
	busy atomic.Bool
}

func (g *inflightGuard) tryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

func (g *inflightGuard) release() {
	g.busy.Store(false)
}

func (g *inflightGuard) Busy() bool {
	return g.busy.Load()
}

type changeHook struct {
	mu sync.RWMutex
	fn func()
}

func (h *changeHook) set(fn func()) {
	h.mu.Lock()
	h.fn = fn
	h.mu.Unlock()
}

func (h *changeHook) fire() {
	h.mu.RLock()
	fn := h.fn
	h.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

type nopRecorder struct{}

func (nopRecorder) RecordAction(string, string, time.Duration) {}
func (nopRecorder) ObserveSnapshot(int)                        {}
func (nopRecorder) RecordSubscriptionError()                   {}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
