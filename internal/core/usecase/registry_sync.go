package usecase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kirillkom/knowledge-assistant/internal/core/domain"
	"github.com/kirillkom/knowledge-assistant/internal/core/ports"
)

// RegistrySync keeps a local, ordered snapshot of one user's document
// records. Every feed emission replaces the snapshot in full; local writes
// are never merged in, so a new record shows up only once the feed echoes it.
type RegistrySync struct {
	store    ports.MetadataStore
	recorder ports.ActionRecorder
	logger   *slog.Logger

	bindMu sync.Mutex

	mu         sync.RWMutex
	generation uint64
	userID     string
	sub        ports.Subscription
	snapshot   []domain.DocumentRecord
	closed     bool

	hook changeHook
}

func NewRegistrySync(store ports.MetadataStore, recorder ports.ActionRecorder, logger *slog.Logger) *RegistrySync {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &RegistrySync{
		store:    store,
		recorder: recorder,
		logger:   loggerOrDefault(logger),
	}
}

// OnChange sets the callback fired after the snapshot or binding changed.
func (r *RegistrySync) OnChange(fn func()) {
	r.hook.set(fn)
}

// Bind scopes the registry to session. The previous subscription is closed
// before a new one is opened; a nil session leaves the registry unbound and
// empty. ctx bounds only the subscribe call.
func (r *RegistrySync) Bind(ctx context.Context, session *domain.Session) {
	r.bindMu.Lock()
	defer r.bindMu.Unlock()

	userID := userIDOf(session)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if userID != "" && userID == r.userID && r.sub != nil {
		r.mu.Unlock()
		return
	}
	previous := r.sub
	r.sub = nil
	r.generation++
	generation := r.generation
	r.userID = userID
	r.snapshot = nil
	r.mu.Unlock()

	if previous != nil {
		if err := previous.Close(); err != nil {
			r.logger.Warn("registry_unsubscribe_failed", "error", err)
		}
	}

	if userID == "" {
		r.hook.fire()
		return
	}

	sub, err := r.store.Subscribe(
		ctx,
		userID,
		func(records []domain.DocumentRecord) { r.apply(generation, records) },
		func(err error) { r.fail(generation, err) },
	)
	if err != nil {
		r.fail(generation, err)
		r.hook.fire()
		return
	}

	r.mu.Lock()
	if r.closed || r.generation != generation {
		r.mu.Unlock()
		_ = sub.Close()
		return
	}
	r.sub = sub
	r.mu.Unlock()
	r.hook.fire()
}

func (r *RegistrySync) apply(generation uint64, records []domain.DocumentRecord) {
	sorted := domain.SortSnapshot(records)

	r.mu.Lock()
	if r.closed || r.generation != generation {
		r.mu.Unlock()
		return
	}
	r.snapshot = sorted
	r.mu.Unlock()

	r.recorder.ObserveSnapshot(len(sorted))
	r.hook.fire()
}

// fail keeps the last-known snapshot: a broken feed is logged, not surfaced.
func (r *RegistrySync) fail(generation uint64, err error) {
	r.mu.RLock()
	stale := r.closed || r.generation != generation
	userID := r.userID
	r.mu.RUnlock()
	if stale {
		return
	}
	r.recorder.RecordSubscriptionError()
	r.logger.Error("registry_subscription_error", "user_id", userID, "error", err)
}

// Snapshot returns a copy of the current ordered records.
func (r *RegistrySync) Snapshot() []domain.DocumentRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.DocumentRecord, len(r.snapshot))
	copy(out, r.snapshot)
	return out
}

func (r *RegistrySync) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.snapshot)
}

// Find returns the synced record with the given id.
func (r *RegistrySync) Find(documentID string) (domain.DocumentRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, record := range r.snapshot {
		if record.ID == documentID {
			return record, true
		}
	}
	return domain.DocumentRecord{}, false
}

// Close releases the live subscription. Events delivered afterwards are dropped.
func (r *RegistrySync) Close() {
	r.bindMu.Lock()
	defer r.bindMu.Unlock()

	r.mu.Lock()
	r.closed = true
	sub := r.sub
	r.sub = nil
	r.mu.Unlock()

	if sub != nil {
		if err := sub.Close(); err != nil {
			r.logger.Warn("registry_unsubscribe_failed", "error", err)
		}
	}
}
