package memory

import (
	"context"
	"sync"

	"github.com/kirillkom/knowledge-assistant/internal/core/ports"
)

// Feed is an in-process change feed. Handlers run on the publisher's
// goroutine.
type Feed struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string]map[uint64]func()
}

func NewFeed() *Feed {
	return &Feed{handlers: make(map[string]map[uint64]func())}
}

func (f *Feed) PublishCollectionChanged(_ context.Context, userID string) error {
	f.mu.RLock()
	handlers := make([]func(), 0, len(f.handlers[userID]))
	for _, handler := range f.handlers[userID] {
		handlers = append(handlers, handler)
	}
	f.mu.RUnlock()

	for _, handler := range handlers {
		handler()
	}
	return nil
}

func (f *Feed) SubscribeCollectionChanged(userID string, handler func()) (ports.Subscription, error) {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	if f.handlers[userID] == nil {
		f.handlers[userID] = make(map[uint64]func())
	}
	f.handlers[userID][id] = handler
	f.mu.Unlock()

	return ports.SubscriptionFunc(func() error {
		f.mu.Lock()
		delete(f.handlers[userID], id)
		if len(f.handlers[userID]) == 0 {
			delete(f.handlers, userID)
		}
		f.mu.Unlock()
		return nil
	}), nil
}
