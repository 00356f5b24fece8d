package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/knowledge-assistant/internal/core/domain"
	"github.com/kirillkom/knowledge-assistant/internal/core/ports"
)

// DocumentStore keeps per-user partitions in memory. It serves single-process
// runs and tests; nothing survives a restart.
type DocumentStore struct {
	feed ports.ChangeFeed
	now  func() time.Time

	mu         sync.RWMutex
	partitions map[string]map[string]domain.DocumentRecord
}

func NewDocumentStore(feed ports.ChangeFeed) *DocumentStore {
	if feed == nil {
		feed = NewFeed()
	}
	return &DocumentStore{
		feed:       feed,
		now:        func() time.Time { return time.Now().UTC() },
		partitions: make(map[string]map[string]domain.DocumentRecord),
	}
}

// WithClock replaces the server timestamp source.
func (s *DocumentStore) WithClock(now func() time.Time) *DocumentStore {
	s.now = now
	return s
}

func (s *DocumentStore) Upsert(ctx context.Context, userID string, record domain.DocumentRecord) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(record.ID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "upsert document", errors.New("user id and document id are required"))
	}

	s.mu.Lock()
	partition := s.partitions[userID]
	if partition == nil {
		partition = make(map[string]domain.DocumentRecord)
		s.partitions[userID] = partition
	}
	record.OwnerID = userID
	record.UploadedAt = s.now()
	partition[record.ID] = record
	s.mu.Unlock()

	return s.feed.PublishCollectionChanged(ctx, userID)
}

func (s *DocumentStore) Delete(ctx context.Context, userID, documentID string) error {
	s.mu.Lock()
	delete(s.partitions[userID], documentID)
	s.mu.Unlock()
	return s.feed.PublishCollectionChanged(ctx, userID)
}

func (s *DocumentStore) List(_ context.Context, userID string) ([]domain.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.DocumentRecord, 0, len(s.partitions[userID]))
	for _, record := range s.partitions[userID] {
		out = append(out, record)
	}
	return domain.SortSnapshot(out), nil
}

// Subscribe delivers the current partition before returning and then once per
// change. Deliveries for one subscription are serialized.
func (s *DocumentStore) Subscribe(
	ctx context.Context,
	userID string,
	onSnapshot func([]domain.DocumentRecord),
	_ func(error),
) (ports.Subscription, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "subscribe documents", errors.New("user id is required"))
	}

	var (
		mu     sync.Mutex
		closed bool
	)
	deliver := func() {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		records, _ := s.List(ctx, userID)
		onSnapshot(records)
	}

	feedSub, err := s.feed.SubscribeCollectionChanged(userID, deliver)
	if err != nil {
		return nil, err
	}
	deliver()

	return ports.SubscriptionFunc(func() error {
		mu.Lock()
		closed = true
		mu.Unlock()
		return feedSub.Close()
	}), nil
}
