package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/knowledge-assistant/internal/core/domain"
	"github.com/kirillkom/knowledge-assistant/internal/core/ports"
)

const reloadTimeout = 10 * time.Second

// DocumentStore keeps document records in user_documents, one partition per
// user. Writers announce changes on the feed; subscribers reload the whole
// partition when told.
type DocumentStore struct {
	db     *sql.DB
	feed   ports.ChangeFeed
	logger *slog.Logger
}

func NewDocumentStore(db *sql.DB, feed ports.ChangeFeed, logger *slog.Logger) *DocumentStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentStore{db: db, feed: feed, logger: logger}
}

// Upsert writes record under userID. uploaded_at is always stamped by the
// database, including on overwrite.
func (s *DocumentStore) Upsert(ctx context.Context, userID string, record domain.DocumentRecord) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(record.ID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "upsert document", errors.New("user id and document id are required"))
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO user_documents (user_id, id, filename, chunk_count, vectors_stored, uploaded_at)
VALUES ($1,$2,$3,$4,$5,now())
ON CONFLICT (user_id, id) DO UPDATE
SET filename = EXCLUDED.filename,
	chunk_count = EXCLUDED.chunk_count,
	vectors_stored = EXCLUDED.vectors_stored,
	uploaded_at = now()
`, userID, record.ID, record.Filename, record.ChunkCount, record.VectorsStored)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	s.announce(ctx, userID)
	return nil
}

// Delete removes one record. Deleting a missing record is not an error.
func (s *DocumentStore) Delete(ctx context.Context, userID, documentID string) error {
	_, err := s.db.ExecContext(ctx, `
DELETE FROM user_documents
WHERE user_id = $1 AND id = $2
`, userID, documentID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	s.announce(ctx, userID)
	return nil
}

func (s *DocumentStore) List(ctx context.Context, userID string) ([]domain.DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, filename, chunk_count, vectors_stored, uploaded_at
FROM user_documents
WHERE user_id = $1
ORDER BY uploaded_at DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DocumentRecord, 0)
	for rows.Next() {
		record := domain.DocumentRecord{OwnerID: userID}
		if err := rows.Scan(&record.ID, &record.Filename, &record.ChunkCount, &record.VectorsStored, &record.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

// Subscribe delivers the partition once right away and again after every
// change announced on the feed. Deliveries for one subscription never overlap.
func (s *DocumentStore) Subscribe(
	ctx context.Context,
	userID string,
	onSnapshot func([]domain.DocumentRecord),
	onError func(error),
) (ports.Subscription, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "subscribe documents", errors.New("user id is required"))
	}

	watch := &partitionWatch{store: s, userID: userID, onSnapshot: onSnapshot, onError: onError}
	feedSub, err := s.feed.SubscribeCollectionChanged(userID, func() { go watch.reload() })
	if err != nil {
		return nil, fmt.Errorf("subscribe document changes: %w", err)
	}
	watch.feedSub = feedSub

	go watch.reload()
	return watch, nil
}

func (s *DocumentStore) announce(ctx context.Context, userID string) {
	if err := s.feed.PublishCollectionChanged(ctx, userID); err != nil {
		s.logger.Warn("document_change_publish_failed", "user_id", userID, "error", err)
	}
}

type partitionWatch struct {
	store      *DocumentStore
	userID     string
	onSnapshot func([]domain.DocumentRecord)
	onError    func(error)
	feedSub    ports.Subscription

	mu     sync.Mutex
	closed bool
}

func (w *partitionWatch) reload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
	defer cancel()
	records, err := w.store.List(ctx, w.userID)
	if err != nil {
		if w.onError != nil {
			w.onError(err)
		}
		return
	}
	if w.onSnapshot != nil {
		w.onSnapshot(records)
	}
}

func (w *partitionWatch) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	if w.feedSub == nil {
		return nil
	}
	return w.feedSub.Close()
}
