package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/knowledge-assistant/internal/core/domain"
	"github.com/kirillkom/knowledge-assistant/internal/core/ports"
)

type backendFake struct {
	mu sync.Mutex

	receipt   *domain.ProcessingReceipt
	uploadErr error
	summary   string
	summErr   error
	reply     *domain.QueryReply
	queryErr  error

	// gate, when set, blocks each call until a value is received.
	gate    chan struct{}
	entered chan struct{}

	uploads    []string
	summarized []string
	queries    []string
}

func (f *backendFake) wait(ctx context.Context) error {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate == nil {
		return nil
	}
	select {
	case <-f.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *backendFake) Ping(context.Context) error { return nil }

func (f *backendFake) Upload(ctx context.Context, filename string, body io.Reader) (*domain.ProcessingReceipt, error) {
	if _, err := io.ReadAll(body); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.uploads = append(f.uploads, filename)
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return f.receipt, nil
}

func (f *backendFake) Summarize(ctx context.Context, filename string) (string, error) {
	f.mu.Lock()
	f.summarized = append(f.summarized, filename)
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	return f.summary, f.summErr
}

func (f *backendFake) Query(ctx context.Context, queryText string) (*domain.QueryReply, error) {
	f.mu.Lock()
	f.queries = append(f.queries, queryText)
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.reply, f.queryErr
}

func (f *backendFake) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads) + len(f.summarized) + len(f.queries)
}

type storeSubscription struct {
	userID     string
	onSnapshot func([]domain.DocumentRecord)
	onError    func(error)
	closed     bool
}

type storeFake struct {
	mu sync.Mutex

	subscribeErr error
	upsertErr    error
	deleteErr    error

	// subscribeHook, when set, runs before each subscription is recorded.
	subscribeHook func(userID string)

	subs    []*storeSubscription
	upserts []domain.DocumentRecord
	deletes []string
}

func (f *storeFake) Subscribe(
	_ context.Context,
	userID string,
	onSnapshot func([]domain.DocumentRecord),
	onError func(error),
) (ports.Subscription, error) {
	if f.subscribeHook != nil {
		f.subscribeHook(userID)
	}
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	sub := &storeSubscription{userID: userID, onSnapshot: onSnapshot, onError: onError}
	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.mu.Unlock()
	return ports.SubscriptionFunc(func() error {
		f.mu.Lock()
		sub.closed = true
		f.mu.Unlock()
		return nil
	}), nil
}

func (f *storeFake) Upsert(_ context.Context, userID string, record domain.DocumentRecord) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	f.upserts = append(f.upserts, record)
	f.mu.Unlock()
	return nil
}

func (f *storeFake) Delete(_ context.Context, userID, documentID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	f.deletes = append(f.deletes, userID+"/"+documentID)
	f.mu.Unlock()
	return nil
}

func (f *storeFake) sub(i int) *storeSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[i]
}

func (f *storeFake) subCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

type filesFake struct {
	err    error
	opened []string
}

func (f *filesFake) Open(_ context.Context, file domain.SelectedFile) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.opened = append(f.opened, file.Path)
	return io.NopCloser(strings.NewReader("%PDF-1.4")), nil
}

type identityFake struct {
	mu       sync.Mutex
	listener func(*domain.Session, error)
	signIns  []string
	signUps  []string
	signOuts int
	err      error
	unsubbed bool
}

func (f *identityFake) Subscribe(listener func(*domain.Session, error)) func() {
	f.mu.Lock()
	f.listener = listener
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.unsubbed = true
		f.mu.Unlock()
	}
}

func (f *identityFake) emit(session *domain.Session, err error) {
	f.mu.Lock()
	listener := f.listener
	f.mu.Unlock()
	if listener != nil {
		listener(session, err)
	}
}

func (f *identityFake) SignUp(_ context.Context, email, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signUps = append(f.signUps, email)
	return f.err
}

func (f *identityFake) SignIn(_ context.Context, email, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signIns = append(f.signIns, email)
	return f.err
}

func (f *identityFake) SignOut(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOuts++
	return f.err
}

type confirmFake struct {
	answer  bool
	prompts []string
}

func (f *confirmFake) Confirm(_ context.Context, prompt string) bool {
	f.prompts = append(f.prompts, prompt)
	return f.answer
}

type recorderFake struct {
	mu        sync.Mutex
	actions   []string
	snapshots []int
	subErrors int
}

func (f *recorderFake) RecordAction(action, outcome string, _ time.Duration) {
	f.mu.Lock()
	f.actions = append(f.actions, action+":"+outcome)
	f.mu.Unlock()
}

func (f *recorderFake) ObserveSnapshot(size int) {
	f.mu.Lock()
	f.snapshots = append(f.snapshots, size)
	f.mu.Unlock()
}

func (f *recorderFake) RecordSubscriptionError() {
	f.mu.Lock()
	f.subErrors++
	f.mu.Unlock()
}

var errUnreachable = errors.New("dial tcp 127.0.0.1:8000: connect: connection refused")

func rejected(operation, message string) error {
	return &domain.RejectionError{Operation: operation, Message: message}
}
