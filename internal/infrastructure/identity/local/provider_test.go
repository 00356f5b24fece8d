package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/knowledge-assistant/internal/core/domain"
	"github.com/kirillkom/knowledge-assistant/internal/infrastructure/repository/memory"
)

type notification struct {
	session *domain.Session
	err     error
}

func newTestProvider(t *testing.T, sessionFile string) (*Provider, <-chan notification) {
	t.Helper()
	provider, err := NewProvider(memory.NewCredentialStore(), Options{
		Secret:      []byte("test-secret"),
		TokenTTL:    time.Hour,
		SessionFile: sessionFile,
	})
	require.NoError(t, err)
	t.Cleanup(provider.Close)

	events := make(chan notification, 16)
	provider.Subscribe(func(session *domain.Session, err error) {
		events <- notification{session: session, err: err}
	})
	return provider, events
}

func next(t *testing.T, events <-chan notification) notification {
	t.Helper()
	select {
	case n := <-events:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for identity notification")
		return notification{}
	}
}

func TestFirstNotificationIsAnonymousWithoutStoredSession(t *testing.T) {
	_, events := newTestProvider(t, filepath.Join(t.TempDir(), "session.jwt"))

	first := next(t, events)
	assert.Nil(t, first.session)
	assert.NoError(t, first.err)
}

func TestSignUpSignsIn(t *testing.T) {
	provider, events := newTestProvider(t, "")
	next(t, events)

	require.NoError(t, provider.SignUp(context.Background(), " Ada@Example.com ", "secret1"))
	got := next(t, events)
	require.NotNil(t, got.session)
	assert.Equal(t, "ada@example.com", got.session.Email)
	assert.NotEmpty(t, got.session.UserID)
}

func TestSignUpRejectsDuplicateAndWeakInput(t *testing.T) {
	provider, _ := newTestProvider(t, "")
	ctx := context.Background()

	require.NoError(t, provider.SignUp(ctx, "ada@example.com", "secret1"))

	err := provider.SignUp(ctx, "ada@example.com", "secret2")
	assert.True(t, domain.IsKind(err, domain.ErrInvalidInput), "duplicate email: %v", err)

	err = provider.SignUp(ctx, "not-an-email", "secret1")
	assert.True(t, domain.IsKind(err, domain.ErrInvalidInput), "bad email: %v", err)

	err = provider.SignUp(ctx, "bob@example.com", "123")
	assert.True(t, domain.IsKind(err, domain.ErrInvalidInput), "weak password: %v", err)
}

func TestSignInChecksPassword(t *testing.T) {
	provider, events := newTestProvider(t, "")
	ctx := context.Background()
	next(t, events)

	require.NoError(t, provider.SignUp(ctx, "ada@example.com", "secret1"))
	signedUp := next(t, events)
	require.NoError(t, provider.SignOut(ctx))
	assert.Nil(t, next(t, events).session)

	err := provider.SignIn(ctx, "ada@example.com", "wrong")
	assert.True(t, domain.IsKind(err, domain.ErrUnauthorized), "wrong password: %v", err)
	err = provider.SignIn(ctx, "ghost@example.com", "secret1")
	assert.True(t, domain.IsKind(err, domain.ErrUnauthorized), "unknown user: %v", err)

	require.NoError(t, provider.SignIn(ctx, "ADA@example.com", "secret1"))
	signedIn := next(t, events)
	require.NotNil(t, signedIn.session)
	assert.Equal(t, signedUp.session.UserID, signedIn.session.UserID)
}

func TestSessionSurvivesRestart(t *testing.T) {
	sessionFile := filepath.Join(t.TempDir(), "state", "session.jwt")
	store := memory.NewCredentialStore()

	first, err := NewProvider(store, Options{Secret: []byte("k"), SessionFile: sessionFile})
	require.NoError(t, err)
	require.NoError(t, first.SignUp(context.Background(), "ada@example.com", "secret1"))
	first.Close()

	info, err := os.Stat(sessionFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := NewProvider(store, Options{Secret: []byte("k"), SessionFile: sessionFile})
	require.NoError(t, err)
	defer second.Close()

	events := make(chan notification, 1)
	second.Subscribe(func(session *domain.Session, err error) {
		events <- notification{session: session, err: err}
	})
	restored := next(t, events)
	require.NotNil(t, restored.session)
	assert.Equal(t, "ada@example.com", restored.session.Email)
}

func TestExpiredSessionIsDiscarded(t *testing.T) {
	sessionFile := filepath.Join(t.TempDir(), "session.jwt")
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	token, err := issueToken([]byte("k"), domain.Session{UserID: "u1"}, issued, time.Hour)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(sessionFile, []byte(token), 0o600))

	provider, err := NewProvider(memory.NewCredentialStore(), Options{
		Secret:      []byte("k"),
		SessionFile: sessionFile,
		Now:         func() time.Time { return issued.Add(2 * time.Hour) },
	})
	require.NoError(t, err)
	defer provider.Close()

	events := make(chan notification, 1)
	provider.Subscribe(func(session *domain.Session, err error) {
		events <- notification{session: session, err: err}
	})
	got := next(t, events)
	assert.Nil(t, got.session)
	assert.True(t, domain.IsKind(got.err, domain.ErrUnauthorized))

	_, statErr := os.Stat(sessionFile)
	assert.True(t, os.IsNotExist(statErr), "expired session file must be removed")
}

func TestNewProviderRequiresSecret(t *testing.T) {
	_, err := NewProvider(memory.NewCredentialStore(), Options{})
	require.Error(t, err)
}
