package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/kirillkom/knowledge-assistant/internal/core/domain"
	"github.com/kirillkom/knowledge-assistant/internal/core/ports"
)

// SessionListener is called after every identity change, in delivery order.
type SessionListener func(state domain.AuthState, session *domain.Session)

// SessionGate tracks the current session. Until the identity provider sends
// its first notification the state is AuthUnknown.
type SessionGate struct {
	provider ports.IdentityProvider
	logger   *slog.Logger

	notifyMu sync.Mutex

	mu          sync.RWMutex
	state       domain.AuthState
	session     *domain.Session
	listeners   []SessionListener
	unsubscribe func()
	started     bool
	closed      bool
}

func NewSessionGate(provider ports.IdentityProvider, logger *slog.Logger) *SessionGate {
	return &SessionGate{
		provider: provider,
		logger:   loggerOrDefault(logger),
		state:    domain.AuthUnknown,
	}
}

// Watch registers a listener for subsequent changes.
func (g *SessionGate) Watch(listener SessionListener) {
	if listener == nil {
		return
	}
	g.mu.Lock()
	g.listeners = append(g.listeners, listener)
	g.mu.Unlock()
}

// Start subscribes to the identity provider. Calling it again is a no-op.
func (g *SessionGate) Start() {
	g.mu.Lock()
	if g.started || g.closed {
		g.mu.Unlock()
		return
	}
	g.started = true
	g.mu.Unlock()

	unsubscribe := g.provider.Subscribe(g.handle)

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		if unsubscribe != nil {
			unsubscribe()
		}
		return
	}
	g.unsubscribe = unsubscribe
	g.mu.Unlock()
}

func (g *SessionGate) handle(session *domain.Session, err error) {
	g.notifyMu.Lock()
	defer g.notifyMu.Unlock()

	if err != nil {
		g.logger.Warn("identity_provider_error", "error", err)
		session = nil
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	state := domain.AuthAnonymous
	var current *domain.Session
	if session != nil {
		copied := *session
		current = &copied
		state = domain.AuthAuthenticated
	}
	g.state = state
	g.session = current
	listeners := append([]SessionListener(nil), g.listeners...)
	g.mu.Unlock()

	g.logger.Info("session_changed", "state", string(state), "user_id", userIDOf(current))
	for _, listener := range listeners {
		listener(state, current)
	}
}

// State returns the current auth state and a copy of the session, if any.
func (g *SessionGate) State() (domain.AuthState, *domain.Session) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.session == nil {
		return g.state, nil
	}
	copied := *g.session
	return g.state, &copied
}

func (g *SessionGate) SignUp(ctx context.Context, email, password string) error {
	if err := validateCredentials(email, password); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "sign up", err)
	}
	return g.provider.SignUp(ctx, strings.TrimSpace(email), password)
}

func (g *SessionGate) SignIn(ctx context.Context, email, password string) error {
	if err := validateCredentials(email, password); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "sign in", err)
	}
	return g.provider.SignIn(ctx, strings.TrimSpace(email), password)
}

func (g *SessionGate) SignOut(ctx context.Context) error {
	return g.provider.SignOut(ctx)
}

// Close unsubscribes from the identity provider. Later notifications are dropped.
func (g *SessionGate) Close() {
	g.mu.Lock()
	g.closed = true
	unsubscribe := g.unsubscribe
	g.unsubscribe = nil
	g.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func validateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return errors.New("email is required")
	}
	if password == "" {
		return errors.New("password is required")
	}
	return nil
}

func userIDOf(session *domain.Session) string {
	if session == nil {
		return ""
	}
	return session.UserID
}
