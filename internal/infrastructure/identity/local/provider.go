package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kirillkom/knowledge-assistant/internal/core/domain"
	"github.com/kirillkom/knowledge-assistant/internal/core/ports"
)

const minPasswordLength = 6

var errInvalidLogin = errors.New("invalid email or password")

type Options struct {
	Secret      []byte
	TokenTTL    time.Duration
	SessionFile string
	Logger      *slog.Logger
	Now         func() time.Time
}

type listenerEntry struct {
	id uint64
	fn func(*domain.Session, error)
}

// Provider is an email/password identity provider backed by a credential
// store. The signed-in session survives restarts through a signed token
// written to SessionFile.
type Provider struct {
	store       ports.CredentialStore
	secret      []byte
	ttl         time.Duration
	sessionFile string
	logger      *slog.Logger
	now         func() time.Time
	validate    *validator.Validate
	events      *dispatcher

	mu        sync.Mutex
	resolved  bool
	current   *domain.Session
	lastErr   error
	listeners []listenerEntry
	nextID    uint64
}

func NewProvider(store ports.CredentialStore, options Options) (*Provider, error) {
	if len(options.Secret) == 0 {
		return nil, errors.New("identity token secret is required")
	}
	ttl := options.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour * 14
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := options.Now
	if now == nil {
		now = time.Now
	}

	p := &Provider{
		store:       store,
		secret:      options.Secret,
		ttl:         ttl,
		sessionFile: options.SessionFile,
		logger:      logger,
		now:         now,
		validate:    validator.New(),
		events:      newDispatcher(),
	}
	p.events.enqueue(p.restore)
	return p, nil
}

// Subscribe registers listener. Once the stored session has been checked the
// listener receives the current state, then every later change, in order and
// never on the caller's goroutine.
func (p *Provider) Subscribe(listener func(*domain.Session, error)) func() {
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.listeners = append(p.listeners, listenerEntry{id: id, fn: listener})
	if p.resolved {
		session, err := copySession(p.current), p.lastErr
		p.events.enqueue(func() { listener(session, err) })
	}
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, entry := range p.listeners {
			if entry.id == id {
				p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
				return
			}
		}
	}
}

func (p *Provider) SignUp(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := p.validate.Var(email, "required,email"); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "sign up", fmt.Errorf("invalid email: %w", err))
	}
	if len(password) < minPasswordLength {
		return domain.WrapError(domain.ErrInvalidInput, "sign up", fmt.Errorf("password must have at least %d characters", minPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	cred := domain.Credential{
		UserID:       uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    p.now().UTC(),
	}
	if err := p.store.CreateCredential(ctx, cred); err != nil {
		return err
	}
	p.logger.Info("identity_signed_up", "user_id", cred.UserID)
	return p.establish(domain.Session{UserID: cred.UserID, Email: cred.Email})
}

func (p *Provider) SignIn(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	cred, err := p.store.GetCredentialByEmail(ctx, email)
	if err != nil {
		if domain.IsKind(err, domain.ErrUnauthorized) {
			return domain.WrapError(domain.ErrUnauthorized, "sign in", errInvalidLogin)
		}
		return fmt.Errorf("load credential: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(cred.PasswordHash, []byte(password)); err != nil {
		return domain.WrapError(domain.ErrUnauthorized, "sign in", errInvalidLogin)
	}
	return p.establish(domain.Session{UserID: cred.UserID, Email: cred.Email})
}

func (p *Provider) SignOut(context.Context) error {
	if p.sessionFile != "" {
		if err := os.Remove(p.sessionFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove session file: %w", err)
		}
	}
	p.publish(nil, nil)
	return nil
}

// Close stops notification delivery.
func (p *Provider) Close() {
	p.events.stop()
}

func (p *Provider) establish(session domain.Session) error {
	if p.sessionFile != "" {
		token, err := issueToken(p.secret, session, p.now(), p.ttl)
		if err != nil {
			return err
		}
		if err := writeSessionFile(p.sessionFile, token); err != nil {
			return err
		}
	}
	p.publish(&session, nil)
	return nil
}

// restore runs once, before any listener is notified. A sign-in that
// completed first wins over the stored session.
func (p *Provider) restore() {
	p.mu.Lock()
	resolved := p.resolved
	p.mu.Unlock()
	if resolved {
		return
	}

	session, err := p.loadSession()
	if err != nil {
		p.logger.Warn("identity_restore_failed", "error", err)
	}
	p.publish(session, err)
}

func (p *Provider) loadSession() (*domain.Session, error) {
	if p.sessionFile == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(p.sessionFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}
	session, err := parseToken(p.secret, strings.TrimSpace(string(raw)), p.now())
	if err != nil {
		_ = os.Remove(p.sessionFile)
		return nil, err
	}
	return session, nil
}

func (p *Provider) publish(session *domain.Session, err error) {
	p.mu.Lock()
	p.resolved = true
	p.current = copySession(session)
	p.lastErr = err
	listeners := append([]listenerEntry(nil), p.listeners...)
	for _, entry := range listeners {
		fn := entry.fn
		delivered := copySession(session)
		p.events.enqueue(func() { fn(delivered, err) })
	}
	p.mu.Unlock()
}

func writeSessionFile(path, token string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func copySession(session *domain.Session) *domain.Session {
	if session == nil {
		return nil
	}
	copied := *session
	return &copied
}
