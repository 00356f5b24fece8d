package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/kirillkom/knowledge-assistant/internal/core/domain"
	"github.com/kirillkom/knowledge-assistant/internal/core/ports"
)

// Workspace is everything a signed-in user works with. It is built when a
// session starts and torn down when the session ends or changes user.
type Workspace struct {
	Session   domain.Session
	Registry  ports.DocumentRegistry
	Uploads   ports.DocumentUploader
	Deletions ports.DocumentDeleter
	Chat      ports.ChatService
	Summaries ports.DocumentSummarizer
}

var (
	_ ports.SessionService     = (*SessionGate)(nil)
	_ ports.SessionService     = (*Shell)(nil)
	_ ports.DocumentRegistry   = (*RegistrySync)(nil)
	_ ports.DocumentUploader   = (*UploadOrchestrator)(nil)
	_ ports.DocumentDeleter    = (*DeletionOrchestrator)(nil)
	_ ports.ChatService        = (*ChatSession)(nil)
	_ ports.DocumentSummarizer = (*SummarizationTrigger)(nil)
)

func (w *Workspace) close() {
	w.Uploads.Close()
	w.Chat.Close()
	w.Summaries.Close()
}

type ShellDeps struct {
	Identity  ports.IdentityProvider
	Backend   ports.ProcessingBackend
	Store     ports.MetadataStore
	Files     ports.FileSource
	Confirmer ports.Confirmer
	Recorder  ports.ActionRecorder
	Logger    *slog.Logger
}

// Shell routes the session gate's state to a per-user workspace.
type Shell struct {
	deps     ShellDeps
	gate     *SessionGate
	registry *RegistrySync
	logger   *slog.Logger

	mu        sync.RWMutex
	ctx       context.Context
	state     domain.AuthState
	session   *domain.Session
	workspace *Workspace

	hook changeHook
}

func NewShell(deps ShellDeps) *Shell {
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	deps.Logger = loggerOrDefault(deps.Logger)

	s := &Shell{
		deps:     deps,
		gate:     NewSessionGate(deps.Identity, deps.Logger),
		registry: NewRegistrySync(deps.Store, deps.Recorder, deps.Logger),
		logger:   deps.Logger,
		ctx:      context.Background(),
		state:    domain.AuthUnknown,
	}
	s.registry.OnChange(s.hook.fire)
	s.gate.Watch(s.onSession)
	return s
}

// OnChange sets the callback fired after any visible state changed.
func (s *Shell) OnChange(fn func()) {
	s.hook.set(fn)
}

// Start subscribes to identity changes. ctx is used for subscribe calls
// made on behalf of later sessions.
func (s *Shell) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.gate.Start()
}

// onSession swaps the workspace when the user changes. While the registry
// is rebound the shell reports AuthUnknown, so no caller can pair the new
// session with the previous user's snapshot.
func (s *Shell) onSession(state domain.AuthState, session *domain.Session) {
	s.mu.Lock()
	ctx := s.ctx
	previous := s.workspace
	if previous != nil && session != nil && previous.Session.UserID == session.UserID {
		s.state = state
		s.session = session
		s.mu.Unlock()
		s.hook.fire()
		return
	}
	s.state = domain.AuthUnknown
	s.session = nil
	s.workspace = nil
	s.mu.Unlock()

	if previous != nil {
		previous.close()
	}
	s.registry.Bind(ctx, session)

	var next *Workspace
	if state == domain.AuthAuthenticated && session != nil {
		next = s.newWorkspace(*session)
	}
	s.mu.Lock()
	s.state = state
	s.session = session
	s.workspace = next
	s.mu.Unlock()
	s.hook.fire()
}

func (s *Shell) newWorkspace(session domain.Session) *Workspace {
	logger := s.logger.With("user_id", session.UserID)
	uploads := NewUploadOrchestrator(session, s.deps.Backend, s.deps.Store, s.deps.Files, s.deps.Recorder, logger)
	chat := NewChatSession(s.deps.Backend, s.registry, s.deps.Recorder, logger)
	summaries := NewSummarizationTrigger(s.deps.Backend, s.deps.Recorder, logger)
	uploads.OnChange(s.hook.fire)
	chat.OnChange(s.hook.fire)
	summaries.OnChange(s.hook.fire)
	return &Workspace{
		Session:   session,
		Registry:  s.registry,
		Uploads:   uploads,
		Deletions: NewDeletionOrchestrator(session, s.deps.Store, s.deps.Confirmer, s.deps.Recorder, logger),
		Chat:      chat,
		Summaries: summaries,
	}
}

// State is the session state the current workspace was built for. It moves
// together with the workspace, never ahead of it.
func (s *Shell) State() (domain.AuthState, *domain.Session) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return s.state, nil
	}
	copied := *s.session
	return s.state, &copied
}

// Workspace returns the signed-in workspace. It fails with ErrTemporary
// while the session is still unknown and ErrUnauthorized when signed out.
func (s *Shell) Workspace() (*Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch s.state {
	case domain.AuthUnknown:
		return nil, domain.WrapError(domain.ErrTemporary, "workspace", errors.New("session is not resolved yet"))
	case domain.AuthAnonymous:
		return nil, domain.ErrUnauthorized
	}
	if s.workspace == nil {
		return nil, domain.ErrUnauthorized
	}
	return s.workspace, nil
}

func (s *Shell) SignUp(ctx context.Context, email, password string) error {
	return s.gate.SignUp(ctx, email, password)
}

func (s *Shell) SignIn(ctx context.Context, email, password string) error {
	return s.gate.SignIn(ctx, email, password)
}

func (s *Shell) SignOut(ctx context.Context) error {
	return s.gate.SignOut(ctx)
}

func (s *Shell) Close() {
	s.gate.Close()
	s.registry.Close()
	s.mu.Lock()
	workspace := s.workspace
	s.workspace = nil
	s.mu.Unlock()
	if workspace != nil {
		workspace.close()
	}
}
