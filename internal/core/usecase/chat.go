package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/knowledge-assistant/internal/core/domain"
	"github.com/kirillkom/knowledge-assistant/internal/core/ports"
)

// ChatSession holds the in-memory transcript for one signed-in session.
// Turns are serialized: a question asked while another is pending is
// refused and leaves the transcript untouched.
type ChatSession struct {
	backend  ports.ProcessingBackend
	registry ports.DocumentRegistry
	recorder ports.ActionRecorder
	logger   *slog.Logger

	guard inflightGuard

	mu          sync.RWMutex
	transcript  []domain.ChatMessage
	lastSources []string
	closed      bool

	hook changeHook
}

func NewChatSession(
	backend ports.ProcessingBackend,
	registry ports.DocumentRegistry,
	recorder ports.ActionRecorder,
	logger *slog.Logger,
) *ChatSession {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &ChatSession{
		backend:  backend,
		registry: registry,
		recorder: recorder,
		logger:   loggerOrDefault(logger),
		transcript: []domain.ChatMessage{
			newChatMessage(domain.RoleAI, domain.ChatGreeting),
		},
	}
}

func (c *ChatSession) OnChange(fn func()) {
	c.hook.set(fn)
}

// Ask appends the question, waits for the backend and appends exactly one
// reply. Backend failures become fixed replies rather than errors.
func (c *ChatSession) Ask(ctx context.Context, question string) error {
	if strings.TrimSpace(question) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("question is empty"))
	}
	if !c.guard.tryAcquire() {
		return domain.ErrBusy
	}
	defer c.guard.release()

	if !c.appendMessage(newChatMessage(domain.RoleUser, question)) {
		return nil
	}

	start := time.Now()
	reply, err := c.backend.Query(ctx, question)
	answer, sources, outcome := c.replyFor(reply, err)
	c.recorder.RecordAction("query", outcome, time.Since(start))

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.transcript = append(c.transcript, newChatMessage(domain.RoleAI, answer))
	c.lastSources = sources
	c.mu.Unlock()
	c.hook.fire()
	return nil
}

func (c *ChatSession) replyFor(reply *domain.QueryReply, err error) (string, []string, string) {
	if err != nil {
		if message, rejected := domain.RejectionMessage(err); rejected {
			c.logger.Warn("query_rejected", "message", message)
			return domain.ChatRejectedReply, nil, "rejected"
		}
		c.logger.Error("query_failed", "error", err)
		return domain.ChatUnreachableReply, nil, "error"
	}
	if reply == nil {
		return "", nil, "success"
	}
	return reply.Answer, append([]string(nil), reply.Sources...), "success"
}

func (c *ChatSession) appendMessage(message domain.ChatMessage) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.transcript = append(c.transcript, message)
	c.mu.Unlock()
	c.hook.fire()
	return true
}

func (c *ChatSession) Transcript() []domain.ChatMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.ChatMessage, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// LastSources returns the source chunks behind the latest answer.
func (c *ChatSession) LastSources() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.lastSources...)
}

// Availability reports how many documents the chat can draw on.
func (c *ChatSession) Availability() string {
	if c.registry == nil {
		return domain.AvailabilityLabel(0)
	}
	return domain.AvailabilityLabel(c.registry.Count())
}

func (c *ChatSession) Busy() bool {
	return c.guard.Busy()
}

// Close discards the session. Replies that arrive afterwards are dropped.
func (c *ChatSession) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func newChatMessage(role domain.ChatRole, content string) domain.ChatMessage {
	return domain.ChatMessage{
		ID:      uuid.NewString(),
		Role:    role,
		Content: content,
	}
}
