package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/knowledge-assistant/internal/core/domain"
	"github.com/kirillkom/knowledge-assistant/internal/core/ports"
)

// SummarizationTrigger asks the backend for one document summary at a time.
type SummarizationTrigger struct {
	backend  ports.ProcessingBackend
	recorder ports.ActionRecorder
	logger   *slog.Logger

	guard inflightGuard

	mu     sync.RWMutex
	last   *domain.SummaryOutcome
	closed bool

	hook changeHook
}

func NewSummarizationTrigger(backend ports.ProcessingBackend, recorder ports.ActionRecorder, logger *slog.Logger) *SummarizationTrigger {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &SummarizationTrigger{
		backend:  backend,
		recorder: recorder,
		logger:   loggerOrDefault(logger),
	}
}

func (s *SummarizationTrigger) OnChange(fn func()) {
	s.hook.set(fn)
}

func (s *SummarizationTrigger) Summarize(ctx context.Context, filename string) domain.SummaryOutcome {
	if strings.TrimSpace(filename) == "" {
		return domain.SummaryOutcome{
			Err: domain.WrapError(domain.ErrInvalidInput, "summarize", errors.New("filename is required")),
		}
	}
	if !s.guard.tryAcquire() {
		return domain.SummaryOutcome{
			Filename: filename,
			Notice:   domain.ErrorNotice(domain.SummaryBusyMessage),
			Err:      domain.ErrBusy,
		}
	}
	defer func() {
		s.guard.release()
		if !s.isClosed() {
			s.hook.fire()
		}
	}()
	s.hook.fire()

	start := time.Now()
	summary, err := s.backend.Summarize(ctx, filename)
	outcome := domain.SummaryOutcome{Filename: filename}
	label := "success"
	switch message, rejected := domain.RejectionMessage(err); {
	case err == nil:
		outcome.Summary = summary
		outcome.Notice = domain.SuccessNotice(fmt.Sprintf("Summary for %s:\n\n%s", filename, summary))
	case rejected:
		label = "rejected"
		s.logger.Warn("summary_rejected", "filename", filename, "message", message)
		outcome.Notice = domain.ErrorNotice(fmt.Sprintf("Error summarizing %s: %s", filename, message))
		outcome.Err = err
	default:
		label = "error"
		s.logger.Error("summary_failed", "filename", filename, "error", err)
		outcome.Notice = domain.ErrorNotice(domain.SummaryUnreachableMessage)
		outcome.Err = err
	}
	s.recorder.RecordAction("summarize", label, time.Since(start))

	s.mu.Lock()
	if !s.closed {
		s.last = &outcome
	}
	s.mu.Unlock()
	return outcome
}

func (s *SummarizationTrigger) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Last returns the most recent completed summary outcome, if any.
func (s *SummarizationTrigger) Last() (domain.SummaryOutcome, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return domain.SummaryOutcome{}, false
	}
	return *s.last, true
}

func (s *SummarizationTrigger) Busy() bool {
	return s.guard.Busy()
}

func (s *SummarizationTrigger) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
