package ports

import (
	"context"

	"github.com/kirillkom/knowledge-assistant/internal/core/domain"
)

// SessionService is the inbound contract of the session gate.
type SessionService interface {
	State() (domain.AuthState, *domain.Session)
	SignUp(ctx context.Context, email, password string) error
	SignIn(ctx context.Context, email, password string) error
	SignOut(ctx context.Context) error
}

// DocumentRegistry is the read model of the synced document snapshot.
type DocumentRegistry interface {
	Snapshot() []domain.DocumentRecord
	Count() int
	Find(documentID string) (domain.DocumentRecord, bool)
}

// DocumentUploader runs the process-then-register upload saga.
type DocumentUploader interface {
	Select(file *domain.SelectedFile)
	Selection() *domain.SelectedFile
	Upload(ctx context.Context, file *domain.SelectedFile) domain.UploadOutcome
	UploadSelected(ctx context.Context) domain.UploadOutcome
	Phase() domain.UploadPhase
	Notice() domain.Notice
	Busy() bool
	Close()
}

// DocumentDeleter removes metadata records after confirmation.
type DocumentDeleter interface {
	Delete(ctx context.Context, documentID, filename string) domain.DeleteOutcome
	// WithConfirmer returns a deleter that asks confirmer instead.
	WithConfirmer(confirmer Confirmer) DocumentDeleter
}

// ChatService drives serialized question/answer turns.
type ChatService interface {
	Ask(ctx context.Context, question string) error
	Transcript() []domain.ChatMessage
	LastSources() []string
	Availability() string
	Busy() bool
	Close()
}

// DocumentSummarizer requests a summary for one document at a time.
type DocumentSummarizer interface {
	Summarize(ctx context.Context, filename string) domain.SummaryOutcome
	Last() (domain.SummaryOutcome, bool)
	Busy() bool
	Close()
}
