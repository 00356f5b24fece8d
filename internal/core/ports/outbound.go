package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/knowledge-assistant/internal/core/domain"
)

// IdentityProvider signs users in and out and notifies listeners of every
// session change. The first notification tells whether a session exists.
type IdentityProvider interface {
	Subscribe(listener func(*domain.Session, error)) (unsubscribe func())
	SignUp(ctx context.Context, email, password string) error
	SignIn(ctx context.Context, email, password string) error
	SignOut(ctx context.Context) error
}

// ProcessingBackend chunks and vectorizes documents and answers questions
// over them. A status other than success is reported as *domain.RejectionError.
type ProcessingBackend interface {
	Ping(ctx context.Context) error
	Upload(ctx context.Context, filename string, body io.Reader) (*domain.ProcessingReceipt, error)
	Summarize(ctx context.Context, filename string) (string, error)
	Query(ctx context.Context, queryText string) (*domain.QueryReply, error)
}

// MetadataStore keeps document records in per-user partitions. Subscribe
// delivers the full partition on every change, serialized per subscription.
type MetadataStore interface {
	Subscribe(
		ctx context.Context,
		userID string,
		onSnapshot func([]domain.DocumentRecord),
		onError func(error),
	) (Subscription, error)
	Upsert(ctx context.Context, userID string, record domain.DocumentRecord) error
	Delete(ctx context.Context, userID, documentID string) error
}

// ChangeFeed carries "partition changed" notifications between writers and
// live subscriptions.
type ChangeFeed interface {
	PublishCollectionChanged(ctx context.Context, userID string) error
	SubscribeCollectionChanged(userID string, handler func()) (Subscription, error)
}

// CredentialStore persists identities for the local identity provider.
type CredentialStore interface {
	CreateCredential(ctx context.Context, cred domain.Credential) error
	GetCredentialByEmail(ctx context.Context, email string) (*domain.Credential, error)
}

// FileSource opens a selected local file for upload.
type FileSource interface {
	Open(ctx context.Context, file domain.SelectedFile) (io.ReadCloser, error)
}

// Confirmer is the blocking yes/no gate shown before destructive actions.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ActionRecorder receives operational measurements from the use cases.
type ActionRecorder interface {
	RecordAction(action, outcome string, duration time.Duration)
	ObserveSnapshot(size int)
	RecordSubscriptionError()
}
