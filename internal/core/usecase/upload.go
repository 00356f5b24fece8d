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

// UploadOrchestrator drives the two-step upload saga for one session:
// the backend processes the file, then the metadata record is written.
// If the second step fails the backend keeps its vectors; nothing
// compensates for that.
type UploadOrchestrator struct {
	owner    domain.Session
	backend  ports.ProcessingBackend
	store    ports.MetadataStore
	files    ports.FileSource
	recorder ports.ActionRecorder
	logger   *slog.Logger

	guard inflightGuard

	mu        sync.RWMutex
	phase     domain.UploadPhase
	selection *domain.SelectedFile
	notice    domain.Notice
	closed    bool

	hook changeHook
}

func NewUploadOrchestrator(
	owner domain.Session,
	backend ports.ProcessingBackend,
	store ports.MetadataStore,
	files ports.FileSource,
	recorder ports.ActionRecorder,
	logger *slog.Logger,
) *UploadOrchestrator {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &UploadOrchestrator{
		owner:    owner,
		backend:  backend,
		store:    store,
		files:    files,
		recorder: recorder,
		logger:   loggerOrDefault(logger),
		phase:    domain.UploadIdle,
	}
}

func (u *UploadOrchestrator) OnChange(fn func()) {
	u.hook.set(fn)
}

// Select replaces the current file selection and clears the last notice.
func (u *UploadOrchestrator) Select(file *domain.SelectedFile) {
	u.mu.Lock()
	if file != nil {
		copied := *file
		file = &copied
	}
	u.selection = file
	u.notice = domain.Notice{}
	u.mu.Unlock()
	u.hook.fire()
}

func (u *UploadOrchestrator) Selection() *domain.SelectedFile {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.selection == nil {
		return nil
	}
	copied := *u.selection
	return &copied
}

func (u *UploadOrchestrator) Phase() domain.UploadPhase {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.phase
}

func (u *UploadOrchestrator) Notice() domain.Notice {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.notice
}

func (u *UploadOrchestrator) Busy() bool {
	return u.guard.Busy()
}

// UploadSelected uploads the current selection.
func (u *UploadOrchestrator) UploadSelected(ctx context.Context) domain.UploadOutcome {
	return u.Upload(ctx, u.Selection())
}

// Upload runs the saga for file. Errors are never returned to the caller:
// they end up in the outcome's notice. Whatever happens, the in-flight slot
// and the file selection are cleared before Upload returns.
func (u *UploadOrchestrator) Upload(ctx context.Context, file *domain.SelectedFile) domain.UploadOutcome {
	if file == nil {
		outcome := domain.UploadOutcome{
			Phase:   domain.UploadFailed,
			Failure: domain.FailureValidation,
			Notice:  domain.ErrorNotice(domain.UploadNoFileMessage),
			Err:     domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("no file selected")),
		}
		u.setNotice(outcome.Notice)
		return outcome
	}
	if !u.guard.tryAcquire() {
		return domain.UploadOutcome{
			Phase:   u.Phase(),
			Failure: domain.FailureValidation,
			Notice:  domain.ErrorNotice(domain.UploadBusyMessage),
			Err:     domain.ErrBusy,
		}
	}

	start := time.Now()
	var outcome domain.UploadOutcome
	defer func() {
		u.finish(outcome)
		u.recorder.RecordAction("upload", uploadOutcomeLabel(outcome), time.Since(start))
	}()

	outcome = u.run(ctx, *file)
	return outcome
}

func (u *UploadOrchestrator) run(ctx context.Context, file domain.SelectedFile) domain.UploadOutcome {
	u.transition(domain.UploadProcessing, domain.InfoNotice(domain.UploadProgressMessage))

	receipt, err := u.process(ctx, file)
	if err != nil {
		if message, rejected := domain.RejectionMessage(err); rejected {
			u.logger.Warn("upload_rejected", "filename", file.Name, "message", message)
			return failedUpload(domain.FailureProcessing, rejectedUploadText(message), err)
		}
		u.logger.Error("upload_processing_failed", "filename", file.Name, "error", err)
		return failedUpload(domain.FailureProcessing, domain.UploadUnreachableMessage, err)
	}

	u.transition(domain.UploadRegistering, domain.InfoNotice(domain.UploadProgressMessage))

	filename := receipt.Filename
	if strings.TrimSpace(filename) == "" {
		filename = file.Name
	}
	record := domain.DocumentRecord{
		ID:            domain.DeriveDocumentID(filename),
		Filename:      filename,
		ChunkCount:    receipt.ChunkCount,
		VectorsStored: receipt.VectorsStored,
		OwnerID:       u.owner.UserID,
	}
	if err := u.store.Upsert(ctx, u.owner.UserID, record); err != nil {
		u.logger.Error("upload_registration_failed",
			"document_id", record.ID,
			"filename", record.Filename,
			"orphaned_vectors", receipt.VectorsStored,
			"error", err,
		)
		return failedUpload(domain.FailureRegistering, domain.UploadUnreachableMessage, fmt.Errorf("register document metadata: %w", err))
	}

	u.logger.Info("upload_registered",
		"document_id", record.ID,
		"chunk_count", record.ChunkCount,
		"vectors_stored", record.VectorsStored,
	)
	return domain.UploadOutcome{
		Phase:  domain.UploadDone,
		Notice: domain.SuccessNotice(fmt.Sprintf("File processed! %d vector(s) stored.", receipt.VectorsStored)),
		Record: &record,
	}
}

func (u *UploadOrchestrator) process(ctx context.Context, file domain.SelectedFile) (*domain.ProcessingReceipt, error) {
	body, err := u.files.Open(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("open selected file: %w", err)
	}
	defer body.Close()

	receipt, err := u.backend.Upload(ctx, file.Name, body)
	if err != nil {
		return nil, fmt.Errorf("process document: %w", err)
	}
	return receipt, nil
}

func (u *UploadOrchestrator) transition(to domain.UploadPhase, notice domain.Notice) {
	u.mu.Lock()
	if !u.phase.CanTransition(to) {
		u.logger.Warn("upload_invalid_transition", "from", string(u.phase), "to", string(to))
	}
	u.phase = to
	closed := u.closed
	if !closed {
		u.notice = notice
	}
	u.mu.Unlock()
	if !closed {
		u.hook.fire()
	}
}

func (u *UploadOrchestrator) finish(outcome domain.UploadOutcome) {
	u.mu.Lock()
	u.phase = domain.UploadIdle
	u.selection = nil
	closed := u.closed
	if !closed {
		u.notice = outcome.Notice
	}
	u.mu.Unlock()
	u.guard.release()
	if !closed {
		u.hook.fire()
	}
}

func (u *UploadOrchestrator) setNotice(notice domain.Notice) {
	u.mu.Lock()
	closed := u.closed
	if !closed {
		u.notice = notice
	}
	u.mu.Unlock()
	if !closed {
		u.hook.fire()
	}
}

// Close detaches the orchestrator from its surface. An upload still in
// flight runs to completion but no longer publishes notices.
func (u *UploadOrchestrator) Close() {
	u.mu.Lock()
	u.closed = true
	u.mu.Unlock()
}

func failedUpload(failure domain.UploadFailure, text string, err error) domain.UploadOutcome {
	return domain.UploadOutcome{
		Phase:   domain.UploadFailed,
		Failure: failure,
		Notice:  domain.ErrorNotice(text),
		Err:     err,
	}
}

func rejectedUploadText(message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return domain.UploadRejectedMessage
	}
	return domain.UploadRejectedMessage + " " + message
}

func uploadOutcomeLabel(outcome domain.UploadOutcome) string {
	switch {
	case outcome.Phase == domain.UploadDone:
		return "success"
	case outcome.Failure == domain.FailureRegistering:
		return "registry_error"
	case domain.IsKind(outcome.Err, domain.ErrBackendRejected):
		return "rejected"
	default:
		return "error"
	}
}
