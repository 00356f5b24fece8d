package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/knowledge-assistant/internal/core/domain"
	"github.com/kirillkom/knowledge-assistant/internal/infrastructure/repository/memory"
)

var testOwner = domain.Session{UserID: "user-1", Email: "ada@example.com"}

func newTestUploader(backend *backendFake, store *storeFake) (*UploadOrchestrator, *recorderFake) {
	recorder := &recorderFake{}
	return NewUploadOrchestrator(testOwner, backend, store, &filesFake{}, recorder, nil), recorder
}

func TestUploadRegistersProcessedDocument(t *testing.T) {
	backend := &backendFake{receipt: &domain.ProcessingReceipt{Filename: "Report 2024.pdf", ChunkCount: 12, VectorsStored: 12}}
	store := &storeFake{}
	uploader, recorder := newTestUploader(backend, store)

	outcome := uploader.Upload(context.Background(), &domain.SelectedFile{Name: "Report 2024.pdf", Path: "/tmp/Report 2024.pdf"})
	if outcome.Phase != domain.UploadDone {
		t.Fatalf("expected done phase, got %s (err=%v)", outcome.Phase, outcome.Err)
	}
	if len(store.upserts) != 1 {
		t.Fatalf("expected one upsert, got %d", len(store.upserts))
	}
	record := store.upserts[0]
	if record.ID != "report-2024.pdf" {
		t.Fatalf("unexpected record id: %q", record.ID)
	}
	if record.Filename != "Report 2024.pdf" || record.ChunkCount != 12 || record.VectorsStored != 12 {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.OwnerID != testOwner.UserID {
		t.Fatalf("expected owner %q, got %q", testOwner.UserID, record.OwnerID)
	}
	if outcome.Notice.Text != "File processed! 12 vector(s) stored." {
		t.Fatalf("unexpected notice: %q", outcome.Notice.Text)
	}
	if uploader.Phase() != domain.UploadIdle {
		t.Fatalf("expected idle after completion, got %s", uploader.Phase())
	}
	if uploader.Busy() {
		t.Fatalf("guard must be released")
	}
	if len(recorder.actions) != 1 || recorder.actions[0] != "upload:success" {
		t.Fatalf("unexpected recorded actions: %v", recorder.actions)
	}
}

func TestUploadWithoutFileSendsNothing(t *testing.T) {
	backend := &backendFake{}
	store := &storeFake{}
	uploader, _ := newTestUploader(backend, store)

	outcome := uploader.Upload(context.Background(), nil)
	if outcome.Failure != domain.FailureValidation {
		t.Fatalf("expected validation failure, got %q", outcome.Failure)
	}
	if !domain.IsKind(outcome.Err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", outcome.Err)
	}
	if uploader.Notice().Text != domain.UploadNoFileMessage {
		t.Fatalf("unexpected notice: %q", uploader.Notice().Text)
	}
	if backend.calls() != 0 || len(store.upserts) != 0 {
		t.Fatalf("expected no side effects")
	}
}

func TestUploadBackendRejectionWritesNoMetadata(t *testing.T) {
	backend := &backendFake{uploadErr: rejected("upload", "Unsupported file format")}
	store := &storeFake{}
	uploader, _ := newTestUploader(backend, store)

	outcome := uploader.Upload(context.Background(), &domain.SelectedFile{Name: "notes.pdf"})
	if outcome.Failure != domain.FailureProcessing {
		t.Fatalf("expected processing failure, got %q", outcome.Failure)
	}
	if outcome.Notice.Text != "Error processing file. Unsupported file format" {
		t.Fatalf("unexpected notice: %q", outcome.Notice.Text)
	}
	if len(store.upserts) != 0 {
		t.Fatalf("rejected upload must not write metadata")
	}
}

func TestUploadTransportFailureWritesNoMetadata(t *testing.T) {
	backend := &backendFake{uploadErr: errUnreachable}
	store := &storeFake{}
	uploader, recorder := newTestUploader(backend, store)

	outcome := uploader.Upload(context.Background(), &domain.SelectedFile{Name: "notes.pdf"})
	if outcome.Notice.Text != domain.UploadUnreachableMessage {
		t.Fatalf("unexpected notice: %q", outcome.Notice.Text)
	}
	if !errors.Is(outcome.Err, errUnreachable) {
		t.Fatalf("expected wrapped transport error, got %v", outcome.Err)
	}
	if len(store.upserts) != 0 {
		t.Fatalf("failed upload must not write metadata")
	}
	if recorder.actions[0] != "upload:error" {
		t.Fatalf("unexpected recorded action: %v", recorder.actions)
	}
}

func TestUploadRegistrationFailureKeepsBackendVectors(t *testing.T) {
	backend := &backendFake{receipt: &domain.ProcessingReceipt{Filename: "a.pdf", ChunkCount: 3, VectorsStored: 3}}
	store := &storeFake{upsertErr: errors.New("permission denied")}
	uploader, _ := newTestUploader(backend, store)

	outcome := uploader.Upload(context.Background(), &domain.SelectedFile{Name: "a.pdf"})
	if outcome.Failure != domain.FailureRegistering {
		t.Fatalf("expected registering failure, got %q", outcome.Failure)
	}
	if outcome.Notice.Text != domain.UploadUnreachableMessage {
		t.Fatalf("unexpected notice: %q", outcome.Notice.Text)
	}
	if len(backend.uploads) != 1 {
		t.Fatalf("expected exactly one backend call and no cleanup, got %v", backend.uploads)
	}
	if len(store.deletes) != 0 {
		t.Fatalf("no compensation is expected")
	}
	if uploader.Phase() != domain.UploadIdle {
		t.Fatalf("expected idle, got %s", uploader.Phase())
	}
}

type rejectingUpsertStore struct {
	*memory.DocumentStore
}

func (s rejectingUpsertStore) Upsert(context.Context, string, domain.DocumentRecord) error {
	return errors.New("permission denied")
}

func TestUploadRegistrationFailureLeavesRegistryUnchanged(t *testing.T) {
	documents := memory.NewDocumentStore(nil)
	if err := documents.Upsert(context.Background(), testOwner.UserID, domain.DocumentRecord{ID: "old.pdf", Filename: "old.pdf"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store := rejectingUpsertStore{DocumentStore: documents}

	registry := NewRegistrySync(store, nil, nil)
	defer registry.Close()
	registry.Bind(context.Background(), &testOwner)
	before := registry.Snapshot()
	if len(before) != 1 {
		t.Fatalf("expected seeded snapshot, got %+v", before)
	}

	backend := &backendFake{receipt: &domain.ProcessingReceipt{Filename: "new.pdf", ChunkCount: 2, VectorsStored: 2}}
	uploader := NewUploadOrchestrator(testOwner, backend, store, &filesFake{}, nil, nil)
	outcome := uploader.Upload(context.Background(), &domain.SelectedFile{Name: "new.pdf"})
	if outcome.Failure != domain.FailureRegistering {
		t.Fatalf("expected registering failure, got %q (err=%v)", outcome.Failure, outcome.Err)
	}

	after := registry.Snapshot()
	if len(after) != 1 || after[0].ID != before[0].ID {
		t.Fatalf("registry must not change after a failed registration: %+v", after)
	}
	if _, ok := registry.Find("new.pdf"); ok {
		t.Fatalf("unregistered document must not appear")
	}
}

func TestUploadRejectsSecondCallWhileInFlight(t *testing.T) {
	backend := &backendFake{
		receipt: &domain.ProcessingReceipt{Filename: "a.pdf", ChunkCount: 1, VectorsStored: 1},
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	store := &storeFake{}
	uploader, _ := newTestUploader(backend, store)

	done := make(chan domain.UploadOutcome, 1)
	go func() {
		done <- uploader.Upload(context.Background(), &domain.SelectedFile{Name: "a.pdf"})
	}()
	<-backend.entered

	if !uploader.Busy() {
		t.Fatalf("expected busy while first upload is in flight")
	}
	if uploader.Phase() != domain.UploadProcessing {
		t.Fatalf("expected processing phase, got %s", uploader.Phase())
	}
	second := uploader.Upload(context.Background(), &domain.SelectedFile{Name: "b.pdf"})
	if !errors.Is(second.Err, domain.ErrBusy) {
		t.Fatalf("expected busy error, got %v", second.Err)
	}

	close(backend.gate)
	first := <-done
	if first.Phase != domain.UploadDone {
		t.Fatalf("expected first upload to finish, got %s", first.Phase)
	}
	if len(backend.uploads) != 1 {
		t.Fatalf("expected one backend upload, got %v", backend.uploads)
	}
}

func TestUploadSelectedClearsSelection(t *testing.T) {
	backend := &backendFake{uploadErr: errUnreachable}
	uploader, _ := newTestUploader(backend, &storeFake{})

	uploader.Select(&domain.SelectedFile{Name: "a.pdf"})
	if uploader.Selection() == nil {
		t.Fatalf("expected selection")
	}
	_ = uploader.UploadSelected(context.Background())
	if uploader.Selection() != nil {
		t.Fatalf("selection must be cleared after failure too")
	}

	uploader.Select(&domain.SelectedFile{Name: "b.pdf"})
	if !uploader.Notice().IsZero() {
		t.Fatalf("select must clear the previous notice")
	}
}

func TestUploadAfterCloseDoesNotPublishNotice(t *testing.T) {
	backend := &backendFake{
		receipt: &domain.ProcessingReceipt{Filename: "a.pdf", VectorsStored: 2},
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	uploader, _ := newTestUploader(backend, &storeFake{})

	done := make(chan struct{})
	go func() {
		uploader.Upload(context.Background(), &domain.SelectedFile{Name: "a.pdf"})
		close(done)
	}()
	<-backend.entered
	uploader.Close()
	close(backend.gate)
	<-done

	if uploader.Notice().Kind == domain.NoticeSuccess {
		t.Fatalf("closed orchestrator must not publish the final notice")
	}
}
