package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/knowledge-assistant/internal/core/domain"
	"github.com/kirillkom/knowledge-assistant/internal/core/ports"
)

// DeletionOrchestrator removes metadata records from the owner's partition.
// The processing backend is never contacted, so vectors and stored files
// for a deleted record stay where they are.
type DeletionOrchestrator struct {
	owner     domain.Session
	store     ports.MetadataStore
	confirmer ports.Confirmer
	recorder  ports.ActionRecorder
	logger    *slog.Logger
}

func NewDeletionOrchestrator(
	owner domain.Session,
	store ports.MetadataStore,
	confirmer ports.Confirmer,
	recorder ports.ActionRecorder,
	logger *slog.Logger,
) *DeletionOrchestrator {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &DeletionOrchestrator{
		owner:     owner,
		store:     store,
		confirmer: confirmer,
		recorder:  recorder,
		logger:    loggerOrDefault(logger),
	}
}

// WithConfirmer returns a copy that asks confirmer instead of the default.
func (d *DeletionOrchestrator) WithConfirmer(confirmer ports.Confirmer) ports.DocumentDeleter {
	copied := *d
	copied.confirmer = confirmer
	return &copied
}

func (d *DeletionOrchestrator) Delete(ctx context.Context, documentID, filename string) domain.DeleteOutcome {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return domain.DeleteOutcome{
			Err: domain.WrapError(domain.ErrInvalidInput, "delete document", errors.New("document id is required")),
		}
	}
	if filename == "" {
		filename = documentID
	}

	if d.confirmer == nil || !d.confirmer.Confirm(ctx, domain.DeletePrompt(filename)) {
		d.recorder.RecordAction("delete", "declined", 0)
		return domain.DeleteOutcome{Err: domain.ErrCancelled}
	}

	start := time.Now()
	if err := d.store.Delete(ctx, d.owner.UserID, documentID); err != nil {
		d.logger.Error("document_delete_failed", "document_id", documentID, "error", err)
		d.recorder.RecordAction("delete", "error", time.Since(start))
		return domain.DeleteOutcome{Confirmed: true, Err: err}
	}

	d.logger.Info("document_deleted", "document_id", documentID, "vectors_retained", true)
	d.recorder.RecordAction("delete", "success", time.Since(start))
	return domain.DeleteOutcome{Confirmed: true, Deleted: true}
}
