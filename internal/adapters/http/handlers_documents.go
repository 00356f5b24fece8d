package httpadapter

import (
	"context"
	"net/http"

	"github.com/kirillkom/knowledge-assistant/internal/core/domain"
	"github.com/kirillkom/knowledge-assistant/internal/core/ports"
)

type documentsResponse struct {
	Documents    []domain.DocumentRecord `json:"documents"`
	Availability string                  `json:"availability"`
	Upload       uploadState             `json:"upload"`
}

type uploadState struct {
	Phase  domain.UploadPhase `json:"phase"`
	Notice domain.Notice      `json:"notice"`
	Busy   bool               `json:"busy"`
}

func (rt *Router) listDocuments(w http.ResponseWriter, _ *http.Request) {
	ws, ok := rt.workspace(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, documentsResponse{
		Documents:    ws.Registry.Snapshot(),
		Availability: domain.AvailabilityLabel(ws.Registry.Count()),
		Upload: uploadState{
			Phase:  ws.Uploads.Phase(),
			Notice: ws.Uploads.Notice(),
			Busy:   ws.Uploads.Busy(),
		},
	})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	ws, ok := rt.workspace(w)
	if !ok {
		return
	}
	if ws.Uploads.Busy() {
		writeJSON(w, http.StatusConflict, domain.UploadOutcome{
			Phase:   ws.Uploads.Phase(),
			Failure: domain.FailureValidation,
			Notice:  domain.ErrorNotice(domain.UploadBusyMessage),
		})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		outcome := ws.Uploads.Upload(r.Context(), nil)
		writeJSON(w, http.StatusBadRequest, outcome)
		return
	}
	defer file.Close()

	selected, err := rt.files.Stage(r.Context(), header.Filename, file)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	defer func() {
		if err := rt.files.Remove(*selected); err != nil {
			rt.logger.Warn("staged_file_cleanup_failed", "path", selected.Path, "error", err)
		}
	}()

	outcome := ws.Uploads.Upload(r.Context(), selected)
	writeJSON(w, uploadStatus(outcome), outcome)
}

func uploadStatus(outcome domain.UploadOutcome) int {
	switch {
	case outcome.Phase == domain.UploadDone:
		return http.StatusCreated
	case domain.IsKind(outcome.Err, domain.ErrBusy):
		return http.StatusConflict
	case outcome.Failure == domain.FailureValidation:
		return http.StatusBadRequest
	case domain.IsKind(outcome.Err, domain.ErrBackendRejected):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

type deleteResponse struct {
	ID        string `json:"id"`
	Confirmed bool   `json:"confirmed"`
	Deleted   bool   `json:"deleted"`
	Prompt    string `json:"prompt,omitempty"`
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	ws, ok := rt.workspace(w)
	if !ok {
		return
	}
	id := r.PathValue("id")
	filename := id
	if record, found := ws.Registry.Find(id); found {
		filename = record.Filename
	}

	confirmed := r.URL.Query().Get("confirm") == "true"
	deleter := ws.Deletions.WithConfirmer(ports.ConfirmFunc(func(context.Context, string) bool {
		return confirmed
	}))
	outcome := deleter.Delete(r.Context(), id, filename)

	resp := deleteResponse{ID: id, Confirmed: outcome.Confirmed, Deleted: outcome.Deleted}
	switch {
	case outcome.Deleted:
		writeJSON(w, http.StatusOK, resp)
	case domain.IsKind(outcome.Err, domain.ErrCancelled):
		resp.Prompt = domain.DeletePrompt(filename)
		writeJSON(w, http.StatusPreconditionRequired, resp)
	default:
		writeError(w, mapErrorToHTTPStatus(outcome.Err), outcome.Err.Error())
	}
}

func (rt *Router) summarizeDocument(w http.ResponseWriter, r *http.Request) {
	ws, ok := rt.workspace(w)
	if !ok {
		return
	}
	record, found := ws.Registry.Find(r.PathValue("id"))
	if !found {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}

	outcome := ws.Summaries.Summarize(r.Context(), record.Filename)
	status := http.StatusOK
	switch {
	case outcome.Err == nil:
	case domain.IsKind(outcome.Err, domain.ErrBusy):
		status = http.StatusConflict
	case domain.IsKind(outcome.Err, domain.ErrBackendRejected):
		status = http.StatusUnprocessableEntity
	default:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, outcome)
}
