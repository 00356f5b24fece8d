package httpadapter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kirillkom/knowledge-assistant/internal/config"
	"github.com/kirillkom/knowledge-assistant/internal/core/domain"
	"github.com/kirillkom/knowledge-assistant/internal/core/ports"
	"github.com/kirillkom/knowledge-assistant/internal/core/usecase"
	"github.com/kirillkom/knowledge-assistant/internal/observability/metrics"
)

const (
	serviceName       = "api"
	healthPingTimeout = 2 * time.Second
	sessionSettleWait = 3 * time.Second
	overloadWait      = 50 * time.Millisecond
	maxUploadBytes    = 64 << 20
)

// SessionShell is the session-scoped workspace the API drives.
type SessionShell interface {
	ports.SessionService
	Workspace() (*usecase.Workspace, error)
}

// FileStager keeps uploaded request bodies on disk for the duration of one
// upload.
type FileStager interface {
	Stage(ctx context.Context, name string, data io.Reader) (*domain.SelectedFile, error)
	Remove(file domain.SelectedFile) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Router struct {
	cfg      config.Config
	shell    SessionShell
	files    FileStager
	backend  Pinger
	breakers func() map[string]string
	metrics  *metrics.HTTPServerMetrics
	logger   *slog.Logger
}

type Options struct {
	Backend  Pinger
	Breakers func() map[string]string
	Metrics  *metrics.HTTPServerMetrics
	Logger   *slog.Logger
}

func NewRouter(cfg config.Config, shell SessionShell, files FileStager, options Options) *Router {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		cfg:      cfg,
		shell:    shell,
		files:    files,
		backend:  options.Backend,
		breakers: options.Breakers,
		metrics:  options.Metrics,
		logger:   logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	mux.HandleFunc("GET /v1/session", rt.getSession)
	mux.HandleFunc("POST /v1/session/sign-up", rt.signUp)
	mux.HandleFunc("POST /v1/session/sign-in", rt.signIn)
	mux.HandleFunc("POST /v1/session/sign-out", rt.signOut)

	mux.HandleFunc("GET /v1/documents", rt.listDocuments)
	mux.HandleFunc("POST /v1/documents", rt.uploadDocument)
	mux.HandleFunc("DELETE /v1/documents/{id}", rt.deleteDocument)
	mux.HandleFunc("POST /v1/documents/{id}/summary", rt.summarizeDocument)

	mux.HandleFunc("GET /v1/chat", rt.getChat)
	mux.HandleFunc("POST /v1/chat", rt.askChat)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, overloadWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, func(r *http.Request) {
		if rt.metrics != nil {
			rt.metrics.RecordRateLimited(serviceName, r.URL.Path)
		}
	})
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok", "backend": "up"}
	if rt.backend != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()
		if err := rt.backend.Ping(ctx); err != nil {
			resp["backend"] = "down"
			rt.logger.Warn("backend_ping_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
		}
	}
	if rt.breakers != nil {
		resp["breakers"] = rt.breakers()
	}
	writeJSON(w, http.StatusOK, resp)
}

// workspace resolves the signed-in workspace or writes the error response.
func (rt *Router) workspace(w http.ResponseWriter) (*usecase.Workspace, bool) {
	ws, err := rt.shell.Workspace()
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), workspaceErrorMessage(err))
		return nil, false
	}
	return ws, true
}

func workspaceErrorMessage(err error) string {
	if domain.IsKind(err, domain.ErrTemporary) {
		return "session is still loading"
	}
	return "sign in required"
}

func decodeJSON(r *http.Request, out any) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
