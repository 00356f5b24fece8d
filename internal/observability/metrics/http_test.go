package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/v1/documents":                 "/v1/documents",
		"/v1/documents/report-2024.pdf": "/v1/documents/{document_id}",
		"/v1/documents/a.pdf/summary":   "/v1/documents/{document_id}/summary",
		"/v1/chat":                      "/v1/chat",
	}
	for path, want := range cases {
		if got := normalizePath(path); got != want {
			t.Fatalf("normalizePath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestHandlerExposesWorkspaceMetrics(t *testing.T) {
	client := NewClientMetrics("api")
	server := NewHTTPServerMetrics("api", client.Collectors()...)

	client.RecordAction("upload", "success", 250*time.Millisecond)
	client.ObserveSnapshot(3)
	client.RecordSubscriptionError()

	handler := server.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/documents/a.pdf", nil))

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		`kas_workspace_actions_total{action="upload",outcome="success",service="api"} 1`,
		`kas_registry_documents{service="api"} 3`,
		`kas_registry_subscription_errors_total{service="api"} 1`,
		`kas_http_requests_total{method="GET",path="/v1/documents/{document_id}",service="api",status="204"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
