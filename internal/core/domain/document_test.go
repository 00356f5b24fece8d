package domain

import (
	"testing"
	"time"
)

func TestDeriveDocumentID(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{name: "spaces and case", filename: "Report 2024.pdf", want: "report-2024.pdf"},
		{name: "whitespace run collapses", filename: "My \t  Notes.PDF", want: "my-notes.pdf"},
		{name: "leading space kept as hyphen", filename: " cv.pdf", want: "-cv.pdf"},
		{name: "already normalized", filename: "plain.pdf", want: "plain.pdf"},
		{name: "unicode space", filename: "a\u00a0b.pdf", want: "a-b.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveDocumentID(tt.filename); got != tt.want {
				t.Fatalf("DeriveDocumentID(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}

func TestDeriveDocumentIDCollidesOnNormalizedName(t *testing.T) {
	if DeriveDocumentID("Report 2024.pdf") != DeriveDocumentID("report  2024.PDF") {
		t.Fatalf("expected normalized names to share one id")
	}
}

func TestSortSnapshotNewestFirstMissingAsOldest(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	in := []DocumentRecord{
		{ID: "old", UploadedAt: base},
		{ID: "pending"},
		{ID: "new", UploadedAt: base.Add(time.Hour)},
	}

	out := SortSnapshot(in)
	got := []string{out[0].ID, out[1].ID, out[2].ID}
	want := []string{"new", "old", "pending"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order %v, want %v", got, want)
		}
	}
	if in[0].ID != "old" {
		t.Fatalf("input slice must not be reordered")
	}
}

func TestUploadPhaseTransitions(t *testing.T) {
	if !UploadIdle.CanTransition(UploadProcessing) {
		t.Fatalf("idle -> processing must be allowed")
	}
	if !UploadProcessing.CanTransition(UploadFailed) {
		t.Fatalf("processing -> failed must be allowed")
	}
	if UploadIdle.CanTransition(UploadRegistering) {
		t.Fatalf("idle -> registering must be rejected")
	}
	if UploadRegistering.CanTransition(UploadProcessing) {
		t.Fatalf("registering -> processing must be rejected")
	}
}

func TestRejectionErrorKind(t *testing.T) {
	err := WrapError(ErrTemporary, "noop", nil)
	if err != nil {
		t.Fatalf("expected nil for nil error")
	}

	var rejection error = &RejectionError{Operation: "summarize", Message: "not indexed"}
	if !IsKind(rejection, ErrBackendRejected) {
		t.Fatalf("expected ErrBackendRejected kind")
	}
	msg, ok := RejectionMessage(rejection)
	if !ok || msg != "not indexed" {
		t.Fatalf("unexpected rejection message %q", msg)
	}
}

func TestAvailabilityLabel(t *testing.T) {
	if AvailabilityLabel(0) != "No Files Uploaded" {
		t.Fatalf("unexpected empty label")
	}
	if AvailabilityLabel(3) != "3 File(s) Ready" {
		t.Fatalf("unexpected label %q", AvailabilityLabel(3))
	}
}
