package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/knowledge-assistant/internal/core/domain"
)

func TestSummarizeSuccess(t *testing.T) {
	backend := &backendFake{summary: "Short summary."}
	trigger := NewSummarizationTrigger(backend, nil, nil)

	outcome := trigger.Summarize(context.Background(), "Report 2024.pdf")
	if outcome.Err != nil {
		t.Fatalf("unexpected error: %v", outcome.Err)
	}
	if outcome.Notice.Text != "Summary for Report 2024.pdf:\n\nShort summary." {
		t.Fatalf("unexpected notice: %q", outcome.Notice.Text)
	}
	last, ok := trigger.Last()
	if !ok || last.Summary != "Short summary." {
		t.Fatalf("expected last outcome to be kept: %+v", last)
	}
}

func TestSummarizeFailures(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "rejected", err: rejected("summarize", "file not found"), want: "Error summarizing a.pdf: file not found"},
		{name: "unreachable", err: errUnreachable, want: domain.SummaryUnreachableMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			trigger := NewSummarizationTrigger(&backendFake{summErr: tc.err}, nil, nil)
			outcome := trigger.Summarize(context.Background(), "a.pdf")
			if outcome.Notice.Kind != domain.NoticeError || outcome.Notice.Text != tc.want {
				t.Fatalf("unexpected notice: %+v", outcome.Notice)
			}
		})
	}
}

func TestSummarizeOneAtATime(t *testing.T) {
	backend := &backendFake{summary: "s", gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	trigger := NewSummarizationTrigger(backend, nil, nil)

	done := make(chan domain.SummaryOutcome, 1)
	go func() { done <- trigger.Summarize(context.Background(), "a.pdf") }()
	<-backend.entered

	if !trigger.Busy() {
		t.Fatalf("expected busy")
	}
	second := trigger.Summarize(context.Background(), "b.pdf")
	if !errors.Is(second.Err, domain.ErrBusy) || second.Notice.Text != domain.SummaryBusyMessage {
		t.Fatalf("unexpected second outcome: %+v", second)
	}
	close(backend.gate)
	<-done
	if trigger.Busy() {
		t.Fatalf("guard must be released")
	}
	if len(backend.summarized) != 1 {
		t.Fatalf("expected one backend call, got %v", backend.summarized)
	}
}

func TestSummarizeRequiresFilename(t *testing.T) {
	backend := &backendFake{}
	trigger := NewSummarizationTrigger(backend, nil, nil)
	if outcome := trigger.Summarize(context.Background(), ""); !domain.IsKind(outcome.Err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", outcome.Err)
	}
	if backend.calls() != 0 {
		t.Fatalf("expected no backend call")
	}
}

type panickingBackend struct {
	*backendFake
}

func (panickingBackend) Summarize(context.Context, string) (string, error) {
	panic("decoder blew up")
}

func TestSummarizeReleasesGuardWhenBackendPanics(t *testing.T) {
	trigger := NewSummarizationTrigger(panickingBackend{backendFake: &backendFake{}}, nil, nil)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected backend panic to propagate")
			}
		}()
		trigger.Summarize(context.Background(), "a.pdf")
	}()

	if trigger.Busy() {
		t.Fatalf("summary guard must be released after a panic")
	}
	backend := &backendFake{summary: "ok"}
	trigger.backend = backend
	if outcome := trigger.Summarize(context.Background(), "a.pdf"); outcome.Err != nil {
		t.Fatalf("expected a later summary to run, got %v", outcome.Err)
	}
}
