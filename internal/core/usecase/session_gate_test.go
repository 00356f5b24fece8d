package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/knowledge-assistant/internal/core/domain"
)

func TestSessionGateUnknownUntilFirstNotification(t *testing.T) {
	identity := &identityFake{}
	gate := NewSessionGate(identity, nil)
	gate.Start()

	if state, session := gate.State(); state != domain.AuthUnknown || session != nil {
		t.Fatalf("expected unknown state, got %s %+v", state, session)
	}

	identity.emit(nil, nil)
	if state, _ := gate.State(); state != domain.AuthAnonymous {
		t.Fatalf("expected anonymous, got %s", state)
	}

	identity.emit(&domain.Session{UserID: "u1", Email: "a@b.c"}, nil)
	state, session := gate.State()
	if state != domain.AuthAuthenticated || session == nil || session.UserID != "u1" {
		t.Fatalf("expected authenticated u1, got %s %+v", state, session)
	}
}

func TestSessionGateNotifiesListenersInOrder(t *testing.T) {
	identity := &identityFake{}
	gate := NewSessionGate(identity, nil)

	var states []domain.AuthState
	gate.Watch(func(state domain.AuthState, _ *domain.Session) {
		states = append(states, state)
	})
	gate.Start()
	gate.Start()

	identity.emit(&domain.Session{UserID: "u1"}, nil)
	identity.emit(nil, nil)
	identity.emit(nil, errors.New("token expired"))

	want := []domain.AuthState{domain.AuthAuthenticated, domain.AuthAnonymous, domain.AuthAnonymous}
	if len(states) != len(want) {
		t.Fatalf("expected %d notifications, got %v", len(want), states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("notification %d: expected %s, got %s", i, want[i], states[i])
		}
	}
}

func TestSessionGateValidatesCredentials(t *testing.T) {
	identity := &identityFake{}
	gate := NewSessionGate(identity, nil)

	if err := gate.SignIn(context.Background(), " ", "secret"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if err := gate.SignUp(context.Background(), "a@b.c", ""); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if len(identity.signIns) != 0 || len(identity.signUps) != 0 {
		t.Fatalf("invalid credentials must not reach the provider")
	}

	if err := gate.SignIn(context.Background(), "  a@b.c ", "secret"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if identity.signIns[0] != "a@b.c" {
		t.Fatalf("expected trimmed email, got %q", identity.signIns[0])
	}
}

func TestSessionGateCloseDropsLaterNotifications(t *testing.T) {
	identity := &identityFake{}
	gate := NewSessionGate(identity, nil)
	gate.Start()
	identity.emit(nil, nil)

	gate.Close()
	identity.emit(&domain.Session{UserID: "u1"}, nil)

	if state, _ := gate.State(); state != domain.AuthAnonymous {
		t.Fatalf("expected state frozen at anonymous, got %s", state)
	}
	if !identity.unsubbed {
		t.Fatalf("expected provider unsubscribe on close")
	}
}
