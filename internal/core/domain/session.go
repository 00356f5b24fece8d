package domain

import "time"

// Session is the identity handed out by the identity provider. It is
// immutable while valid.
type Session struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// AuthState distinguishes "not yet known" from "known to be signed out" so
// surfaces never flash the wrong view before the first notification.
type AuthState string

const (
	AuthUnknown       AuthState = "unknown"
	AuthAnonymous     AuthState = "anonymous"
	AuthAuthenticated AuthState = "authenticated"
)

// Credential is a registered identity as kept by the local identity provider.
type Credential struct {
	UserID       string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}
