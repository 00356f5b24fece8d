package httpadapter

import (
	"context"
	"net/http"
	"time"

	"github.com/kirillkom/knowledge-assistant/internal/core/domain"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	State domain.AuthState `json:"state"`
	User  *domain.Session  `json:"user,omitempty"`
}

func (rt *Router) getSession(w http.ResponseWriter, _ *http.Request) {
	state, session := rt.shell.State()
	writeJSON(w, http.StatusOK, sessionResponse{State: state, User: session})
}

func (rt *Router) signUp(w http.ResponseWriter, r *http.Request) {
	rt.authenticate(w, r, rt.shell.SignUp)
}

func (rt *Router) signIn(w http.ResponseWriter, r *http.Request) {
	rt.authenticate(w, r, rt.shell.SignIn)
}

func (rt *Router) authenticate(
	w http.ResponseWriter,
	r *http.Request,
	action func(ctx context.Context, email, password string) error,
) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := action(r.Context(), req.Email, req.Password); err != nil {
		status := mapErrorToHTTPStatus(err)
		message := err.Error()
		if status == http.StatusUnauthorized {
			message = "invalid email or password"
		}
		writeError(w, status, message)
		return
	}

	state, session := rt.awaitState(r.Context(), domain.AuthAuthenticated)
	writeJSON(w, http.StatusOK, sessionResponse{State: state, User: session})
}

func (rt *Router) signOut(w http.ResponseWriter, r *http.Request) {
	if err := rt.shell.SignOut(r.Context()); err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	state, session := rt.awaitState(r.Context(), domain.AuthAnonymous)
	writeJSON(w, http.StatusOK, sessionResponse{State: state, User: session})
}

// awaitState waits briefly for the identity notification that follows a
// sign-in or sign-out to reach the shell.
func (rt *Router) awaitState(ctx context.Context, want domain.AuthState) (domain.AuthState, *domain.Session) {
	ctx, cancel := context.WithTimeout(ctx, sessionSettleWait)
	defer cancel()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		state, session := rt.shell.State()
		if state == want {
			return state, session
		}
		select {
		case <-ctx.Done():
			return state, session
		case <-ticker.C:
		}
	}
}
