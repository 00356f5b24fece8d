package httpadapter

import (
	"net/http"

	"github.com/kirillkom/knowledge-assistant/internal/core/domain"
	"github.com/kirillkom/knowledge-assistant/internal/core/usecase"
)

type chatResponse struct {
	Messages     []domain.ChatMessage `json:"messages"`
	Sources      []string             `json:"sources"`
	Availability string               `json:"availability"`
	Busy         bool                 `json:"busy"`
}

func chatState(ws *usecase.Workspace) chatResponse {
	return chatResponse{
		Messages:     ws.Chat.Transcript(),
		Sources:      ws.Chat.LastSources(),
		Availability: ws.Chat.Availability(),
		Busy:         ws.Chat.Busy(),
	}
}

func (rt *Router) getChat(w http.ResponseWriter, _ *http.Request) {
	ws, ok := rt.workspace(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, chatState(ws))
}

func (rt *Router) askChat(w http.ResponseWriter, r *http.Request) {
	ws, ok := rt.workspace(w)
	if !ok {
		return
	}

	var req struct {
		Question string `json:"question"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := ws.Chat.Ask(r.Context(), req.Question); err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, chatState(ws))
}
