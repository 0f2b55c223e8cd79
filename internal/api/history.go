package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/minddojo/sales-assistant/internal/session"
)

// HistoryStore reads conversation history.
type HistoryStore interface {
	History(ctx context.Context, sessionID string) ([]session.Message, error)
}

// historyResponse is the GET /history/{session_id} body.
type historyResponse struct {
	SessionID string            `json:"session_id"`
	Messages  []session.Message `json:"messages"`
}

type historyHandler struct {
	store  HistoryStore
	logger *slog.Logger
}

// get handles GET /history/{session_id}. Unknown sessions return an empty
// message list, never a 404.
func (h *historyHandler) get(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing_session_id", "session id is required", h.logger)
		return
	}

	messages, err := h.store.History(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("loading history",
			"session_id", sessionID,
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "history_failed", "failed to load history", h.logger)
		return
	}
	if messages == nil {
		messages = []session.Message{}
	}

	writeJSON(w, http.StatusOK, historyResponse{
		SessionID: sessionID,
		Messages:  messages,
	}, h.logger)
}
