package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/minddojo/sales-assistant/internal/chat"
)

// Engine answers one question per call, streaming the answer through emit.
type Engine interface {
	Answer(ctx context.Context, sessionID, question string, emit chat.EmitFunc) error
}

// chatRequest is the POST /chat-stream body.
type chatRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

type chatHandler struct {
	engine Engine
	logger *slog.Logger
}

// stream handles POST /chat-stream. The answer is streamed as raw
// text/plain chunks with no envelope; the session identifier, generated
// when the request omits one, is returned in the X-Session-ID header.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming not supported", h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Session-ID", req.SessionID)

	// Headers go out on the first emitted chunk. Failures before that
	// still get a proper status code.
	started := false
	emit := func(text string) error {
		if _, err := w.Write([]byte(text)); err != nil {
			return err
		}
		started = true
		flusher.Flush()
		return nil
	}

	err := h.engine.Answer(r.Context(), req.SessionID, req.Question, emit)
	if err == nil {
		return
	}

	logger := h.logger.With(
		"session_id", req.SessionID,
		"request_id", requestIDFromContext(r.Context()),
	)
	switch {
	case errors.Is(err, chat.ErrEmptyQuestion):
		writeError(w, http.StatusBadRequest, "empty_question", "question is required", h.logger)
	case started:
		// The stream is already underway; terminating it is all that is
		// left to signal failure.
		logger.Error("answer stream aborted", "error", err)
	default:
		logger.Error("answering question", "error", err)
		writeError(w, http.StatusInternalServerError, "generation_failed", "failed to generate an answer", h.logger)
	}
}
