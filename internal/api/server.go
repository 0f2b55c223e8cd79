// Package api exposes the chat backend over HTTP.
//
// Routes:
//
//	POST /chat-stream           streamed answer, raw text/plain chunks
//	GET  /history/{session_id}  conversation history as JSON
//	GET  /health                liveness probe
//	GET  /ready                 readiness probe (database ping)
//
// Health probes sit outside the middleware stack so they stay cheap and
// unlogged.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ServerConfig contains configuration for the API server.
type ServerConfig struct {
	Engine      Engine        // required
	History     HistoryStore  // required
	Pool        *pgxpool.Pool // optional: nil disables the database ping in /ready
	CORSOrigins []string      // allowed origins; defaults to "*"
	Logger      *slog.Logger
}

// Server is the HTTP server for the chat backend.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("engine is required")
	}
	if cfg.History == nil {
		return nil, errors.New("history store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	ch := &chatHandler{engine: cfg.Engine, logger: logger}
	hh := &historyHandler{store: cfg.History, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat-stream", ch.stream)
	mux.HandleFunc("GET /history/{session_id}", hh.get)

	// Middleware stack, outermost first:
	//   Recovery → RequestID → Logging → CORS → Routes
	// RequestID precedes Logging so request_id is available in log lines.
	var handler http.Handler = mux
	handler = corsMiddleware(origins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.HandleFunc("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
