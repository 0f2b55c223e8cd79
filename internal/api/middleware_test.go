package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/minddojo/sales-assistant/internal/log"
)

func TestRecoveryMiddleware(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	handler := recoveryMiddleware(log.NewNop())(panicking)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestIDFromContext(r.Context())
	})
	handler := requestIDMiddleware()(inner)

	t.Run("generates when absent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		id := rec.Header().Get("X-Request-ID")
		if id == "" {
			t.Fatal("X-Request-ID header missing")
		}
		if seen != id {
			t.Errorf("context id %q != header id %q", seen, id)
		}
	})

	t.Run("keeps inbound id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "upstream-id")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("X-Request-ID"); got != "upstream-id" {
			t.Errorf("X-Request-ID = %q, want upstream-id", got)
		}
	})
}

func TestCORSMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("wildcard reflects any origin", func(t *testing.T) {
		handler := corsMiddleware([]string{"*"})(inner)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://sales.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://sales.example.com" {
			t.Errorf("Allow-Origin = %q", got)
		}
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		handler := corsMiddleware([]string{"*"})(inner)
		req := httptest.NewRequest(http.MethodOptions, "/chat-stream", nil)
		req.Header.Set("Origin", "https://sales.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", rec.Code)
		}
	})

	t.Run("unlisted origin gets no headers", func(t *testing.T) {
		handler := corsMiddleware([]string{"https://app.minddojo.co.th"})(inner)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Allow-Origin = %q, want empty", got)
		}
	})
}
