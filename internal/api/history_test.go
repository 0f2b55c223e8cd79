package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/minddojo/sales-assistant/internal/session"
)

func getHistory(t *testing.T, srv *Server, sessionID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/history/"+sessionID, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHistory(t *testing.T) {
	t.Run("returns messages in order", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Second)
		history := &fakeHistory{messages: map[string][]session.Message{
			"s1": {
				{Sender: session.SenderUser, Text: "คำถาม", Timestamp: now},
				{Sender: session.SenderAssistant, Text: "คำตอบ", Timestamp: now},
			},
		}}
		srv := newTestServer(t, &fakeEngine{failAfter: -1}, history)

		rec := getHistory(t, srv, "s1")

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var resp historyResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if resp.SessionID != "s1" {
			t.Errorf("session_id = %q, want s1", resp.SessionID)
		}
		if len(resp.Messages) != 2 {
			t.Fatalf("got %d messages, want 2", len(resp.Messages))
		}
		if resp.Messages[0].Sender != session.SenderUser || resp.Messages[0].Text != "คำถาม" {
			t.Errorf("first message = %+v", resp.Messages[0])
		}
	})

	t.Run("unknown session returns empty list, not 404", func(t *testing.T) {
		srv := newTestServer(t, &fakeEngine{failAfter: -1}, &fakeHistory{})

		rec := getHistory(t, srv, "never-seen")

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var resp struct {
			SessionID string            `json:"session_id"`
			Messages  []json.RawMessage `json:"messages"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if resp.Messages == nil {
			t.Error("messages serialized as null, want []")
		}
		if len(resp.Messages) != 0 {
			t.Errorf("got %d messages, want 0", len(resp.Messages))
		}
	})

	t.Run("store failure is a 500", func(t *testing.T) {
		history := &fakeHistory{err: errors.New("connection refused")}
		srv := newTestServer(t, &fakeEngine{failAfter: -1}, history)

		rec := getHistory(t, srv, "s1")
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
	})
}
