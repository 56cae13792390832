package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/decoylab/lure/internal/conversation"
	"github.com/decoylab/lure/internal/dispatch"
	"github.com/decoylab/lure/internal/intel"
	"github.com/decoylab/lure/internal/processor"
	"github.com/decoylab/lure/internal/session"
)

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type echoResponder struct{}

func (echoResponder) Respond(_ context.Context, message string, _ []conversation.Message) (string, error) {
	return "you said: " + message, nil
}

func newTestServer(t *testing.T, apiKey string) *Server {
	t.Helper()
	callback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(callback.Close)

	dispatcher := dispatch.New(callback.URL, discard()).
		WithRetryPolicy(1, time.Millisecond, time.Millisecond)
	aggregator := intel.NewAggregator(nil, discard())
	proc := processor.New(session.NewStore(), echoResponder{}, aggregator, dispatcher, discard())
	return NewServer(8760, proc, apiKey, discard())
}

func postHoneypot(t *testing.T, srv *Server, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]string) {
	t.Helper()
	req := httptest.NewRequest("POST", "/honeypot", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	var decoded map[string]string
	if err := json.NewDecoder(w.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return w, decoded
}

func TestHoneypot_BasicContract(t *testing.T) {
	srv := newTestServer(t, "")

	w, body := postHoneypot(t, srv,
		`{"sessionId":"sess-1","message":{"sender":"scammer","text":"hello","timestamp":"2026-01-01T00:00:00Z"}}`, nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if body["status"] != "success" {
		t.Errorf("status = %q, want success", body["status"])
	}
	if body["reply"] != "you said: hello" {
		t.Errorf("reply = %q", body["reply"])
	}
}

func TestHoneypot_MalformedBodyStillSucceeds(t *testing.T) {
	srv := newTestServer(t, "")

	tests := []struct {
		name string
		body string
	}{
		{"garbage", "{{{not json"},
		{"empty body", ""},
		{"empty object", "{}"},
		{"null message", `{"message":null}`},
		{"unknown fields", `{"message":{"text":"hi"},"futureField":{"a":1}}`},
		{"wrong types tolerated", `{"sessionId":"s","message":{"text":"hi","timestamp":12345}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := postHoneypot(t, srv, tt.body, nil)
			if w.Code != http.StatusOK {
				t.Errorf("expected 200 regardless of payload, got %d", w.Code)
			}
			if body["status"] != "success" {
				t.Errorf("status = %q, want success", body["status"])
			}
			if body["reply"] == "" {
				t.Error("reply must never be empty")
			}
		})
	}
}

func TestHoneypot_APIKeyMismatchGetsDecoy(t *testing.T) {
	srv := newTestServer(t, "secret")

	w, body := postHoneypot(t, srv,
		`{"message":{"text":"hello"}}`, map[string]string{"x-api-key": "wrong"})

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 even on bad key, got %d", w.Code)
	}
	if body["reply"] != decoyReply {
		t.Errorf("reply = %q, want the decoy greeting", body["reply"])
	}
}

func TestHoneypot_APIKeyMatchProceeds(t *testing.T) {
	srv := newTestServer(t, "secret")

	_, body := postHoneypot(t, srv,
		`{"message":{"text":"hello"}}`, map[string]string{"x-api-key": "secret"})

	if body["reply"] != "you said: hello" {
		t.Errorf("reply = %q", body["reply"])
	}
}

func TestNormalize_Defaults(t *testing.T) {
	sessionID, msg, history := normalize(inboundPayload{})

	if sessionID == "" {
		t.Error("missing sessionId must get a surrogate")
	}
	if msg.Sender != conversation.SenderCounterparty {
		t.Errorf("sender = %q, want counterparty default", msg.Sender)
	}
	if msg.Text != "Hello?" {
		t.Errorf("text = %q, want greeting placeholder", msg.Text)
	}
	if len(history) != 0 {
		t.Errorf("history = %v, want empty", history)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, "")

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(t, "")

	req := httptest.NewRequest("GET", "/api/v1/lure/status", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["agent"] != "lure" {
		t.Errorf("expected agent lure, got %q", body["agent"])
	}
}

func TestSessionSnapshotEndpoint(t *testing.T) {
	srv := newTestServer(t, "")

	// Unknown session.
	req := httptest.NewRequest("GET", "/api/v1/lure/sessions/nope", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown session, got %d", w.Code)
	}

	// Create one via the honeypot, then fetch it.
	postHoneypot(t, srv, `{"sessionId":"sess-9","message":{"sender":"scammer","text":"hi"}}`, nil)
	srv.proc.Drain()

	req = httptest.NewRequest("GET", "/api/v1/lure/sessions/sess-9", nil)
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var snap map[string]any
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if snap["sessionId"] != "sess-9" {
		t.Errorf("sessionId = %v", snap["sessionId"])
	}
}
