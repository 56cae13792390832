package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/decoylab/lure/internal/intel"
	"github.com/decoylab/lure/internal/session"
)

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func fastPolicy(d *Dispatcher) *Dispatcher {
	return d.WithRetryPolicy(3, time.Millisecond, 4*time.Millisecond)
}

func testSnapshot() session.Snapshot {
	rec := intel.NewRecord()
	rec.AddUPI("scammer@upi")
	rec.PhoneNumbers["9876543210"] = struct{}{}
	rec.SuspiciousKeywords["urgent"] = struct{}{}
	rec.ScamDetected = true
	rec.Notes = "fake bank officer demanding fees"
	return session.Snapshot{SessionID: "sess-1", TurnCount: 3, Intelligence: rec}
}

func TestBuildReport(t *testing.T) {
	report := BuildReport(testSnapshot())

	if report.SessionID != "sess-1" {
		t.Errorf("sessionId = %q", report.SessionID)
	}
	if !report.ScamDetected {
		t.Error("report must carry scamDetected=true")
	}
	if report.TotalMessagesExchanged != 6 {
		t.Errorf("totalMessagesExchanged = %d, want 6 (3 turns * 2)", report.TotalMessagesExchanged)
	}
	if len(report.ExtractedIntelligence.UPIIDs) != 1 || report.ExtractedIntelligence.UPIIDs[0] != "scammer@upi" {
		t.Errorf("upiIds = %v", report.ExtractedIntelligence.UPIIDs)
	}
	if report.AgentNotes != "fake bank officer demanding fees" {
		t.Errorf("agentNotes = %q", report.AgentNotes)
	}
}

func TestDispatch_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := fastPolicy(New(srv.URL, discard()))
	ok := d.Dispatch(context.Background(), BuildReport(testSnapshot()))

	if !ok {
		t.Error("expected delivery to succeed on the third attempt")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestDispatch_ExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := fastPolicy(New(srv.URL, discard()))
	ok := d.Dispatch(context.Background(), BuildReport(testSnapshot()))

	if ok {
		t.Error("expected delivery to fail")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("attempts = %d, want exactly the configured maximum of 3", got)
	}
}

func TestDispatch_UnreachableCallback(t *testing.T) {
	d := fastPolicy(New("http://127.0.0.1:1/callback", discard()))
	// Must log and return, never panic or propagate.
	if d.Dispatch(context.Background(), BuildReport(testSnapshot())) {
		t.Error("expected delivery to fail against an unreachable callback")
	}
}

func TestDispatch_PayloadShape(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := fastPolicy(New(srv.URL, discard()))
	d.Dispatch(context.Background(), BuildReport(testSnapshot()))

	var got map[string]any
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("callback body is not JSON: %v", err)
	}
	for _, key := range []string{"sessionId", "scamDetected", "totalMessagesExchanged", "extractedIntelligence", "agentNotes"} {
		if _, ok := got[key]; !ok {
			t.Errorf("callback payload missing %q", key)
		}
	}
	extracted, _ := got["extractedIntelligence"].(map[string]any)
	for _, key := range []string{"bankAccounts", "upiIds", "phishingLinks", "phoneNumbers", "suspiciousKeywords"} {
		if _, ok := extracted[key]; !ok {
			t.Errorf("extractedIntelligence missing %q", key)
		}
	}
}

type fakeArchive struct {
	attempts  int
	delivered bool
	lastError string
}

func (f *fakeArchive) SaveReport(_ context.Context, _ Report, attempts int, delivered bool, lastError string) error {
	f.attempts = attempts
	f.delivered = delivered
	f.lastError = lastError
	return nil
}

type fakeNotifier struct {
	subject string
}

func (f *fakeNotifier) Publish(subject string, _ any) error {
	f.subject = subject
	return nil
}

func TestDispatch_RecordsOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	archive := &fakeArchive{}
	notifier := &fakeNotifier{}
	d := fastPolicy(New(srv.URL, discard())).WithArchive(archive).WithNotifier(notifier)
	d.Dispatch(context.Background(), BuildReport(testSnapshot()))

	if archive.delivered {
		t.Error("archive must record the failure")
	}
	if archive.attempts != 3 {
		t.Errorf("archived attempts = %d, want 3", archive.attempts)
	}
	if archive.lastError == "" {
		t.Error("archive must record the last error")
	}
	if notifier.subject != "lure.report.failed" {
		t.Errorf("notifier subject = %q, want lure.report.failed", notifier.subject)
	}
}
