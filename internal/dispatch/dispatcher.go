// Package dispatch delivers approved reports to the external investigation
// callback. The caller must have won the session store's reported flip before
// invoking Dispatch; delivery failure here never re-opens a session.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/decoylab/lure/internal/intel"
	"github.com/decoylab/lure/internal/session"
)

// Artifacts is the callback's extractedIntelligence object.
type Artifacts struct {
	BankAccounts       []string `json:"bankAccounts"`
	UPIIDs             []string `json:"upiIds"`
	PhishingLinks      []string `json:"phishingLinks"`
	PhoneNumbers       []string `json:"phoneNumbers"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
}

// Report is the one-time payload sent to the investigation endpoint.
type Report struct {
	SessionID              string    `json:"sessionId"`
	ScamDetected           bool      `json:"scamDetected"`
	TotalMessagesExchanged int       `json:"totalMessagesExchanged"`
	ExtractedIntelligence  Artifacts `json:"extractedIntelligence"`
	AgentNotes             string    `json:"agentNotes"`
}

// BuildReport assembles the callback payload from a session snapshot. Each
// turn is one counterparty message plus one reply, so total messages is twice
// the turn count.
func BuildReport(snap session.Snapshot) Report {
	rec := snap.Intelligence
	return Report{
		SessionID:              snap.SessionID,
		ScamDetected:           true,
		TotalMessagesExchanged: snap.TurnCount * 2,
		ExtractedIntelligence: Artifacts{
			BankAccounts:       intel.SortedSlice(rec.BankAccounts),
			UPIIDs:             intel.SortedSlice(rec.UPIIDs),
			PhishingLinks:      intel.SortedSlice(rec.PhishingLinks),
			PhoneNumbers:       intel.SortedSlice(rec.PhoneNumbers),
			SuspiciousKeywords: intel.SortedSlice(rec.SuspiciousKeywords),
		},
		AgentNotes: rec.Notes,
	}
}

// Archiver persists dispatched reports for audit. Optional.
type Archiver interface {
	SaveReport(ctx context.Context, report Report, attempts int, delivered bool, lastError string) error
}

// Notifier publishes operator-visible delivery signals. Optional.
type Notifier interface {
	Publish(subject string, data any) error
}

const (
	DefaultMaxAttempts = 3
	DefaultBaseBackoff = time.Second
	DefaultMaxBackoff  = 8 * time.Second
)

// Dispatcher posts reports to the callback URL with bounded retries and
// exponential backoff. Exhausting retries is logged and accepted: the
// guarantee is at-most-one report attempt sequence per session, not
// guaranteed external delivery.
type Dispatcher struct {
	callbackURL string
	client      *http.Client
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	archive     Archiver
	notifier    Notifier
	logger      *slog.Logger
}

func New(callbackURL string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		callbackURL: callbackURL,
		client:      &http.Client{Timeout: 15 * time.Second},
		maxAttempts: DefaultMaxAttempts,
		baseBackoff: DefaultBaseBackoff,
		maxBackoff:  DefaultMaxBackoff,
		logger:      logger,
	}
}

// WithRetryPolicy overrides the attempt budget and backoff schedule.
func (d *Dispatcher) WithRetryPolicy(maxAttempts int, base, ceiling time.Duration) *Dispatcher {
	if maxAttempts > 0 {
		d.maxAttempts = maxAttempts
	}
	if base > 0 {
		d.baseBackoff = base
	}
	if ceiling > 0 {
		d.maxBackoff = ceiling
	}
	return d
}

// WithArchive attaches a report archive.
func (d *Dispatcher) WithArchive(a Archiver) *Dispatcher {
	d.archive = a
	return d
}

// WithNotifier attaches a delivery signal publisher.
func (d *Dispatcher) WithNotifier(n Notifier) *Dispatcher {
	d.notifier = n
	return d
}

// Dispatch attempts delivery until a success status or the attempt budget
// runs out. It never returns an error to the caller: the final outcome is
// logged, archived and published instead.
func (d *Dispatcher) Dispatch(ctx context.Context, report Report) bool {
	var lastErr error

	attempts := 0
	backoff := d.baseBackoff
	for attempts < d.maxAttempts {
		attempts++
		err := d.post(ctx, report)
		if err == nil {
			d.logger.Info("report delivered",
				"session_id", report.SessionID,
				"attempts", attempts,
			)
			d.record(ctx, report, attempts, true, "")
			return true
		}
		lastErr = err
		d.logger.Warn("report delivery attempt failed",
			"session_id", report.SessionID,
			"attempt", attempts,
			"error", err,
		)

		if ctx.Err() != nil {
			break
		}
		if attempts < d.maxAttempts {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
			}
			backoff *= 2
			if backoff > d.maxBackoff {
				backoff = d.maxBackoff
			}
		}
	}

	d.logger.Error("report delivery exhausted",
		"session_id", report.SessionID,
		"attempts", attempts,
		"error", lastErr,
	)
	d.record(ctx, report, attempts, false, fmt.Sprint(lastErr))
	return false
}

func (d *Dispatcher) post(ctx context.Context, report Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.callbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("callback post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("callback returned %d", resp.StatusCode)
	}
	return nil
}

func (d *Dispatcher) record(ctx context.Context, report Report, attempts int, delivered bool, lastErr string) {
	if d.archive != nil {
		if err := d.archive.SaveReport(ctx, report, attempts, delivered, lastErr); err != nil {
			d.logger.Error("failed to archive report", "session_id", report.SessionID, "error", err)
		}
	}
	if d.notifier != nil {
		subject := "lure.report.dispatched"
		if !delivered {
			subject = "lure.report.failed"
		}
		if err := d.notifier.Publish(subject, map[string]any{
			"session_id": report.SessionID,
			"attempts":   attempts,
			"delivered":  delivered,
			"artifacts":  len(report.ExtractedIntelligence.UPIIDs) + len(report.ExtractedIntelligence.PhoneNumbers) + len(report.ExtractedIntelligence.BankAccounts) + len(report.ExtractedIntelligence.PhishingLinks),
			"last_error": lastErr,
		}); err != nil {
			d.logger.Warn("failed to publish delivery signal", "error", err)
		}
	}
}
