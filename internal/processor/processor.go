// Package processor orchestrates one inbound message end-to-end: the
// user-facing reply and the reporting pipeline, decoupled so that reporting
// latency never delays the reply.
package processor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/decoylab/lure/internal/agent"
	"github.com/decoylab/lure/internal/conversation"
	"github.com/decoylab/lure/internal/dispatch"
	"github.com/decoylab/lure/internal/gate"
	"github.com/decoylab/lure/internal/intel"
	"github.com/decoylab/lure/internal/session"
)

// endedReply is returned for sessions that have already been reported. The
// collaborators are not invoked again for a terminal session.
const endedReply = "Sorry, I have to go now. My family is calling me."

// ReplyGenerator produces the persona's reply. Satisfied by *agent.Responder.
type ReplyGenerator interface {
	Respond(ctx context.Context, message string, history []conversation.Message) (string, error)
}

// Notifier publishes gate-crossing signals. Optional.
type Notifier interface {
	Publish(subject string, data any) error
}

// Processor wires the reply path and the reporting path together. The reply
// path is bounded by replyTimeout; the reporting path runs on its own
// goroutine with an independent budget.
type Processor struct {
	store        *session.Store
	responder    ReplyGenerator
	aggregator   *intel.Aggregator
	dispatcher   *dispatch.Dispatcher
	notifier     Notifier
	thresholds   gate.Thresholds
	replyTimeout time.Duration
	reportBudget time.Duration
	logger       *slog.Logger

	background sync.WaitGroup
}

const (
	DefaultReplyTimeout = 10 * time.Second
	defaultReportBudget = 2 * time.Minute
)

func New(store *session.Store, responder ReplyGenerator, aggregator *intel.Aggregator, dispatcher *dispatch.Dispatcher, logger *slog.Logger) *Processor {
	return &Processor{
		store:        store,
		responder:    responder,
		aggregator:   aggregator,
		dispatcher:   dispatcher,
		thresholds:   gate.DefaultThresholds(),
		replyTimeout: DefaultReplyTimeout,
		reportBudget: defaultReportBudget,
		logger:       logger,
	}
}

// WithThresholds overrides the reporting gate thresholds.
func (p *Processor) WithThresholds(t gate.Thresholds) *Processor {
	p.thresholds = t
	return p
}

// WithReplyTimeout overrides the reply collaborator's hard timeout.
func (p *Processor) WithReplyTimeout(d time.Duration) *Processor {
	if d > 0 {
		p.replyTimeout = d
	}
	return p
}

// WithNotifier attaches a gate-crossing signal publisher.
func (p *Processor) WithNotifier(n Notifier) *Processor {
	p.notifier = n
	return p
}

// HandleMessage processes one inbound message and always returns a reply.
// Internal failure of any collaborator degrades to a fallback reply; the
// reporting side effects run asynchronously and cannot affect the reply.
func (p *Processor) HandleMessage(ctx context.Context, sessionID string, msg conversation.Message, history []conversation.Message) string {
	snap := p.store.GetOrCreate(sessionID)
	if snap.Reported {
		p.logger.Info("session already reported, ending conversation", "session_id", sessionID)
		return endedReply
	}

	// The reporting path gets its own context: it has no caller waiting on
	// it and must survive the request ending.
	if msg.FromCounterparty() {
		p.background.Add(1)
		go func() {
			defer p.background.Done()
			p.runReportingPath(sessionID, msg, history)
		}()
	}

	replyCtx, cancel := context.WithTimeout(ctx, p.replyTimeout)
	defer cancel()

	reply, err := p.responder.Respond(replyCtx, msg.Text, history)
	if err != nil {
		p.logger.Warn("reply generation failed, using fallback",
			"session_id", sessionID,
			"error", err,
		)
		return agent.Fallback(snap.TurnCount)
	}
	return reply
}

// Snapshot exposes the current session state for observability endpoints.
func (p *Processor) Snapshot(sessionID string) (session.Snapshot, bool) {
	return p.store.Lookup(sessionID)
}

// Drain blocks until in-flight reporting tasks finish. Called on shutdown so
// a report mid-dispatch is not abandoned.
func (p *Processor) Drain() {
	p.background.Wait()
}

func (p *Processor) runReportingPath(sessionID string, msg conversation.Message, history []conversation.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), p.reportBudget)
	defer cancel()

	transcript := append(append([]conversation.Message{}, history...), msg)
	record := p.aggregator.Analyze(ctx, msg.Text, transcript)
	snap := p.store.RecordTurn(sessionID, record)

	decision := gate.Decide(snap.Intelligence, snap.TurnCount, snap.Reported, p.thresholds)
	p.logger.Info("reporting gate evaluated",
		"session_id", sessionID,
		"decision", string(decision),
		"turns", snap.TurnCount,
		"artifacts", snap.Intelligence.IntelCount(),
	)
	if decision != gate.Report {
		return
	}

	// Single linearization point: only the winner of the flip dispatches,
	// no matter how many concurrent turns crossed the threshold.
	if !p.store.TryMarkReported(sessionID) {
		p.logger.Info("report already claimed by concurrent turn", "session_id", sessionID)
		return
	}

	if p.notifier != nil {
		if err := p.notifier.Publish("lure.session.flagged", map[string]any{
			"session_id": sessionID,
			"turns":      snap.TurnCount,
			"artifacts":  snap.Intelligence.IntelCount(),
		}); err != nil {
			p.logger.Warn("failed to publish session flagged", "error", err)
		}
	}

	p.dispatcher.Dispatch(ctx, dispatch.BuildReport(snap))
}
