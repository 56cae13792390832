package intel

import (
	"context"
	"log/slog"

	"github.com/decoylab/lure/internal/conversation"
)

// StructuredExtractor is the richer extraction collaborator. It sees the whole
// transcript and is expected to attribute artifacts to the counterparty only.
// It may fail; the aggregator absorbs every failure mode.
type StructuredExtractor interface {
	Extract(ctx context.Context, message string, history []conversation.Message) (*Record, error)
}

// degradedNote marks records produced without the structured extractor.
const degradedNote = "pattern-only extraction; structured extractor unavailable"

// Aggregator reconciles the cheap lexical baseline with the structured
// extractor's attribution-aware output into one canonical per-turn record.
type Aggregator struct {
	extractor StructuredExtractor
	logger    *slog.Logger
}

func NewAggregator(extractor StructuredExtractor, logger *slog.Logger) *Aggregator {
	return &Aggregator{extractor: extractor, logger: logger}
}

// Analyze produces the intelligence record for one counterparty turn. It
// never fails: extractor timeouts, malformed output and rate limits all fold
// into the degraded baseline path.
func (a *Aggregator) Analyze(ctx context.Context, message string, history []conversation.Message) *Record {
	baseline := ExtractPatterns(message)

	if a.extractor != nil {
		rec, err := a.extractor.Extract(ctx, message, history)
		if err == nil && rec != nil {
			fillOmitted(rec, baseline)
			return rec
		}
		a.logger.Warn("structured extraction degraded", "error", err)
	}

	baseline.ScamDetected = HeuristicScamSignal(message)
	baseline.Notes = degradedNote
	return baseline
}

// fillOmitted backfills categories the extractor left empty from the baseline
// lexical pass for the same turn. A category the extractor did populate is
// trusted as-is: its attribution is stronger than the baseline's.
func fillOmitted(rec, baseline *Record) {
	if len(rec.UPIIDs) == 0 {
		rec.UPIIDs = baseline.UPIIDs
	}
	if len(rec.PhoneNumbers) == 0 {
		rec.PhoneNumbers = baseline.PhoneNumbers
	}
	if len(rec.BankAccounts) == 0 {
		rec.BankAccounts = baseline.BankAccounts
	}
	if len(rec.PhishingLinks) == 0 {
		rec.PhishingLinks = baseline.PhishingLinks
	}
	if len(rec.SuspiciousKeywords) == 0 {
		rec.SuspiciousKeywords = baseline.SuspiciousKeywords
	}
}
