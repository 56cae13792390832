// Package gate decides when a session's accumulated intelligence justifies
// filing the one-time report to the investigation endpoint.
package gate

import "github.com/decoylab/lure/internal/intel"

// Decision is the outcome of evaluating a session against the reporting rule.
type Decision string

const (
	// Wait means keep the counterparty engaged; not enough evidence yet.
	Wait Decision = "wait"
	// Report means file the report now. The caller must win the store's
	// reported flip before dispatching.
	Report Decision = "report"
	// AlreadyDone means the session has already been reported.
	AlreadyDone Decision = "already_done"
)

// Default thresholds. Either sustained engagement or a high-value single-turn
// disclosure is enough to close out a session.
const (
	DefaultMinTurns = 6
	DefaultMinIntel = 2
)

// Thresholds parameterize the reporting rule.
type Thresholds struct {
	MinTurns int // turn count at which one artifact suffices
	MinIntel int // artifact count that shortcuts the turn requirement
}

func DefaultThresholds() Thresholds {
	return Thresholds{MinTurns: DefaultMinTurns, MinIntel: DefaultMinIntel}
}

// Decide evaluates the reporting rule. Pure: no I/O, no state.
func Decide(record *intel.Record, turnCount int, alreadyReported bool, t Thresholds) Decision {
	if alreadyReported {
		return AlreadyDone
	}
	count := record.IntelCount()
	if record.ScamDetected && count >= 1 && (turnCount >= t.MinTurns || count >= t.MinIntel) {
		return Report
	}
	return Wait
}
