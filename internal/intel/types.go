package intel

import (
	"sort"
	"strings"
)

// Record is the accumulated forensic intelligence for a session.
// Category sets are deduplicated by exact value and only ever grow.
type Record struct {
	UPIIDs             map[string]struct{}
	PhoneNumbers       map[string]struct{}
	BankAccounts       map[string]struct{}
	PhishingLinks      map[string]struct{}
	SuspiciousKeywords map[string]struct{}
	ScamDetected       bool
	Notes              string
}

// NewRecord returns an empty record with all sets allocated.
func NewRecord() *Record {
	return &Record{
		UPIIDs:             make(map[string]struct{}),
		PhoneNumbers:       make(map[string]struct{}),
		BankAccounts:       make(map[string]struct{}),
		PhishingLinks:      make(map[string]struct{}),
		SuspiciousKeywords: make(map[string]struct{}),
	}
}

// Merge folds other into r. Sets union, ScamDetected is a sticky OR, and
// non-empty notes are appended.
func (r *Record) Merge(other *Record) {
	if other == nil {
		return
	}
	union(r.UPIIDs, other.UPIIDs)
	union(r.PhoneNumbers, other.PhoneNumbers)
	union(r.BankAccounts, other.BankAccounts)
	union(r.PhishingLinks, other.PhishingLinks)
	union(r.SuspiciousKeywords, other.SuspiciousKeywords)
	if other.ScamDetected {
		r.ScamDetected = true
	}
	if other.Notes != "" {
		if r.Notes == "" {
			r.Notes = other.Notes
		} else if !strings.Contains(r.Notes, other.Notes) {
			r.Notes = r.Notes + " | " + other.Notes
		}
	}
}

// IntelCount is the number of actionable artifacts: payment ids, links,
// accounts and phone numbers. Keywords are corroboration, not evidence.
func (r *Record) IntelCount() int {
	return len(r.UPIIDs) + len(r.PhishingLinks) + len(r.BankAccounts) + len(r.PhoneNumbers)
}

// Clone returns a deep copy. Snapshots handed outside the store must not
// alias the live sets.
func (r *Record) Clone() *Record {
	c := NewRecord()
	c.Merge(r)
	c.ScamDetected = r.ScamDetected
	c.Notes = r.Notes
	return c
}

// AddUPI inserts a payment id, normalising case so that SCAMMER@upi and
// scammer@upi dedupe to one entry.
func (r *Record) AddUPI(id string) {
	if id != "" {
		r.UPIIDs[strings.ToLower(id)] = struct{}{}
	}
}

func union(dst, src map[string]struct{}) {
	for k := range src {
		dst[k] = struct{}{}
	}
}

// SortedSlice renders a set as a sorted slice for stable JSON payloads
// and test assertions.
func SortedSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
