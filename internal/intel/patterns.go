package intel

import (
	"regexp"
	"strings"
)

// Lexical rules for artifact candidates. Deliberately wide — attribution and
// false-positive pruning happen in the aggregation step, not here.
var (
	upiRe   = regexp.MustCompile(`\b[\w.\-]{2,}@[a-zA-Z]{2,}\b`)
	phoneRe = regexp.MustCompile(`\b(?:\+91|0)?([6-9]\d{9})\b`)
	bankRe  = regexp.MustCompile(`\b\d{9,18}\b`)
	linkRe  = regexp.MustCompile(`https?://\S+`)
)

// keywordVocab is the fixed vocabulary for the keyword containment check.
var keywordVocab = []string{
	"urgent", "verify", "blocked", "otp",
	"kyc", "account", "payment", "suspend",
}

// ExtractPatterns runs the fixed lexical rules over raw text and returns the
// candidate artifacts found. It is total: malformed input yields fewer or no
// matches, never an error. All sets come back allocated, possibly empty.
func ExtractPatterns(text string) *Record {
	rec := NewRecord()

	for _, m := range upiRe.FindAllString(text, -1) {
		rec.AddUPI(m)
	}
	for _, m := range phoneRe.FindAllStringSubmatch(text, -1) {
		rec.PhoneNumbers[m[1]] = struct{}{}
	}
	for _, m := range bankRe.FindAllString(text, -1) {
		rec.BankAccounts[m] = struct{}{}
	}
	for _, m := range linkRe.FindAllString(text, -1) {
		rec.PhishingLinks[m] = struct{}{}
	}

	lower := strings.ToLower(text)
	for _, kw := range keywordVocab {
		if strings.Contains(lower, kw) {
			rec.SuspiciousKeywords[kw] = struct{}{}
		}
	}

	return rec
}

// highSignalWords drive the degraded-mode scam heuristic when the structured
// extractor is unavailable.
var highSignalWords = []string{"bank", "block", "pay", "upi", "kyc"}

// HeuristicScamSignal reports whether the text alone looks like an active
// scam attempt: any high-signal word or a link.
func HeuristicScamSignal(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range highSignalWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return linkRe.MatchString(text)
}
