package conversation

import (
	"fmt"
	"strings"
)

// Sender identifies which side of the conversation authored a message.
const (
	SenderCounterparty = "scammer"
	SenderResponder    = "user"
)

// Message is one turn of the conversation. Immutable once recorded.
type Message struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp any    `json:"timestamp,omitempty"` // ISO-8601 string or epoch number, passed through as received
}

// FromCounterparty reports whether the message was authored by the remote
// party rather than the responder persona.
func (m Message) FromCounterparty() bool {
	return !strings.EqualFold(m.Sender, SenderResponder) &&
		!strings.EqualFold(m.Sender, "responder") &&
		!strings.EqualFold(m.Sender, "agent")
}

// FormatTranscript renders an ordered history as SENDER: text lines for
// prompt injection. Insertion order is conversation order.
func FormatTranscript(history []Message) string {
	var sb strings.Builder
	for _, m := range history {
		fmt.Fprintf(&sb, "%s: %s\n", strings.ToUpper(m.Sender), m.Text)
	}
	return strings.TrimSpace(sb.String())
}
