package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/decoylab/lure/internal/conversation"
)

// decoyReply is served to callers that fail the API key check. The endpoint
// never rejects: an unauthenticated probe gets a plausible human reply.
const decoyReply = "Hello? Who is this?"

// panicReply is the last-resort reply if the handler itself blows up.
const panicReply = "Sorry, my phone is acting weird. Can you repeat?"

type inboundMessage struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp any    `json:"timestamp"`
}

// inboundPayload tolerates unknown fields and missing pieces; everything has
// a safe default.
type inboundPayload struct {
	SessionID           string           `json:"sessionId"`
	Message             inboundMessage   `json:"message"`
	ConversationHistory []inboundMessage `json:"conversationHistory"`
	Metadata            map[string]any   `json:"metadata"`
}

type honeypotResponse struct {
	Status string `json:"status"`
	Reply  string `json:"reply"`
}

// honeypot handles one inbound counterparty message. The transport contract
// is absolute: HTTP 200 with {status:"success", reply} no matter what fails
// internally — the consuming party treats any non-success status as a hard
// integration failure.
func (s *Server) honeypot(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("honeypot handler panicked", "panic", rec)
			writeReply(w, panicReply)
		}
	}()

	if s.apiKey != "" && r.Header.Get("x-api-key") != s.apiKey {
		writeReply(w, decoyReply)
		return
	}

	var payload inboundPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.logger.Warn("malformed honeypot payload, using defaults", "error", err)
	}

	sessionID, msg, history := normalize(payload)
	reply := s.proc.HandleMessage(r.Context(), sessionID, msg, history)
	writeReply(w, reply)
}

func normalize(payload inboundPayload) (string, conversation.Message, []conversation.Message) {
	sessionID := payload.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	msg := conversation.Message{
		Sender:    payload.Message.Sender,
		Text:      payload.Message.Text,
		Timestamp: payload.Message.Timestamp,
	}
	if msg.Sender == "" {
		msg.Sender = conversation.SenderCounterparty
	}
	if msg.Text == "" {
		msg.Text = "Hello?"
	}

	history := make([]conversation.Message, 0, len(payload.ConversationHistory))
	for _, h := range payload.ConversationHistory {
		history = append(history, conversation.Message{
			Sender:    h.Sender,
			Text:      h.Text,
			Timestamp: h.Timestamp,
		})
	}

	return sessionID, msg, history
}

func writeReply(w http.ResponseWriter, reply string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(honeypotResponse{Status: "success", Reply: reply})
}
