// Package agent generates the responder persona's replies.
package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/decoylab/lure/internal/conversation"
)

// Generator produces a completion for a prompt. Satisfied by *gemini.Client.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// FallbackReplies are served when the generator fails or times out. Innocuous
// by design: a confused human asking for a repeat keeps the engagement alive.
var FallbackReplies = []string{
	"I'm a bit confused… can you please explain once more?",
	"Sorry, my phone is acting weird. Can you repeat?",
	"Wait, I didn't get that. What should I do exactly?",
}

// Responder turns an inbound message plus history into a persona reply.
type Responder struct {
	llm    Generator
	logger *slog.Logger
}

func NewResponder(llm Generator, logger *slog.Logger) *Responder {
	return &Responder{llm: llm, logger: logger}
}

// Respond builds the persona prompt and asks the generator for a reply. The
// caller owns the timeout and the fallback on error.
func (r *Responder) Respond(ctx context.Context, message string, history []conversation.Message) (string, error) {
	prompt := fmt.Sprintf(personaPrompt, conversation.FormatTranscript(history), message)

	reply, err := r.llm.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	if reply == "" {
		return "", fmt.Errorf("empty reply from generator")
	}
	r.logger.Debug("persona reply generated", "len", len(reply))
	return reply, nil
}

// Fallback picks a canned reply, rotating on turn count so consecutive
// failures don't repeat the exact same line.
func Fallback(turn int) string {
	if turn < 0 {
		turn = 0
	}
	return FallbackReplies[turn%len(FallbackReplies)]
}
