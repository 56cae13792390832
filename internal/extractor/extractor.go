// Package extractor calls the structured-extraction collaborator: an LLM
// pass over the transcript that attributes artifacts to the counterparty.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/decoylab/lure/internal/agent"
	"github.com/decoylab/lure/internal/conversation"
	"github.com/decoylab/lure/internal/intel"
)

type Extractor struct {
	llm    agent.Generator
	logger *slog.Logger
}

func New(llm agent.Generator, logger *slog.Logger) *Extractor {
	return &Extractor{llm: llm, logger: logger}
}

type llmResponse struct {
	UPIIDs             []string `json:"upiIds"`
	PhoneNumbers       []string `json:"phoneNumbers"`
	BankAccounts       []string `json:"bankAccounts"`
	PhishingLinks      []string `json:"phishingLinks"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
	ScamDetected       bool     `json:"scamDetected"`
	Notes              string   `json:"notes"`
}

// Extract runs the attribution-aware extraction over the latest counterparty
// message plus the full history. Returns an error on any collaborator fault;
// the aggregator owns the degraded fallback.
func (e *Extractor) Extract(ctx context.Context, message string, history []conversation.Message) (*intel.Record, error) {
	prompt := fmt.Sprintf(extractionPrompt, conversation.FormatTranscript(history), message)

	raw, err := e.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("llm extraction: %w", err)
	}

	var resp llmResponse
	if err := json.Unmarshal([]byte(stripFences(raw)), &resp); err != nil {
		e.logger.Error("failed to parse extraction response",
			"error", err,
			"raw", raw,
		)
		return nil, fmt.Errorf("parse extraction: %w", err)
	}

	rec := intel.NewRecord()
	for _, id := range resp.UPIIDs {
		rec.AddUPI(id)
	}
	addAll(rec.PhoneNumbers, resp.PhoneNumbers)
	addAll(rec.BankAccounts, resp.BankAccounts)
	addAll(rec.PhishingLinks, resp.PhishingLinks)
	addAll(rec.SuspiciousKeywords, resp.SuspiciousKeywords)
	rec.ScamDetected = resp.ScamDetected
	rec.Notes = strings.TrimSpace(resp.Notes)

	e.logger.Info("extraction complete",
		"scam_detected", rec.ScamDetected,
		"artifacts", rec.IntelCount(),
	)

	return rec, nil
}

func addAll(set map[string]struct{}, values []string) {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = struct{}{}
		}
	}
}

// stripFences removes a markdown code fence if the model wrapped its JSON in
// one despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
