package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != 8760 {
		t.Errorf("Port = %d, want 8760", cfg.Port)
	}
	if cfg.ReplyTimeout != 10*time.Second {
		t.Errorf("ReplyTimeout = %v, want 10s", cfg.ReplyTimeout)
	}
	if cfg.ReportMinTurns != 6 || cfg.ReportMinIntel != 2 {
		t.Errorf("thresholds = %d/%d, want 6/2", cfg.ReportMinTurns, cfg.ReportMinIntel)
	}
	if cfg.DispatchAttempts != 3 {
		t.Errorf("DispatchAttempts = %d, want 3", cfg.DispatchAttempts)
	}
	if cfg.DispatchBackoff != time.Second {
		t.Errorf("DispatchBackoff = %v, want 1s", cfg.DispatchBackoff)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LURE_PORT", "9000")
	t.Setenv("LURE_REPORT_MIN_TURNS", "8")
	t.Setenv("LURE_REPLY_TIMEOUT", "3s")
	t.Setenv("LURE_MODELS", "model-x, model-y,")

	cfg := Load()
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.ReportMinTurns != 8 {
		t.Errorf("ReportMinTurns = %d, want 8", cfg.ReportMinTurns)
	}
	if cfg.ReplyTimeout != 3*time.Second {
		t.Errorf("ReplyTimeout = %v, want 3s", cfg.ReplyTimeout)
	}
	if len(cfg.GeminiModels) != 2 || cfg.GeminiModels[0] != "model-x" {
		t.Errorf("GeminiModels = %v", cfg.GeminiModels)
	}
}

func TestLoad_IgnoresInvalidValues(t *testing.T) {
	t.Setenv("LURE_PORT", "not-a-number")
	t.Setenv("LURE_REPLY_TIMEOUT", "soon")

	cfg := Load()
	if cfg.Port != 8760 {
		t.Errorf("invalid int must fall back to default, got %d", cfg.Port)
	}
	if cfg.ReplyTimeout != 10*time.Second {
		t.Errorf("invalid duration must fall back to default, got %v", cfg.ReplyTimeout)
	}
}
