package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port               int
	LogLevel           string
	APIKey             string
	GeminiAPIKey       string
	GeminiModels       []string
	CallbackURL        string
	ReplyTimeout       time.Duration
	ReportMinTurns     int
	ReportMinIntel     int
	DispatchAttempts   int
	DispatchBackoff    time.Duration
	DispatchBackoffMax time.Duration
	DatabaseURL        string
	NatsURL            string
	NatsToken          string
}

func Load() Config {
	return Config{
		Port:               envInt("LURE_PORT", 8760),
		LogLevel:           envStr("LOG_LEVEL", "info"),
		APIKey:             envStr("LURE_API_KEY", ""),
		GeminiAPIKey:       envStr("GEMINI_API_KEY", ""),
		GeminiModels:       envList("LURE_MODELS", nil),
		CallbackURL:        envStr("LURE_CALLBACK_URL", ""),
		ReplyTimeout:       envDur("LURE_REPLY_TIMEOUT", 10*time.Second),
		ReportMinTurns:     envInt("LURE_REPORT_MIN_TURNS", 6),
		ReportMinIntel:     envInt("LURE_REPORT_MIN_INTEL", 2),
		DispatchAttempts:   envInt("LURE_DISPATCH_ATTEMPTS", 3),
		DispatchBackoff:    envDur("LURE_DISPATCH_BACKOFF", time.Second),
		DispatchBackoffMax: envDur("LURE_DISPATCH_BACKOFF_MAX", 8*time.Second),
		DatabaseURL:        envStr("DATABASE_URL", ""),
		NatsURL:            envStr("NATS_URL", ""),
		NatsToken:          envStr("NATS_TOKEN", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
