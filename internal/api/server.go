package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/decoylab/lure/internal/intel"
	"github.com/decoylab/lure/internal/processor"
)

type Server struct {
	router *chi.Mux
	port   int
	proc   *processor.Processor
	apiKey string
	logger *slog.Logger
}

func NewServer(port int, proc *processor.Processor, apiKey string, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
		proc:   proc,
		apiKey: apiKey,
		logger: logger,
	}

	router.Post("/honeypot", s.honeypot)
	router.Get("/health", s.health)
	router.Get("/api/v1/lure/status", s.status)
	router.Get("/api/v1/lure/sessions/{sessionID}", s.sessionSnapshot)

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"agent":  "lure",
		"status": "engaging",
	})
}

// sessionSnapshot exposes the accumulated intelligence for one session.
// Operator-facing observability, not part of the honeypot contract.
func (s *Server) sessionSnapshot(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	snap, ok := s.proc.Snapshot(sessionID)
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "unknown session"})
		return
	}

	rec := snap.Intelligence
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"sessionId": snap.SessionID,
		"turnCount": snap.TurnCount,
		"reported":  snap.Reported,
		"intelligence": map[string]any{
			"upiIds":             intel.SortedSlice(rec.UPIIDs),
			"phoneNumbers":       intel.SortedSlice(rec.PhoneNumbers),
			"bankAccounts":       intel.SortedSlice(rec.BankAccounts),
			"phishingLinks":      intel.SortedSlice(rec.PhishingLinks),
			"suspiciousKeywords": intel.SortedSlice(rec.SuspiciousKeywords),
			"scamDetected":       rec.ScamDetected,
			"notes":              rec.Notes,
		},
	})
}
