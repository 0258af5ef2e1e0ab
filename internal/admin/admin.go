// Package admin exposes a minimal read-only HTTP surface for process
// supervisors. It never mutates page or user state; the operator CLI
// remains the only mutating interface.
package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/domguard/internal/store"
)

// Server wraps a chi router over a PageStore. Router() returns the
// http.Handler to pass to http.Server.
type Server struct {
	pages  store.PageStore
	logger *slog.Logger
	router *chi.Mux
}

// New builds the admin router with /healthz and /status mounted.
func New(pages store.PageStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{pages: pages, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/status", s.handleStatus)
	s.router = r
	return s
}

// Router returns the underlying handler.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type statusResponse struct {
	TrackedPages int `json:"tracked_pages"`
	InBreach     int `json:"in_breach"`
	Dynamic      int `json:"dynamic"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	pages, err := s.pages.ListAllTrackedPages(r.Context())
	if err != nil {
		s.logger.Error("admin: list tracked pages failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := statusResponse{TrackedPages: len(pages)}
	for _, p := range pages {
		if p.DefacementCount > 0 {
			resp.InBreach++
		}
		if p.Type.Dynamic {
			resp.Dynamic++
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("admin: encode status failed", "error", err)
	}
}
