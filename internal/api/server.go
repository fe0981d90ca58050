package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgallion1/rfpagent/internal/config"
	"github.com/dgallion1/rfpagent/internal/extract"
	"github.com/dgallion1/rfpagent/internal/fetch"
	"github.com/dgallion1/rfpagent/internal/llm"
	"github.com/dgallion1/rfpagent/internal/proposal"
	"github.com/dgallion1/rfpagent/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps are the components the HTTP layer is wired to.
type Deps struct {
	Store     *store.Store
	Extractor *extract.Extractor
	Fetcher   *fetch.Downloader
	Proposals *proposal.Service
	Stats     *llm.Stats // nil when no model is configured
}

// Server is the HTTP API server for rfpagent.
type Server struct {
	router    chi.Router
	store     *store.Store
	extractor *extract.Extractor
	fetcher   *fetch.Downloader
	proposals *proposal.Service
	stats     *llm.Stats
	log       *slog.Logger
	cfg       config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		store:     deps.Store,
		extractor: deps.Extractor,
		fetcher:   deps.Fetcher,
		proposals: deps.Proposals,
		stats:     deps.Stats,
		log:       log,
		cfg:       cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/rfps", s.handleCreateRFP)
		r.Get("/api/rfps/{rfpID}", s.handleGetRFP)
		r.Post("/api/upload-rfp", s.handleUploadRFP)

		r.Get("/api/rfps/{rfpID}/messages", s.handleListMessages)
		r.Post("/api/admin/rfps/message", s.handleAddMessage(store.RoleAdmin))
		r.Post("/api/employee/rfps/message", s.handleAddMessage(store.RoleEmployee))

		r.Post("/api/final-rfp/status", s.handleFinalStatus)
		r.Post("/api/going_to_edit", s.handleCompileProposal)
		r.Post("/api/employee/rfps/{rfpID}/extract-file-text", s.handleExtractFileText)
		r.Post("/api/employee/rfps/{rfpID}/custom-prompt-edit", s.handleCustomPromptEdit)
		r.Post("/api/employee/rfps/{rfpID}/final-proposal", s.handleFinalProposal)

		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.log.Warn("health check failed", "error", err)
		jsonError(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
