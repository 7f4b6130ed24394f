// Package server exposes the HTTP and websocket API: single and batch
// analysis, cached domain lookups, stats, and the chat surface that drives
// background batch runs.
package server

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/domain-intel/internal/batch"
	"github.com/sells-group/domain-intel/internal/model"
	"github.com/sells-group/domain-intel/internal/normalize"
	"github.com/sells-group/domain-intel/internal/session"
)

// Config holds the server's behavioral knobs.
type Config struct {
	// MaxBatchEmails caps the synchronous batch endpoint.
	MaxBatchEmails int

	// RecentWindow is the duplicate-skip window for the chat and upload paths.
	RecentWindow time.Duration

	// AllowedOrigins feeds the CORS policy. Empty allows any origin.
	AllowedOrigins []string
}

// Store is the read side of persistence the handlers need.
type Store interface {
	DomainFresh(ctx context.Context, domain string, maxAge time.Duration) (bool, error)
	LatestByDomain(ctx context.Context, domain string, limit int) ([]model.AnalysisRecord, error)
	Recent(ctx context.Context, limit int) ([]model.AnalysisRecord, error)
	Stats(ctx context.Context) (*model.AnalysisStats, error)
	Ping(ctx context.Context) error
}

// Server wires the handlers to their collaborators. A nil resolver or store
// makes the endpoints that need them answer 503: the process can come up
// without credentials and still serve health checks.
type Server struct {
	cfg        Config
	store      Store
	resolver   batch.Resolver
	normalizer *normalize.Normalizer
	hub        *session.Hub
	scheduler  *batch.Scheduler
}

// New creates a Server.
func New(cfg Config, store Store, resolver batch.Resolver, normalizer *normalize.Normalizer, hub *session.Hub, scheduler *batch.Scheduler) *Server {
	if cfg.MaxBatchEmails <= 0 {
		cfg.MaxBatchEmails = 50
	}
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = 24 * time.Hour
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	return &Server{
		cfg:        cfg,
		store:      store,
		resolver:   resolver,
		normalizer: normalizer,
		hub:        hub,
		scheduler:  scheduler,
	}
}

// Router builds the route table.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Post("/analyze", s.handleAnalyze)
	r.Post("/analyze/batch", s.handleAnalyzeBatch)
	r.Get("/domain/{domain}", s.handleDomain)
	r.Get("/recent", s.handleRecent)
	r.Get("/stats", s.handleStats)
	r.Post("/chat/message", s.handleChatMessage)
	r.Post("/chat/preview-csv", s.handleChatPreview)
	r.Post("/chat/upload-csv", s.handleChatUpload)
	r.Get("/ws/{session_id}", s.handleWebsocket)

	return r
}
