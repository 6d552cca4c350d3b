package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/htmlpath/internal/anchorstore"
	"github.com/dgallion1/htmlpath/internal/config"
	"github.com/dgallion1/htmlpath/internal/pipeline"
	"github.com/dgallion1/htmlpath/internal/stats"
	"github.com/dgallion1/htmlpath/internal/verify"
)

// AnchorReader is the part of the anchor store the API exposes directly.
type AnchorReader interface {
	GetAnchors(ctx context.Context, docID string) (*anchorstore.Record, error)
	DeleteAnchors(ctx context.Context, docID string) error
}

// Server is the HTTP API server for htmlpath.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	anchors      AnchorReader
	evaluator    *verify.Evaluator
	latency      *stats.Latency
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. anchors may be nil when
// no anchor store is configured.
func NewServer(orch *pipeline.Orchestrator, anchors AnchorReader, log *slog.Logger, cfg config.Config) *Server {
	latency := orch.Latency()
	if latency == nil {
		latency = stats.NewLatency(cfg.StatsWindow)
	}
	s := &Server{
		orchestrator: orch,
		anchors:      anchors,
		evaluator:    verify.NewEvaluator(),
		latency:      latency,
		log:          log,
		cfg:          cfg,
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

		r.Post("/api/resolve", s.handleResolve)
		r.Post("/api/resolve/batch", s.handleResolveBatch)
		r.Post("/api/verify", s.handleVerify)

		r.Post("/api/documents", s.handleUploadDocument)
		r.Get("/api/documents/{jobID}", s.handleDocumentStatus)

		r.Get("/api/anchors/{docID}", s.handleGetAnchors)
		r.Delete("/api/anchors/{docID}", s.handleDeleteAnchors)

		r.Get("/api/stats/resolve", s.handleResolveStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
