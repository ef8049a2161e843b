package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/readvideos/vt-engine/internal/config"
	"github.com/readvideos/vt-engine/internal/metrics"
	"github.com/readvideos/vt-engine/internal/pipeline"
	"github.com/readvideos/vt-engine/internal/store"
	"github.com/readvideos/vt-engine/internal/watch"
)

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

// Deps are the collaborators the server exposes. watcher and notifier may be
// nil when the corresponding feature is disabled.
type Deps struct {
	Store    *store.FileStore
	Queue    Enqueuer
	Bus      *pipeline.Bus
	Watcher  *watch.Watcher
	Notifier ConnChecker
}

func NewServer(cfg *config.Config, deps Deps, version string, startTime time.Time, log zerolog.Logger) *Server {
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(log))
	r.Use(CORS)
	r.Use(metrics.InstrumentHandler)

	// Unauthenticated: health and metrics for probes and scrapers
	health := NewHealthHandler(deps.Store, deps.Queue, deps.Watcher, deps.Notifier, version, startTime)
	r.Get("/api/v1/health", health.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	// Authenticated routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuth(cfg.AuthToken))
		NewVideosHandler(deps.Store, deps.Queue).Routes(r)
		NewEventsHandler(deps.Bus).Routes(r)
	})

	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
	}
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
