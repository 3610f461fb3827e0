package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"MarketPulse/internal/ingest"
	"MarketPulse/internal/metrics"
	"MarketPulse/internal/model"
)

// Analyzer serves the read side: indicator snapshots and sector heatmaps.
type Analyzer interface {
	Analysis(ctx context.Context, selected string) (*model.Analysis, error)
	SectorHeatmap(ctx context.Context, h model.Horizon) (*model.SectorHeatmap, error)
}

// Ingester starts ingest jobs and reports on them.
type Ingester interface {
	Start(ctx context.Context, opts ingest.Options) (*model.IngestJob, error)
	Progress(jobID string) (*model.IngestProgress, error)
	RecentJobs(limit int) ([]model.IngestJob, error)
}

// Server is the HTTP front of the service.
type Server struct {
	analyzer Analyzer
	ingester Ingester
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	timeout  time.Duration
	router   chi.Router
}

// New creates the server and its routes.
func New(analyzer Analyzer, ingester Ingester, m *metrics.Metrics, logger zerolog.Logger, timeout time.Duration) *Server {
	if m == nil {
		m = metrics.New()
	}
	s := &Server{
		analyzer: analyzer,
		ingester: ingester,
		metrics:  m,
		logger:   logger,
		timeout:  timeout,
	}
	s.setupRouter()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	if s.timeout > 0 {
		r.Use(middleware.Timeout(s.timeout))
	}

	// CORS for all origins, the dashboard is served separately
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	r.Get("/hello", s.handleHello)
	r.Get("/sector-heatmap", s.handleSectorHeatmap)
	r.Get("/analysis", s.handleAnalysis)
	r.Post("/run-ingest", s.handleRunIngest)
	r.Get("/ingest-progress/{job_id}", s.handleIngestProgress)
	r.Get("/ingest-jobs", s.handleIngestJobs)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	s.router = r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("error stopping HTTP server")
		return err
	}
	s.logger.Info().Msg("HTTP server stopped")
	return nil
}
