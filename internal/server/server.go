// Package server exposes the survey orchestrator and topic pipeline over
// HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/canvass-ai/surveyd/internal/orchestrator"
	"github.com/canvass-ai/surveyd/internal/pipeline"
)

// requestTimeout bounds a single request, long enough for a full survey
// pipeline run across several providers.
const requestTimeout = 120 * time.Second

type Server struct {
	Router *chi.Mux
	Port   int
	logger *slog.Logger

	orch *orchestrator.Orchestrator
	pipe *pipeline.Pipeline
}

func New(port int, logger *slog.Logger, orch *orchestrator.Orchestrator, pipe *pipeline.Pipeline) *Server {
	r := chi.NewRouter()

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(TimeoutMiddleware(requestTimeout))
	r.Use(middleware.Recoverer)

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "surveyd")
	})

	s := &Server{
		Router: r,
		Port:   port,
		logger: logger,
		orch:   orch,
		pipe:   pipe,
	}

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/questions", s.handleQuestion)
		r.Get("/sessions/{id}/history", s.handleHistory)
		r.Post("/sessions/{id}/finalize", s.handleFinalize)
		r.Post("/surveys", s.handleSurvey)
		r.Get("/responses/recent", s.handleRecent)
	})

	return s
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.Port),
		Handler: s.Router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", slog.Int("port", s.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
