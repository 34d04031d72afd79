package rest

import (
	"context"
	"fmt"
	"import-service/internal/core/port"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	httpServer *http.Server
	logger     port.LoggerPort
}

// NewRouter собирает маршруты API. Вынесен отдельно, чтобы тесты ходили в него через httptest.
func NewRouter(handlers *ImportHandlers, baseLogger port.LoggerPort) http.Handler {
	r := chi.NewRouter()

	r.Use(LoggerMiddleware(baseLogger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handlers.HandleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AuthMiddleware)

		r.Route("/imports", func(r chi.Router) {
			r.Post("/analyze", handlers.HandleAnalyzeArchive)
			r.Post("/", handlers.HandleStartImport)
			r.Post("/fast", handlers.HandleStartFastImport)
			r.Get("/{jobID}", handlers.HandleGetJobStatus)
		})
		r.Get("/lists/{listID}", handlers.HandleGetList)
	})

	return r
}

func NewServer(httpPort string, handlers *ImportHandlers, baseLogger port.LoggerPort) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + httpPort,
			Handler:           NewRouter(handlers, baseLogger),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: baseLogger,
	}
}

// Start запускает HTTP-сервер
func (s *Server) Start() error {
	s.logger.Info("Starting REST API server", port.Fields{"address": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Could not start server", err, nil)
		return fmt.Errorf("could not start server: %w", err)
	}
	return nil
}

// Stop корректно останавливает сервер
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping REST API server...", nil)
	return s.httpServer.Shutdown(ctx)
}
