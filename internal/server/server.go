// Package server exposes the tracker over a JSON HTTP API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/evgeniytob14/table/internal/models"
	"github.com/evgeniytob14/table/internal/scheduler"
)

// Service is the tracker surface the HTTP layer needs.
type Service interface {
	ListSources() []models.SourceInfo
	Compare(sourceA, sourceB string) ([]models.ComparisonResult, error)
	ItemPrices(query string) []models.ItemPrice
	LastUpdate() time.Time
	ForceRefresh(ctx context.Context, sourceID string) (scheduler.RefreshResult, error)
	ForceRefreshAll(ctx context.Context) map[string]scheduler.RefreshResult
	RunAlertPass(ctx context.Context) error
	CreateProfile(ctx context.Context, profile models.Profile) (int64, error)
	GetProfiles(ctx context.Context) ([]models.Profile, error)
	UpdateProfile(ctx context.Context, profile models.Profile) error
	DeleteProfile(ctx context.Context, id int64) error
}

// Server serves the tracker API on one listener.
type Server struct {
	httpServer *http.Server
	log        *slog.Logger
}

// NewServer registers all routes and wraps them in request logging.
func NewServer(log *slog.Logger, addr string, svc Service) *Server {
	handlers := &handler{log: log, svc: svc}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handlers.health)
	mux.HandleFunc("GET /api/sources", handlers.listSources)
	mux.HandleFunc("GET /api/compare/{from}/{to}", handlers.compare)
	mux.HandleFunc("POST /api/refresh", handlers.refreshAll)
	mux.HandleFunc("POST /api/refresh/{id}", handlers.refreshOne)
	mux.HandleFunc("POST /api/check-items", handlers.checkItems)
	mux.HandleFunc("GET /api/all-prices", handlers.allPrices)
	mux.HandleFunc("POST /api/alerts/run", handlers.runAlertPass)
	mux.HandleFunc("GET /api/profiles", handlers.listProfiles)
	mux.HandleFunc("POST /api/profiles", handlers.createProfile)
	mux.HandleFunc("PUT /api/profiles/{id}", handlers.updateProfile)
	mux.HandleFunc("DELETE /api/profiles/{id}", handlers.deleteProfile)

	srv := &http.Server{
		Addr:         addr,
		Handler:      logging(log)(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{httpServer: srv, log: log}
}

// Start blocks serving requests until Shutdown or a listener error.
func (s *Server) Start() error {
	s.log.Info("http server is starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("http server is shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// logging wraps the mux with structured request logs.
func logging(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			log.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.statusCode,
				"duration", time.Since(start),
				"remote_addr", r.RemoteAddr,
			)
		})
	}
}

// responseWriter captures the status code for the request log.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.wroteHeader = true
	}
	return rw.ResponseWriter.Write(b)
}
