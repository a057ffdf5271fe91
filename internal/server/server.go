package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/resume-enhancer/internal/server/middleware"
	"github.com/jonathan/resume-enhancer/internal/session"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxUploadBytes bounds the multipart body of an analyze request
	DefaultMaxUploadBytes = 10 << 20
	// DefaultSweepInterval is how often idle sessions are evicted
	DefaultSweepInterval = time.Minute
	shutdownTimeout      = 30 * time.Second
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	store      *session.Store
	logger     *zap.Logger
	validator  *validator.Validate
	cfg        Config
}

// Config holds server configuration
type Config struct {
	Port               int
	MaxUploadBytes     int64
	SessionIdleTimeout time.Duration
	SweepInterval      time.Duration
}

// New creates a new server instance
func New(cfg Config, store *session.Store, logger *zap.Logger) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		store:     store,
		logger:    logger,
		validator: validator.New(),
		cfg:       cfg,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Long timeout for model calls and PDF rendering
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the routed handler wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleDeleteSession)

	mux.HandleFunc("POST /sessions/{id}/analyze", s.handleAnalyze)
	mux.HandleFunc("PUT /sessions/{id}/answers", s.handleAnswer)
	mux.HandleFunc("POST /sessions/{id}/confirm", s.handleConfirm)
	mux.HandleFunc("POST /sessions/{id}/enhance", s.handleEnhance)
	mux.HandleFunc("POST /sessions/{id}/enhance/stream", s.handleEnhanceStream)

	mux.HandleFunc("GET /sessions/{id}/download", s.handleDownload)
	mux.HandleFunc("GET /sessions/{id}/preview", s.handlePreview)

	return middleware.RequestID(middleware.Logging(s.logger)(s.withCORS(mux)))
}

// Start serves until ctx is cancelled, then shuts down gracefully. Idle
// sessions are swept in the background while the server runs.
func (s *Server) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.sweepSessions(ctx)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		s.logger.Info("server stopped")
		return nil
	})

	return g.Wait()
}

func (s *Server) sweepSessions(ctx context.Context) {
	if s.cfg.SessionIdleTimeout <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.store.Sweep(s.cfg.SessionIdleTimeout)
		}
	}
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+middleware.RequestIDHeader)
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, "+middleware.RequestIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.store.Len(),
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("error encoding JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// failure maps err to its status and writes it
func (s *Server) failure(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	s.errorResponse(w, status, err.Error())
}
