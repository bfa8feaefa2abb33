package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adverant/nexus/pdf-extractor/internal/logging"
	"github.com/adverant/nexus/pdf-extractor/internal/server/handler"
	"github.com/adverant/nexus/pdf-extractor/internal/server/router"
)

const shutdownTimeout = 30 * time.Second

// Options configures the HTTP server.
type Options struct {
	Port        string
	Mode        string // debug, release or test
	APIKey      string
	Version     string
	MaxFileSize int64

	Extractor handler.Extractor
	Backend   handler.Pinger // optional

	// Queue and Jobs enable the /api/v1/jobs routes when both are set.
	Queue handler.JobQueue
	Jobs  handler.JobStore
}

// Server is the HTTP front end of the extractor.
type Server struct {
	http   *http.Server
	logger *logging.Logger
}

// New builds the dependency chain and the Gin engine.
func New(opts Options) (*Server, error) {
	if opts.Extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if opts.Port == "" {
		opts.Port = "5003"
	}

	// Set Gin mode based on environment
	switch opts.Mode {
	case gin.DebugMode, gin.TestMode:
		gin.SetMode(opts.Mode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	handlers := router.Handlers{
		Health:  handler.NewHealthHandler(opts.Extractor, opts.Backend, opts.Version),
		Extract: handler.NewExtractHandler(opts.Extractor, opts.MaxFileSize),
		Convert: handler.NewConvertHandler(opts.MaxFileSize),
	}
	if opts.Queue != nil && opts.Jobs != nil {
		handlers.Jobs = handler.NewJobsHandler(opts.Queue, opts.Jobs, opts.Extractor, opts.MaxFileSize)
	}

	engine := router.New(opts.APIKey, handlers)
	// Multipart bodies above this spill to disk.
	engine.MaxMultipartMemory = opts.MaxFileSize

	return &Server{
		http: &http.Server{
			Addr:              ":" + opts.Port,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logging.NewLogger("HTTPServer"),
	}, nil
}

// Handler exposes the routed engine.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown failed: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
