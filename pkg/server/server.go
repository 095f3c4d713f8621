package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"creditwatch/pkg/config"
	"creditwatch/pkg/server/middleware"
	"creditwatch/pkg/storage"
)

// Server is the HTTP control-plane server.
type Server struct {
	config       *config.Config
	store        storage.Store
	metrics      http.Handler
	httpServer   *http.Server
	logger       *slog.Logger
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a control-plane server. metricsHandler may be nil when
// metrics are disabled; /metrics is then not registered.
func NewServer(cfg *config.Config, store storage.Store, metricsHandler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:  cfg,
		store:   store,
		metrics: metricsHandler,
		logger:  logger.With("component", "server"),
	}
}

// Start starts the HTTP server and blocks until the context is cancelled or
// the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:           s.config.Server.ListenAddress,
		Handler:        s.Handler(),
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting control-plane server", "address", s.config.Server.ListenAddress)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.Server.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("control-plane server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler builds the route table with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	balanceHandler := NewBalanceHandler(s.store, s.logger)
	emailHandler := NewEmailHandler(s.store, s.config.Monitor.RecipientPageSize, s.logger)

	mux.HandleFunc("/update-balance", balanceHandler.Update)
	mux.HandleFunc("/balance", balanceHandler.Get)
	mux.HandleFunc("/add-email", emailHandler.Add)
	mux.HandleFunc("/emails", emailHandler.List)
	mux.Handle("/health", HealthHandler{})
	mux.Handle("/ready", NewReadyHandler(s.store))

	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}

	var handler http.Handler = mux

	handler = middleware.TimeoutMiddleware(s.config.Server.WriteTimeout)(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}
