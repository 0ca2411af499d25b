// Package server exposes the operation surface over HTTP: a JSON-RPC 2.0
// endpoint, a websocket event stream, health and prometheus metrics.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/LeJamon/goRLUSD/internal/metrics"
	"github.com/LeJamon/goRLUSD/internal/operation"
)

// Config tunes the HTTP surface.
type Config struct {
	AllowedOrigins []string
	// RequestTimeout bounds one JSON-RPC call including submission waits.
	RequestTimeout time.Duration
	// Registry is served on /metrics when set.
	Registry *prometheus.Registry
}

// Server routes HTTP requests to a Dispatcher.
type Server struct {
	dispatcher *operation.Dispatcher
	hub        *Hub
	router     *mux.Router
	cfg        Config
	logger     *zap.Logger
}

// New builds the router. hub may be nil, in which case /ws is not served.
func New(d *operation.Dispatcher, hub *Hub, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		dispatcher: d,
		hub:        hub,
		router:     mux.NewRouter(),
		cfg:        cfg,
		logger:     logger,
	}
	if hub != nil {
		hub.AllowOrigins(cfg.AllowedOrigins)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/", s.handleRPC).Methods(http.MethodPost)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.cfg.Registry != nil {
		s.router.Handle("/metrics", metrics.Handler(s.cfg.Registry)).Methods(http.MethodGet)
	}
	if s.hub != nil {
		s.router.Handle("/ws", s.hub)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok","service":"rlusd"}`))
}

// Handler is the router wrapped in the CORS policy.
func (s *Server) Handler() http.Handler {
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(s.router)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server starting", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	s.logger.Info("api server stopping")
	return srv.Shutdown(shutdownCtx)
}
