package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/anchorpoint/internal/config"
	"github.com/xkilldash9x/anchorpoint/internal/engine"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Server is the HTTP placement API.
type Server struct {
	router chi.Router
	engine *engine.Engine
	cfg    config.Interface
	logger *zap.Logger
}

// NewServer creates and configures the HTTP server.
func NewServer(eng *engine.Engine, cfg config.Interface, logger *zap.Logger) *Server {
	s := &Server{
		engine: eng,
		cfg:    cfg,
		logger: logger.Named("api"),
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	srvCfg := s.cfg.Server()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.logger))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if srvCfg.APIKey != "" {
			r.Use(AuthMiddleware(srvCfg.APIKey))
		}
		r.Use(middleware.RequestSize(srvCfg.MaxBodyBytes))

		r.Post("/v1/place", s.handlePlace)
		r.Post("/v1/evaluate", s.handleEvaluate)
	})

	s.router = r
}

// Run serves on the configured address until ctx is done, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server().Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on '%s': %w", s.cfg.Server().Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run over an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srvCfg := s.cfg.Server()
	httpSrv := &http.Server{
		Handler:      s,
		ReadTimeout:  srvCfg.ReadTimeout,
		WriteTimeout: srvCfg.WriteTimeout,
		ErrorLog:     zap.NewStdLog(s.logger),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Placement API listening", zap.String("addr", ln.Addr().String()))
		errCh <- httpSrv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("placement API stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), srvCfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info("Shutting down placement API.")
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down placement API: %w", err)
	}
	<-errCh
	return nil
}
