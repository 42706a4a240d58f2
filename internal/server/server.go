// Package server собирает HTTP транспорт узла: маршруты, middleware и жизненный цикл http.Server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/iudanet/deltasync/internal/metrics"
	"github.com/iudanet/deltasync/internal/node"
	"github.com/iudanet/deltasync/internal/server/handlers"
	"github.com/iudanet/deltasync/internal/server/middleware"
)

const (
	tokenPath   = "/api/v1/auth/token"
	healthPath  = "/api/v1/health"
	metricsPath = "/metrics"

	shutdownTimeout = 10 * time.Second
)

// RateLimit настройки ограничения частоты запросов
type RateLimit struct {
	RequestsPerSecond float64
	Burst             int
	Enabled           bool
}

// Config параметры HTTP сервера
type Config struct {
	Keys      handlers.KeyStore
	Listen    string
	Version   string
	JWT       handlers.JWTConfig
	RateLimit RateLimit
}

// Server HTTP сервер узла
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	limiter    *middleware.RateLimiter
	handler    http.Handler
}

// New создает сервер. m может быть nil, тогда /metrics не публикуется.
func New(cfg Config, n *node.Node, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{logger: logger}

	mux := http.NewServeMux()

	health := handlers.NewHealthHandler(logger, n, cfg.Version)
	mux.HandleFunc("GET "+healthPath, health.Health)

	if cfg.JWT.Enabled() && cfg.Keys != nil {
		auth := handlers.NewAuthHandler(logger, cfg.Keys, cfg.JWT)
		mux.HandleFunc("POST "+tokenPath, auth.Token)
	}

	collab := handlers.NewCollabHandler(logger, n)
	requireAuth := middleware.AuthMiddleware(logger, cfg.JWT)
	route := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, requireAuth(h))
	}
	route("GET /api/v1/collab/{name}/clock", collab.Clock)
	route("POST /api/v1/collab/{name}/pull", collab.Pull)
	route("POST /api/v1/collab/{name}/push", collab.Push)
	route("GET /api/v1/collab/{name}/snapshot", collab.Snapshot)
	route("GET /api/v1/collab/{name}/value", collab.Value)
	route("POST /api/v1/collab/{name}/mutate", collab.Mutate)

	if m != nil {
		mux.Handle("GET "+metricsPath, m.Handler())
	}

	var handler http.Handler = mux
	if cfg.RateLimit.Enabled {
		s.limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger)
		// Выдача токенов ограничивается строже: это единственная точка перебора секрета
		tokenLimit := []middleware.PathRateLimit{{Path: tokenPath, RPS: 0.2, Burst: 5}}
		handler = middleware.RateLimitByPathMiddleware(tokenLimit, s.limiter, logger)(handler)
	}
	handler = middleware.LoggingWithSkip(logger, []string{healthPath, metricsPath})(handler)
	handler = middleware.RecoveryMiddleware(logger)(handler)

	s.handler = handler
	s.httpServer = &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// Handler возвращает корневой обработчик со всеми middleware
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run обслуживает запросы до отмены ctx, затем корректно завершает сервер
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve обслуживает запросы на ln до отмены ctx
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.stopLimiter()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	err := s.httpServer.Shutdown(shutdownCtx)
	s.stopLimiter()
	if err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}

func (s *Server) stopLimiter() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}
