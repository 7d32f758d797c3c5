// Package server exposes estimation sessions over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tbxark/estimagent/agent"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 10 * time.Second

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRateLimit limits each client address to r requests per second with the
// given burst. A zero rate disables limiting.
func WithRateLimit(r float64, burst int) Option {
	return func(s *Server) {
		s.rate = rate.Limit(r)
		s.burst = burst
	}
}

// WithGatherer sets the registry served on /metrics.
func WithGatherer(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		if gatherer != nil {
			s.gatherer = gatherer
		}
	}
}

type Server struct {
	sessions *agent.Sessions
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	rate     rate.Limit
	burst    int

	router *gin.Engine
}

func New(sessions *agent.Sessions, opts ...Option) *Server {
	s := &Server{
		sessions: sessions,
		logger:   slog.Default(),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(s.logger))

	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	if s.rate > 0 {
		burst := max(s.burst, 1)
		api.Use(NewIPRateLimiter(s.rate, burst, s.logger).RateLimit())
	}
	api.POST("/session", s.createSession)
	api.POST("/chat", s.chat)
	api.POST("/upload", s.upload)
	api.GET("/conversation/:id", s.conversation)
	return router
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
