package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/tbxark/estimagent/app"
	"github.com/tbxark/estimagent/config"
	"github.com/tbxark/estimagent/metrics"
	"github.com/tbxark/estimagent/server"
)

func main() {
	conf := flag.String("config", "", "path to YAML config file")
	flag.Parse()
	cfg, err := config.Load(*conf)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		log.Fatalf("run server: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := app.NewLogger(cfg.Env, os.Stdout)
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheusRecorder(reg)

	sessions, err := app.NewSessions(ctx, cfg, recorder, logger)
	if err != nil {
		return err
	}
	logger.Info("Estimation service starting",
		"services", cfg.Catalog().Names(),
		"default_service", cfg.DefaultService,
		"model_backed", cfg.OpenAI.Enabled(),
	)

	srv := server.New(sessions,
		server.WithLogger(logger),
		server.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
		server.WithGatherer(reg),
	)
	return srv.Run(ctx, cfg.Addr)
}
