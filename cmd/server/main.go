package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/williampepple1/listings-scraper/internal/api"
	"github.com/williampepple1/listings-scraper/internal/app"
	"github.com/williampepple1/listings-scraper/internal/config"
)

func main() {
	configFile := flag.String("config", "", "Path to configuration file (YAML)")
	port := flag.String("port", "", "Port to listen on (overrides the config file)")
	flag.Parse()

	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			logger.Fatal("could not load config", zap.Error(err))
		}
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pipeline := app.New(context.Background(), cfg, registry, logger)
	defer pipeline.Close()

	// Initialize API Server
	server := api.NewServer(cfg, pipeline.APIDependencies(registry), logger)

	// Graceful Shutdown
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("could not start server", zap.Error(err))
		}
	}()

	logger.Info("server started", zap.String("port", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}
