package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/variant-curation-server/internal/api"
	"github.com/variant-curation-server/internal/app"
	"github.com/variant-curation-server/internal/config"
	"github.com/variant-curation-server/internal/logging"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()

	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, configManager, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	logger.WithFields(logrus.Fields{
		"host":        cfg.Server.Host,
		"port":        cfg.Server.Port,
		"environment": cfg.Environment,
	}).Info("Starting variant curation server")

	server := api.NewServer(configManager, application.Service, application.Registry, logger)
	for name, check := range application.HealthChecks {
		server.AddHealthCheck(name, check)
	}
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		application.Close()
		os.Exit(1)
	}

	logger.Info("Server stopped")
}
