package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/pgx-risk-server/internal/api"
	"github.com/pgx-risk-server/internal/config"
	"github.com/pgx-risk-server/internal/domain"
	"github.com/pgx-risk-server/internal/report"
	"github.com/pgx-risk-server/internal/service"
	"github.com/pgx-risk-server/internal/vcf"
	"github.com/pgx-risk-server/pkg/explain"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger := newLogger(cfg.Logging)
	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting PGx risk server")

	store, err := report.New(cfg.Store)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open report store")
	}
	defer store.Close()

	cache, err := api.NewResultCache(cfg.Cache, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create result cache")
	}

	var explainer api.Explainer
	if cfg.Explain.Enabled {
		client := explain.NewClient(explain.Config{
			APIKey:     cfg.Explain.APIKey,
			BaseURL:    cfg.Explain.BaseURL,
			Model:      cfg.Explain.Model,
			Timeout:    cfg.Explain.Timeout,
			RatePerSec: cfg.Explain.RatePerSec,
			RateBurst:  cfg.Explain.RateBurst,
		}, logger)
		if client != nil {
			explainer = client
		}
	}

	server := api.NewServer(*cfg, logger,
		vcf.NewParser(logger),
		service.NewAnnotator(logger),
		store, cache, explainer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
	logger.Info("Server stopped")
}

func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
