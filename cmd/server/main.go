package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/classify-api/internal/app"
	"github.com/Brownie44l1/classify-api/internal/config"
	"github.com/Brownie44l1/classify-api/internal/handlers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		logrus.Fatalf("Failed to configure logging: %v", err)
	}

	classifier, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize classifier: %v", err)
	}
	defer classifier.Close()

	handler := handlers.NewHandler(classifier.Pipeline, logger)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Shutdown failed")
		}
	}()

	logger.WithFields(logrus.Fields{
		"port":    cfg.Port,
		"model":   cfg.ModelPath,
		"classes": classifier.Labels.Len(),
	}).Info("Server starting")
	logger.Info("Endpoints:")
	logger.Info("  GET  /health   - Health check")
	logger.Info("  GET  /classify?img=<url>[&top=k] - Classify an image by URL")
	logger.Info("  POST /classify {\"img\": \"<url>\"} - Same, JSON body")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Server failed: %v", err)
	}
}
