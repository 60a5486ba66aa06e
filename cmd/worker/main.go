/**
 * Flight Capture Worker - Main Entry Point
 *
 * Turns screenshots of an electronic flight-log tablet into structured,
 * logbook-ready flight records.
 *
 * Architecture:
 * - Redis list or Asynq consumer for queued captures
 * - HTTP intake for direct uploads and record lookups
 * - Concurrent per-region OCR (Tesseract, Cloud Vision or a remote OCR service)
 * - PostgreSQL or SQLite persistence keyed by the idempotent record key
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/adverant/nexus/flightcapture-worker/internal/api"
	"github.com/adverant/nexus/flightcapture-worker/internal/clients"
	"github.com/adverant/nexus/flightcapture-worker/internal/config"
	"github.com/adverant/nexus/flightcapture-worker/internal/logging"
	"github.com/adverant/nexus/flightcapture-worker/internal/processor"
	"github.com/adverant/nexus/flightcapture-worker/internal/queue"
	"github.com/adverant/nexus/flightcapture-worker/internal/storage"
)

type consumer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env not found, using system environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logging.Setup(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	logger := logging.NewLogger("Worker")
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Flight Capture Worker starting",
		"queueBackend", cfg.QueueBackend,
		"queue", cfg.QueueName,
		"ocrBackend", cfg.OCRBackend,
		"workers", cfg.WorkerConcurrency)

	store, err := storage.NewRecordStore(storage.StoreConfig{
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	recognizer, closeRecognizer, err := newRecognizer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRecognizer()

	proc, err := processor.NewCaptureProcessor(&processor.ProcessorConfig{
		Recognizer:         recognizer,
		RecognitionTimeout: time.Duration(cfg.RecognitionTimeoutMs) * time.Millisecond,
		Store:              store,
		Logger:             logging.NewLogger("CaptureProcessor"),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize capture processor: %w", err)
	}

	sessionTimeout := time.Duration(cfg.SessionTimeoutMs) * time.Millisecond

	jobs, err := newConsumer(cfg, proc, sessionTimeout)
	if err != nil {
		return fmt.Errorf("failed to initialize queue consumer: %w", err)
	}
	if err := jobs.Start(ctx); err != nil {
		return fmt.Errorf("failed to start queue consumer: %w", err)
	}

	router := api.NewRouter(api.RouterConfig{
		Processor:    proc,
		Store:        store,
		MaxImageSize: cfg.MaxImageSize,
		Timeout:      sessionTimeout,
		Logger:       logging.NewLogger("API"),
	})
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      sessionTimeout + 10*time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP intake listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	logger.Info("Flight Capture Worker is ready")

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serverErr:
		logger.Error("HTTP server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), sessionTimeout+5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown incomplete", "error", err)
	}
	if sc, ok := jobs.(interface {
		GetStats(ctx context.Context) (map[string]int64, error)
	}); ok {
		if stats, err := sc.GetStats(shutdownCtx); err == nil {
			logger.Info("Queue state at shutdown", "stats", stats)
		}
	}
	if err := jobs.Stop(shutdownCtx); err != nil {
		logger.Warn("Queue consumer shutdown incomplete", "error", err)
	}

	logger.Info("Shutdown complete")
	return nil
}

func newRecognizer(ctx context.Context, cfg *config.Config, logger *logging.Logger) (processor.Recognizer, func(), error) {
	noop := func() {}

	switch cfg.OCRBackend {
	case "vision":
		v, err := processor.NewVisionRecognizer(ctx)
		if err != nil {
			return nil, noop, err
		}
		return v, func() { v.Close() }, nil

	case "remote":
		client := clients.NewOCRServiceClient(cfg.OCRServiceURL, time.Duration(cfg.RecognitionTimeoutMs)*time.Millisecond)
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.HealthCheck(checkCtx); err != nil {
			logger.Warn("OCR service health check failed, continuing", "url", cfg.OCRServiceURL, "error", err)
		}
		return processor.NewRemoteRecognizer(client, cfg.TesseractLanguage), noop, nil

	default:
		return processor.NewTesseractRecognizer(&processor.TesseractConfig{Language: cfg.TesseractLanguage}), noop, nil
	}
}

func newConsumer(cfg *config.Config, proc processor.CaptureProcessorInterface, timeout time.Duration) (consumer, error) {
	if cfg.QueueBackend == "asynq" {
		return queue.NewConsumer(&queue.ConsumerConfig{
			RedisURL:          cfg.RedisURL,
			QueueName:         cfg.QueueName,
			Concurrency:       cfg.WorkerConcurrency,
			Processor:         proc,
			ProcessingTimeout: timeout,
			MaxImageSize:      cfg.MaxImageSize,
			Logger:            logging.NewLogger("AsynqConsumer"),
		})
	}
	return queue.NewRedisConsumer(&queue.RedisConsumerConfig{
		RedisURL:          cfg.RedisURL,
		QueueName:         cfg.QueueName,
		Concurrency:       cfg.WorkerConcurrency,
		Processor:         proc,
		ProcessingTimeout: timeout,
		MaxImageSize:      cfg.MaxImageSize,
		Logger:            logging.NewLogger("RedisConsumer"),
	})
}
