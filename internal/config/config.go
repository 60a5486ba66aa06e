/**
 * Configuration for the Flight Capture Worker
 *
 * Loads configuration from environment variables, optionally overlaid by a
 * TOML file named in CONFIG_FILE. Environment variables win over the file.
 */

package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config holds worker configuration
type Config struct {
	// Queue configuration
	RedisURL     string `toml:"redis_url"`
	QueueName    string `toml:"queue_name"`
	QueueBackend string `toml:"queue_backend"` // redis | asynq

	// Record store: PostgreSQL when DatabaseURL is set, SQLite otherwise
	DatabaseURL string `toml:"database_url"`
	SQLitePath  string `toml:"sqlite_path"`

	// Recognition configuration
	OCRBackend           string `toml:"ocr_backend"` // tesseract | vision | remote
	OCRServiceURL        string `toml:"ocr_service_url"`
	TesseractLanguage    string `toml:"tesseract_language"`
	RecognitionTimeoutMs int    `toml:"recognition_timeout_ms"`

	// Worker configuration
	WorkerConcurrency int   `toml:"worker_concurrency"`
	SessionTimeoutMs  int   `toml:"session_timeout_ms"`
	MaxImageSize      int64 `toml:"max_image_size"`

	// HTTP intake
	HTTPAddr string `toml:"http_addr"`

	// Logging
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// Defaults returns the configuration used when nothing is set
func Defaults() *Config {
	return &Config{
		RedisURL:             "redis://localhost:6379",
		QueueName:            "flightcapture:jobs",
		QueueBackend:         "redis",
		SQLitePath:           "flightcapture.db",
		OCRBackend:           "tesseract",
		TesseractLanguage:    "eng",
		RecognitionTimeoutMs: 15000,
		WorkerConcurrency:    4,
		SessionTimeoutMs:     120000,
		MaxImageSize:         25 * 1024 * 1024,
		HTTPAddr:             ":8095",
		LogLevel:             "info",
		LogFormat:            "json",
	}
}

// LoadConfig loads configuration from the optional TOML file and environment variables
func LoadConfig() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	}

	cfg.RedisURL = getEnvOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.QueueName = getEnvOrDefault("QUEUE_NAME", cfg.QueueName)
	cfg.QueueBackend = getEnvOrDefault("QUEUE_BACKEND", cfg.QueueBackend)
	cfg.DatabaseURL = getEnvOrDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.SQLitePath = getEnvOrDefault("SQLITE_PATH", cfg.SQLitePath)
	cfg.OCRBackend = getEnvOrDefault("OCR_BACKEND", cfg.OCRBackend)
	cfg.OCRServiceURL = getEnvOrDefault("OCR_SERVICE_URL", cfg.OCRServiceURL)
	cfg.TesseractLanguage = getEnvOrDefault("TESSERACT_LANGUAGE", cfg.TesseractLanguage)
	cfg.RecognitionTimeoutMs = getEnvAsIntOrDefault("RECOGNITION_TIMEOUT_MS", cfg.RecognitionTimeoutMs)
	cfg.WorkerConcurrency = getEnvAsIntOrDefault("WORKER_CONCURRENCY", cfg.WorkerConcurrency)
	cfg.SessionTimeoutMs = getEnvAsIntOrDefault("SESSION_TIMEOUT_MS", cfg.SessionTimeoutMs)
	cfg.MaxImageSize = getEnvAsInt64OrDefault("MAX_IMAGE_SIZE", cfg.MaxImageSize)
	cfg.HTTPAddr = getEnvOrDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.QueueName == "" {
		return fmt.Errorf("QUEUE_NAME is required")
	}

	switch c.QueueBackend {
	case "redis", "asynq":
	default:
		return fmt.Errorf("QUEUE_BACKEND must be redis or asynq, got %q", c.QueueBackend)
	}

	if c.DatabaseURL == "" && c.SQLitePath == "" {
		return fmt.Errorf("either DATABASE_URL or SQLITE_PATH is required")
	}

	switch c.OCRBackend {
	case "tesseract", "vision":
	case "remote":
		if c.OCRServiceURL == "" {
			return fmt.Errorf("OCR_SERVICE_URL is required when OCR_BACKEND=remote")
		}
	default:
		return fmt.Errorf("OCR_BACKEND must be tesseract, vision or remote, got %q", c.OCRBackend)
	}

	if c.RecognitionTimeoutMs < 100 || c.RecognitionTimeoutMs > 600000 {
		return fmt.Errorf("RECOGNITION_TIMEOUT_MS must be between 100 and 600000, got %d", c.RecognitionTimeoutMs)
	}

	if c.SessionTimeoutMs < c.RecognitionTimeoutMs {
		return fmt.Errorf("SESSION_TIMEOUT_MS (%d) must not be shorter than RECOGNITION_TIMEOUT_MS (%d)",
			c.SessionTimeoutMs, c.RecognitionTimeoutMs)
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 100, got %d", c.WorkerConcurrency)
	}

	if c.MaxImageSize < 1024 || c.MaxImageSize > 256*1024*1024 { // 1KB to 256MB
		return fmt.Errorf("MAX_IMAGE_SIZE must be between 1KB and 256MB, got %d", c.MaxImageSize)
	}

	return nil
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsInt64OrDefault gets environment variable as int64 or returns default
func getEnvAsInt64OrDefault(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}

	return value
}
