/**
 * Record storage for the Flight Capture Worker
 *
 * Exported records are keyed by their idempotent key; saving the same
 * capture twice updates one row instead of creating two.
 */

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no record has the requested key
var ErrNotFound = errors.New("record not found")

// Record is one persisted export
type Record struct {
	Key          string          `json:"key"`
	JobID        string          `json:"job_id"`
	FlightNumber string          `json:"flight_number"`
	Origin       string          `json:"origin"`
	Destination  string          `json:"destination"`
	FlightDate   time.Time       `json:"flight_date"`
	DateInferred bool            `json:"date_inferred"`
	Payload      json.RawMessage `json:"payload"`
	Review       json.RawMessage `json:"review,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// RecordStore persists export records
type RecordStore interface {
	// SaveRecord inserts the record or replaces the one with the same key.
	SaveRecord(ctx context.Context, rec *Record) error
	GetRecord(ctx context.Context, key string) (*Record, error)
	Ping(ctx context.Context) error
	Close() error
}

// StoreConfig selects the backend: PostgreSQL when DatabaseURL is set,
// SQLite at SQLitePath otherwise.
type StoreConfig struct {
	DatabaseURL string
	SQLitePath  string
}

// NewRecordStore opens the configured store
func NewRecordStore(cfg StoreConfig) (RecordStore, error) {
	if cfg.DatabaseURL != "" {
		store, err := NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL store: %w", err)
		}
		return store, nil
	}
	if cfg.SQLitePath != "" {
		store, err := NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		return store, nil
	}
	return nil, fmt.Errorf("no record store configured")
}

func validateRecord(rec *Record) error {
	if rec == nil {
		return fmt.Errorf("record is required")
	}
	if rec.Key == "" {
		return fmt.Errorf("record key is required")
	}
	if len(rec.Payload) == 0 {
		return fmt.Errorf("record payload is required")
	}
	return nil
}
