package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists export records in a local SQLite file
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent workers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initDB(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// initDB initializes the database tables
func (s *SQLiteStore) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS export_records (
			record_key TEXT PRIMARY KEY,
			job_id TEXT NOT NULL,
			flight_number TEXT,
			origin TEXT,
			destination TEXT,
			flight_date TEXT NOT NULL,
			date_inferred INTEGER NOT NULL DEFAULT 0,
			payload TEXT NOT NULL,
			review TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create export_records table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_export_records_flight ON export_records(flight_number, flight_date)`,
		`CREATE INDEX IF NOT EXISTS idx_export_records_job ON export_records(job_id)`,
	}
	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create export_records index: %w", err)
		}
	}

	return nil
}

// SaveRecord upserts the record by key, keeping the original created_at
func (s *SQLiteStore) SaveRecord(ctx context.Context, rec *Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(time.Second)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO export_records
		(record_key, job_id, flight_number, origin, destination, flight_date, date_inferred, payload, review, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(record_key) DO UPDATE SET
			job_id = excluded.job_id,
			flight_number = excluded.flight_number,
			origin = excluded.origin,
			destination = excluded.destination,
			flight_date = excluded.flight_date,
			date_inferred = excluded.date_inferred,
			payload = excluded.payload,
			review = excluded.review,
			updated_at = excluded.updated_at`,
		rec.Key,
		rec.JobID,
		rec.FlightNumber,
		rec.Origin,
		rec.Destination,
		rec.FlightDate.Format("2006-01-02"),
		rec.DateInferred,
		string(rec.Payload),
		nullableText(rec.Review),
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save record (key=%s): %w", rec.Key, err)
	}

	rec.UpdatedAt = now
	return nil
}

// GetRecord returns the record with the given key
func (s *SQLiteStore) GetRecord(ctx context.Context, key string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT record_key, job_id, flight_number, origin, destination, flight_date, date_inferred, payload, review, created_at, updated_at
		FROM export_records
		WHERE record_key = ?`,
		key,
	)

	var (
		rec                              Record
		flightDate, createdAt, updatedAt string
		payload                          string
		review                           sql.NullString
	)
	err := row.Scan(
		&rec.Key, &rec.JobID, &rec.FlightNumber, &rec.Origin, &rec.Destination,
		&flightDate, &rec.DateInferred, &payload, &review, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	if rec.FlightDate, err = time.Parse("2006-01-02", flightDate); err != nil {
		return nil, fmt.Errorf("failed to parse flight date: %w", err)
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	rec.Payload = []byte(payload)
	if review.Valid {
		rec.Review = []byte(review.String)
	}
	return &rec, nil
}

// Ping checks database connectivity
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullableText(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
