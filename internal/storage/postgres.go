/**
 * PostgreSQL store for the Flight Capture Worker
 *
 * Persists export records in flightcapture.export_records, upserting on the
 * record key.
 */

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const postgresSchema = `
	CREATE SCHEMA IF NOT EXISTS flightcapture;
	CREATE TABLE IF NOT EXISTS flightcapture.export_records (
		record_key     TEXT PRIMARY KEY,
		job_id         TEXT NOT NULL,
		flight_number  TEXT,
		origin         TEXT,
		destination    TEXT,
		flight_date    DATE NOT NULL,
		date_inferred  BOOLEAN NOT NULL DEFAULT FALSE,
		payload        JSONB NOT NULL,
		review         JSONB,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_export_records_flight
		ON flightcapture.export_records (flight_number, flight_date);
`

// PostgresStore handles record persistence in PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects and ensures the schema exists
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// SaveRecord upserts the record by key
func (p *PostgresStore) SaveRecord(ctx context.Context, rec *Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	query := `
		INSERT INTO flightcapture.export_records (
			record_key, job_id, flight_number, origin, destination,
			flight_date, date_inferred, payload, review, created_at, updated_at
		) VALUES (
			$1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''),
			$6, $7, $8::jsonb, $9::jsonb, NOW(), NOW()
		)
		ON CONFLICT (record_key) DO UPDATE SET
			job_id = EXCLUDED.job_id,
			flight_number = EXCLUDED.flight_number,
			origin = EXCLUDED.origin,
			destination = EXCLUDED.destination,
			flight_date = EXCLUDED.flight_date,
			date_inferred = EXCLUDED.date_inferred,
			payload = EXCLUDED.payload,
			review = EXCLUDED.review,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`

	var review interface{}
	if len(rec.Review) > 0 {
		review = string(rec.Review)
	}

	err := p.db.QueryRowContext(ctx, query,
		rec.Key,                             // $1
		rec.JobID,                           // $2
		rec.FlightNumber,                    // $3
		rec.Origin,                          // $4
		rec.Destination,                     // $5
		rec.FlightDate.Format("2006-01-02"), // $6
		rec.DateInferred,                    // $7
		string(rec.Payload),                 // $8
		review,                              // $9
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save record (key=%s, job=%s): %w", rec.Key, rec.JobID, err)
	}

	return nil
}

// GetRecord retrieves a record by key
func (p *PostgresStore) GetRecord(ctx context.Context, key string) (*Record, error) {
	if key == "" {
		return nil, fmt.Errorf("record key is required")
	}

	query := `
		SELECT
			record_key, job_id, flight_number, origin, destination,
			flight_date, date_inferred, payload, review, created_at, updated_at
		FROM flightcapture.export_records
		WHERE record_key = $1
	`

	var (
		rec                               Record
		flightNumber, origin, destination sql.NullString
		payload, review                   []byte
	)
	err := p.db.QueryRowContext(ctx, query, key).Scan(
		&rec.Key, &rec.JobID, &flightNumber, &origin, &destination,
		&rec.FlightDate, &rec.DateInferred, &payload, &review,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	rec.FlightNumber = flightNumber.String
	rec.Origin = origin.String
	rec.Destination = destination.String
	rec.Payload = payload
	rec.Review = review
	return &rec, nil
}

// Ping checks database connectivity
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database connection
func (p *PostgresStore) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}
