package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/lib/pq"

	"flight-scraper/models"
)

// PostgresStore persists cached search entries in PostgreSQL with the
// flight list as a jsonb document. The unique constraint on the key tuple
// plus conditional writes keep concurrent upserts race-free.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection, waits for the database to come up and
// runs schema migrations.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return ps, nil
}

func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS flight_searches (
			id              SERIAL PRIMARY KEY,
			from_location   TEXT        NOT NULL,
			to_location     TEXT        NOT NULL,
			departure_date  TEXT        NOT NULL,
			return_date     TEXT        NOT NULL DEFAULT '',
			travel_class    TEXT        NOT NULL,
			airline         TEXT        NOT NULL,
			flights         JSONB       NOT NULL,
			last_updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (from_location, to_location, departure_date, return_date, travel_class, airline)
		);

		CREATE INDEX IF NOT EXISTS idx_flight_searches_route
			ON flight_searches(from_location, to_location, departure_date, travel_class);
	`)
	return err
}

func (ps *PostgresStore) Upsert(ctx context.Context, key models.SearchKey, flights []models.FlightRecord, window time.Duration) (*models.CachedSearchEntry, UpsertOutcome, error) {
	payload, err := json.Marshal(flights)
	if err != nil {
		return nil, "", fmt.Errorf("postgres: marshal flights: %w", err)
	}

	now := time.Now().UTC()
	staleBound := now.Add(-window)

	// Stale entries are replaced in one conditional statement; a fresh entry
	// leaves zero rows affected.
	res, err := ps.db.ExecContext(ctx, `
		UPDATE flight_searches
		SET flights = $1, last_updated_at = $2
		WHERE from_location = $3 AND to_location = $4 AND departure_date = $5
		  AND return_date = $6 AND travel_class = $7 AND airline = $8
		  AND last_updated_at <= $9
	`, payload, now, key.From, key.To, key.DepartureDate, key.ReturnDate, key.TravelClass, key.Airline, staleBound)
	if err != nil {
		return nil, "", fmt.Errorf("postgres: refresh: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		entry, err := ps.findByKey(ctx, key)
		if err != nil {
			return nil, "", err
		}
		return entry, OutcomeRefreshed, nil
	}

	entry, err := ps.findByKey(ctx, key)
	if err == nil {
		return entry, OutcomeHit, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, "", err
	}

	// Absent: create. ON CONFLICT DO NOTHING turns a lost create race into
	// a zero-row insert, which reads back as a hit.
	res, err = ps.db.ExecContext(ctx, `
		INSERT INTO flight_searches
			(from_location, to_location, departure_date, return_date, travel_class, airline, flights, last_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (from_location, to_location, departure_date, return_date, travel_class, airline) DO NOTHING
	`, key.From, key.To, key.DepartureDate, key.ReturnDate, key.TravelClass, key.Airline, payload, now)
	if err != nil {
		return nil, "", fmt.Errorf("postgres: insert: %w", err)
	}

	outcome := OutcomeCreated
	if n, _ := res.RowsAffected(); n == 0 {
		outcome = OutcomeHit
	}

	stored, err := ps.findByKey(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return stored, outcome, nil
}

func (ps *PostgresStore) findByKey(ctx context.Context, key models.SearchKey) (*models.CachedSearchEntry, error) {
	row := ps.db.QueryRowContext(ctx, `
		SELECT id, from_location, to_location, departure_date, return_date, travel_class, airline, flights, last_updated_at
		FROM flight_searches
		WHERE from_location = $1 AND to_location = $2 AND departure_date = $3
		  AND return_date = $4 AND travel_class = $5 AND airline = $6
	`, key.From, key.To, key.DepartureDate, key.ReturnDate, key.TravelClass, key.Airline)
	return scanEntry(row)
}

func (ps *PostgresStore) Read(ctx context.Context, from, to, departureDate, travelClass string) ([]*models.CachedSearchEntry, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT id, from_location, to_location, departure_date, return_date, travel_class, airline, flights, last_updated_at
		FROM flight_searches
		WHERE from_location = $1 AND to_location = $2 AND departure_date = $3 AND travel_class = $4
		ORDER BY id
	`, from, to, departureDate, travelClass)
	if err != nil {
		return nil, fmt.Errorf("postgres: read: %w", err)
	}
	defer rows.Close()

	var entries []*models.CachedSearchEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return entries, nil
}

func (ps *PostgresStore) Close(context.Context) error {
	return ps.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.CachedSearchEntry, error) {
	var (
		entry   models.CachedSearchEntry
		id      int64
		payload []byte
	)
	err := row.Scan(&id, &entry.From, &entry.To, &entry.DepartureDate,
		&entry.ReturnDate, &entry.TravelClass, &entry.Airline, &payload, &entry.LastUpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("postgres: scan: %w", err)
	}
	entry.ID = strconv.FormatInt(id, 10)
	if err := json.Unmarshal(payload, &entry.Flights); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal flights: %w", err)
	}
	return &entry, nil
}
