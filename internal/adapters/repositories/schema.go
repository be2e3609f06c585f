package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"cafe-route-service/internal/adapters/catalog"
)

// Dialect selects placeholder syntax for the SQL backends sharing this schema.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func (d Dialect) placeholders(count int) string {
	ps := make([]string, count)
	for i := range ps {
		ps[i] = d.placeholder(i + 1)
	}
	return strings.Join(ps, ", ")
}

// Initialize the cafe catalog and key-value tables. The DDL is valid for both
// SQLite and Postgres.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createCafesQuery := `
	CREATE TABLE IF NOT EXISTS cafes (
		cafe_id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		rating DOUBLE PRECISION NOT NULL DEFAULT 0,
		price_range TEXT NOT NULL DEFAULT '',
		cuisine TEXT NOT NULL DEFAULT '',
		photos TEXT NOT NULL DEFAULT '[]',
		lat DOUBLE PRECISION,
		lng DOUBLE PRECISION
	);
	`

	createCafesIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_cafes_lat_lng
	ON cafes(lat, lng);
	`

	createKVQuery := `
	CREATE TABLE IF NOT EXISTS kv_store (
		store_key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	statements := []string{
		createCafesQuery,
		createCafesIndexQuery,
		createKVQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// Populate the cafes table from a JSON seed file. Records are validated like
// any catalog ingestion and upserted by id, so reseeding is safe.
func SeedCafesFromJSON(ctx context.Context, db *sql.DB, d Dialect, jsonPath string) (int, error) {
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("seed cafes: read %q: %w", jsonPath, err)
	}

	cafes, err := catalog.DecodeCafes(raw)
	if err != nil {
		return 0, fmt.Errorf("seed cafes: %w", err)
	}

	// Reuse catalog validation: ids, coordinates, duplicates.
	validated, err := catalog.NewStaticCatalog(cafes)
	if err != nil {
		return 0, fmt.Errorf("seed cafes: %w", err)
	}
	rows, err := validated.ListCafes(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed cafes: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("seed cafes: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
	INSERT INTO cafes (
		cafe_id,
		position,
		name,
		address,
		rating,
		price_range,
		cuisine,
		photos,
		lat,
		lng
	)
	VALUES (` + d.placeholders(10) + `)
	ON CONFLICT (cafe_id) DO UPDATE SET
		position = excluded.position,
		name = excluded.name,
		address = excluded.address,
		rating = excluded.rating,
		price_range = excluded.price_range,
		cuisine = excluded.cuisine,
		photos = excluded.photos,
		lat = excluded.lat,
		lng = excluded.lng;
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("seed cafes: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range rows {
		photos := c.Photos
		if photos == nil {
			photos = []string{}
		}
		photosJSON, err := json.Marshal(photos)
		if err != nil {
			return 0, fmt.Errorf("seed cafes: encode photos cafe_id=%q: %w", c.ID, err)
		}

		var lat, lng sql.NullFloat64
		if c.Coordinates != nil {
			lat = sql.NullFloat64{Float64: c.Coordinates.Lat, Valid: true}
			lng = sql.NullFloat64{Float64: c.Coordinates.Lng, Valid: true}
		}

		if _, err := stmt.ExecContext(ctx,
			string(c.ID), i+1, c.Name, c.Address, c.Rating, c.PriceRange, c.Cuisine,
			string(photosJSON), lat, lng,
		); err != nil {
			return 0, fmt.Errorf("seed cafes: insert cafe_id=%q: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("seed cafes: commit tx: %w", err)
	}

	return len(rows), nil
}
