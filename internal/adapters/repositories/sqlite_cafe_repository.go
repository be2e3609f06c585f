package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	orbgeo "github.com/paulmach/orb/geo"

	"cafe-route-service/internal/domain"
	"cafe-route-service/internal/geo"
)

// orb measures with a 6378.137 km radius; pad the prefilter box so it always
// covers the 6371 km haversine radius.
const boundPadding = 1.01

// SQL-backed implementation of the CafeCatalog port.
type SQLCafeRepository struct {
	DB      *sql.DB
	Dialect Dialect
}

func NewSqliteCafeRepository(db *sql.DB) *SQLCafeRepository {
	return &SQLCafeRepository{DB: db, Dialect: SQLite}
}

func NewPostgresCafeRepository(db *sql.DB) *SQLCafeRepository {
	return &SQLCafeRepository{DB: db, Dialect: Postgres}
}

const selectCafeColumns = `
	SELECT
		cafe_id,
		name,
		address,
		rating,
		price_range,
		cuisine,
		photos,
		lat,
		lng
	FROM cafes
`

// Return all cafes in seed order.
func (r *SQLCafeRepository) ListCafes(ctx context.Context) ([]domain.Stop, error) {
	if r.DB == nil {
		return nil, errors.New("cafe repository: DB is nil")
	}

	rows, err := r.DB.QueryContext(ctx, selectCafeColumns+`ORDER BY position, cafe_id;`)
	if err != nil {
		return nil, fmt.Errorf("list cafes: query cafes table: %w", err)
	}
	defer rows.Close()

	return scanCafes(rows, "list cafes")
}

func (r *SQLCafeRepository) GetCafe(ctx context.Context, id domain.StopID) (domain.Stop, error) {
	if r.DB == nil {
		return domain.Stop{}, errors.New("cafe repository: DB is nil")
	}

	row := r.DB.QueryRowContext(ctx, selectCafeColumns+`WHERE cafe_id = `+r.Dialect.placeholder(1)+`;`, string(id))
	s, err := scanCafe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Stop{}, &domain.NotFoundError{Kind: "cafe", ID: string(id)}
	}
	if err != nil {
		return domain.Stop{}, fmt.Errorf("get cafe cafe_id=%q: %w", id, err)
	}
	return s, nil
}

// Prefilter located cafes with a bounding box in SQL, then rank exact distances.
func (r *SQLCafeRepository) NearbyCafes(
	ctx context.Context,
	center domain.Coordinates,
	k int,
	radiusKm float64,
) ([]domain.Stop, error) {
	if r.DB == nil {
		return nil, errors.New("cafe repository: DB is nil")
	}
	if !center.Valid() {
		return nil, domain.NewValidationError("center", "center coordinates are out of range")
	}
	if radiusKm < 0 || math.IsNaN(radiusKm) {
		return []domain.Stop{}, nil
	}

	query := selectCafeColumns + `WHERE lat IS NOT NULL AND lng IS NOT NULL`
	var args []any

	bound := orbgeo.NewBoundAroundPoint(center.Point(), radiusKm*1000*boundPadding)
	minLng, minLat := bound.Min.X(), bound.Min.Y()
	maxLng, maxLat := bound.Max.X(), bound.Max.Y()

	// A box wrapping the antimeridian comes back with minLng > maxLng; scan everything then.
	if minLng <= maxLng && minLat >= -90 && maxLat <= 90 &&
		!math.IsNaN(minLng+maxLng+minLat+maxLat) {
		query += fmt.Sprintf(` AND lat BETWEEN %s AND %s AND lng BETWEEN %s AND %s`,
			r.Dialect.placeholder(1), r.Dialect.placeholder(2),
			r.Dialect.placeholder(3), r.Dialect.placeholder(4))
		args = append(args, minLat, maxLat, minLng, maxLng)
	}

	rows, err := r.DB.QueryContext(ctx, query+`;`, args...)
	if err != nil {
		return nil, fmt.Errorf("nearby cafes: query cafes table: %w", err)
	}
	defer rows.Close()

	candidates, err := scanCafes(rows, "nearby cafes")
	if err != nil {
		return nil, err
	}

	return geo.Nearest(center, candidates, k, radiusKm), nil
}

// Exact cuisine and price filters run in SQL; the text match runs on the rows
// that come back so both dialects agree on case folding.
func (r *SQLCafeRepository) SearchCafes(ctx context.Context, q domain.CafeQuery) ([]domain.Stop, error) {
	if r.DB == nil {
		return nil, errors.New("cafe repository: DB is nil")
	}

	q = q.Normalized()
	var (
		where []string
		args  []any
	)
	if q.Cuisine != "" {
		args = append(args, strings.ToLower(q.Cuisine))
		where = append(where, `LOWER(cuisine) = `+r.Dialect.placeholder(len(args)))
	}
	if q.PriceRange != "" {
		args = append(args, strings.ToLower(q.PriceRange))
		where = append(where, `LOWER(price_range) = `+r.Dialect.placeholder(len(args)))
	}

	query := selectCafeColumns
	if len(where) > 0 {
		query += `WHERE ` + strings.Join(where, ` AND `) + ` `
	}

	rows, err := r.DB.QueryContext(ctx, query+`ORDER BY position, cafe_id;`, args...)
	if err != nil {
		return nil, fmt.Errorf("search cafes: query cafes table: %w", err)
	}
	defer rows.Close()

	candidates, err := scanCafes(rows, "search cafes")
	if err != nil {
		return nil, err
	}

	out := candidates[:0]
	for _, s := range candidates {
		if q.Matches(s) {
			out = append(out, s)
		}
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCafe(row rowScanner) (domain.Stop, error) {
	var (
		id, name, address, priceRange, cuisine, photos string
		rating                                         float64
		lat, lng                                       sql.NullFloat64
	)
	if err := row.Scan(&id, &name, &address, &rating, &priceRange, &cuisine, &photos, &lat, &lng); err != nil {
		return domain.Stop{}, err
	}

	s := domain.Stop{
		ID:         domain.StopID(id),
		Name:       name,
		Address:    address,
		Rating:     rating,
		PriceRange: priceRange,
		Cuisine:    cuisine,
	}
	if photos != "" {
		if err := json.Unmarshal([]byte(photos), &s.Photos); err != nil {
			return domain.Stop{}, fmt.Errorf("decode photos cafe_id=%q: %w", id, err)
		}
		if len(s.Photos) == 0 {
			s.Photos = nil
		}
	}
	if lat.Valid && lng.Valid {
		s.Coordinates = &domain.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
	}

	if err := domain.ValidateStop(s); err != nil {
		return domain.Stop{}, fmt.Errorf("cafe_id=%q: %w", id, err)
	}
	return s, nil
}

func scanCafes(rows *sql.Rows, op string) ([]domain.Stop, error) {
	cafes := make([]domain.Stop, 0, 64)
	for rows.Next() {
		s, err := scanCafe(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		cafes = append(cafes, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: row iteration: %w", op, err)
	}

	return cafes, nil
}
