package ports

import (
	"context"

	"cafe-route-service/internal/domain"
)

// Port: read-only lookup of cafes as Stop-shaped records.
type CafeCatalog interface {
	// Return every cafe in catalog order.
	ListCafes(ctx context.Context) ([]domain.Stop, error)
	// Return a single cafe, or a *domain.NotFoundError.
	GetCafe(ctx context.Context, id domain.StopID) (domain.Stop, error)
	// Return up to k cafes within radiusKm of center, nearest first.
	// k <= 0 means no limit.
	NearbyCafes(ctx context.Context, center domain.Coordinates, k int, radiusKm float64) ([]domain.Stop, error)
	// Return cafes matching q in catalog order. An empty query lists everything.
	SearchCafes(ctx context.Context, q domain.CafeQuery) ([]domain.Stop, error)
}
