package ports

import (
	"context"

	"cafe-route-service/internal/domain"
)

// Best-effort source of the user's current position.
type Locator interface {
	Locate(ctx context.Context) (domain.Coordinates, error)
}
