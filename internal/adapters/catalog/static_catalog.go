package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"cafe-route-service/internal/domain"
	"cafe-route-service/internal/geo"
)

// StaticCatalog serves a fixed set of cafes held in memory.
type StaticCatalog struct {
	cafes []domain.Stop
	byID  map[domain.StopID]int
}

// NewStaticCatalog validates every record and rejects duplicate ids.
// Plan-only fields (order, notes, time slot) are cleared.
func NewStaticCatalog(cafes []domain.Stop) (*StaticCatalog, error) {
	c := &StaticCatalog{
		cafes: make([]domain.Stop, 0, len(cafes)),
		byID:  make(map[domain.StopID]int, len(cafes)),
	}

	for i, s := range cafes {
		if err := domain.ValidateStop(s); err != nil {
			return nil, fmt.Errorf("catalog: record %d: %w", i, err)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("catalog: record %d: %w", i,
				domain.NewValidationError("id", fmt.Sprintf("duplicate cafe id %q", string(s.ID))))
		}

		s = s.Clone()
		s.Order = 0
		s.Notes = ""
		s.TimeSlot = ""

		c.byID[s.ID] = len(c.cafes)
		c.cafes = append(c.cafes, s)
	}

	return c, nil
}

// LoadStaticCatalog reads a JSON array of cafes from path.
func LoadStaticCatalog(path string) (*StaticCatalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}

	cafes, err := DecodeCafes(raw)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return NewStaticCatalog(cafes)
}

// DecodeCafes parses a JSON array of cafe records.
func DecodeCafes(raw []byte) ([]domain.Stop, error) {
	var cafes []domain.Stop
	if err := json.Unmarshal(raw, &cafes); err != nil {
		return nil, domain.NewValidationError("catalog", "malformed cafe list: "+err.Error())
	}
	return cafes, nil
}

func (c *StaticCatalog) ListCafes(ctx context.Context) ([]domain.Stop, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.Stop, len(c.cafes))
	for i, s := range c.cafes {
		out[i] = s.Clone()
	}
	return out, nil
}

func (c *StaticCatalog) GetCafe(ctx context.Context, id domain.StopID) (domain.Stop, error) {
	if err := ctx.Err(); err != nil {
		return domain.Stop{}, err
	}

	idx, ok := c.byID[id]
	if !ok {
		return domain.Stop{}, &domain.NotFoundError{Kind: "cafe", ID: string(id)}
	}
	return c.cafes[idx].Clone(), nil
}

func (c *StaticCatalog) NearbyCafes(ctx context.Context, center domain.Coordinates, k int, radiusKm float64) ([]domain.Stop, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !center.Valid() {
		return nil, domain.NewValidationError("center", "center coordinates are out of range")
	}
	return geo.Nearest(center, c.cafes, k, radiusKm), nil
}

func (c *StaticCatalog) SearchCafes(ctx context.Context, q domain.CafeQuery) ([]domain.Stop, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := []domain.Stop{}
	for _, s := range c.cafes {
		if q.Matches(s) {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}
