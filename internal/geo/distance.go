// Package geo is the distance model: great-circle distance and travel-time estimates.
package geo

import (
	"cmp"
	"math"
	"slices"

	"cafe-route-service/internal/domain"
)

const EarthRadiusKm = 6371.0

// Average speeds in km/h. Unknown modes fall back to walking.
var speedKmh = map[domain.TransportMode]float64{
	domain.Walking:       5,
	domain.Cycling:       15,
	domain.Driving:       40,
	domain.PublicTransit: 30,
}

// SpeedKmh returns the average speed for mode.
func SpeedKmh(mode domain.TransportMode) float64 {
	if v, ok := speedKmh[mode]; ok {
		return v
	}
	return speedKmh[domain.Walking]
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

// DistanceKm is the Haversine great-circle distance between a and b.
func DistanceKm(a, b domain.Coordinates) float64 {
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	dLat := lat2 - lat1
	dLng := toRad(b.Lng) - toRad(a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng

	// Rounding can push h just outside [0,1] for antipodal points.
	h = math.Max(0, math.Min(1, h))

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// TravelTimeMinutes estimates door-to-door minutes between a and b, rounded half away from zero.
func TravelTimeMinutes(a, b domain.Coordinates, mode domain.TransportMode) int {
	return int(math.Round(DistanceKm(a, b) / SpeedKmh(mode) * 60))
}

// Nearest ranks located stops by distance to center, keeping those within radiusKm (inclusive).
// Equal distances are ordered by id. k <= 0 returns every match.
func Nearest(center domain.Coordinates, stops []domain.Stop, k int, radiusKm float64) []domain.Stop {
	type ranked struct {
		stop domain.Stop
		km   float64
	}

	candidates := make([]ranked, 0, len(stops))
	for _, s := range stops {
		if !s.HasLocation() {
			continue
		}
		km := DistanceKm(center, *s.Coordinates)
		if km <= radiusKm {
			candidates = append(candidates, ranked{stop: s, km: km})
		}
	}

	slices.SortStableFunc(candidates, func(a, b ranked) int {
		if c := cmp.Compare(a.km, b.km); c != 0 {
			return c
		}
		return cmp.Compare(a.stop.ID, b.stop.ID)
	})

	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}

	out := make([]domain.Stop, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.stop.Clone())
	}
	return out
}
