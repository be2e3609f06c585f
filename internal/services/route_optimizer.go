package services

import (
	"math"
	"slices"

	"cafe-route-service/internal/domain"
	"cafe-route-service/internal/geo"
)

// DwellMinutes is the time assumed spent at each stop before leaving.
const DwellMinutes = 60

// Order stops with a greedy nearest-neighbor tour and assign HH:MM arrival slots.
//
// The first input stop is the fixed starting point. At each step the closest
// unvisited stop is chosen; equal distances keep input order. This is O(n²) and
// does not attempt an exact TSP tour.
//
// Every stop must carry valid coordinates. The input slice is not modified.
// Slots are zero-padded 24-hour "HH:MM", so a start of "9:05" yields "09:05".
func OptimizeRoute(stops []domain.Stop, startTime string, mode domain.TransportMode) ([]domain.Stop, error) {
	if len(stops) == 0 {
		return []domain.Stop{}, nil
	}

	start, err := domain.ParseClock(startTime)
	if err != nil {
		return nil, err
	}

	for _, s := range stops {
		if !s.HasLocation() {
			return nil, &domain.MissingLocationError{StopID: s.ID}
		}
	}

	return ScheduleStops(nearestNeighborOrder(stops), start, mode), nil
}

func nearestNeighborOrder(stops []domain.Stop) []domain.Stop {
	ordered := make([]domain.Stop, 0, len(stops))
	ordered = append(ordered, stops[0].Clone())

	remaining := make([]int, 0, len(stops)-1)
	for i := 1; i < len(stops); i++ {
		remaining = append(remaining, i)
	}

	current := 0
	for len(remaining) > 0 {
		best := -1
		bestKm := math.Inf(1)

		// Strict comparison keeps the first occurrence on ties.
		for ri, idx := range remaining {
			km := geo.DistanceKm(*stops[current].Coordinates, *stops[idx].Coordinates)
			if km < bestKm {
				bestKm = km
				best = ri
			}
		}

		current = remaining[best]
		remaining = slices.Delete(remaining, best, best+1)
		ordered = append(ordered, stops[current].Clone())
	}

	return ordered
}

// ScheduleStops renumbers stops 1..N in their given order and derives time slots.
//
// The first stop arrives at start; each later stop arrives after the previous
// one's dwell time plus travel time. Legs touching a stop without valid
// coordinates add no travel time. Returns a new slice.
func ScheduleStops(stops []domain.Stop, start domain.Clock, mode domain.TransportMode) []domain.Stop {
	out := make([]domain.Stop, len(stops))
	clock := start

	for i, s := range stops {
		if i > 0 {
			clock = clock.Add(DwellMinutes + legMinutes(stops[i-1], s, mode))
		}
		out[i] = s.Clone()
		out[i].Order = i + 1
		out[i].TimeSlot = clock.String()
	}

	return out
}

func legMinutes(from, to domain.Stop, mode domain.TransportMode) int {
	if !from.HasLocation() || !to.HasLocation() {
		return 0
	}
	return geo.TravelTimeMinutes(*from.Coordinates, *to.Coordinates, mode)
}

// Aggregate distance and timing for a plan in its current order.
type RouteSummary struct {
	Stops              int
	TotalDistanceKm    float64
	TotalTravelMinutes int
	StartsAt           string
	EndsAt             string
}

// Summarize totals the legs between consecutive located stops. Stops without
// coordinates are skipped, so the legs follow the same line RouteGeoJSON draws.
func Summarize(plan domain.Plan, mode domain.TransportMode) RouteSummary {
	sum := RouteSummary{Stops: len(plan.Cafes)}
	if len(plan.Cafes) == 0 {
		return sum
	}

	sum.StartsAt = plan.Cafes[0].TimeSlot
	sum.EndsAt = plan.Cafes[len(plan.Cafes)-1].TimeSlot

	var prev *domain.Coordinates
	for _, s := range plan.Cafes {
		if !s.HasLocation() {
			continue
		}
		if prev != nil {
			sum.TotalDistanceKm += geo.DistanceKm(*prev, *s.Coordinates)
			sum.TotalTravelMinutes += geo.TravelTimeMinutes(*prev, *s.Coordinates, mode)
		}
		prev = s.Coordinates
	}

	return sum
}
