package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafe-route-service/internal/domain"
)

func cafe(id string, lat, lng float64) domain.Stop {
	return domain.Stop{
		ID:          domain.StopID(id),
		Name:        "Cafe " + id,
		Coordinates: &domain.Coordinates{Lat: lat, Lng: lng},
	}
}

func ids(stops []domain.Stop) []domain.StopID {
	out := make([]domain.StopID, len(stops))
	for i, s := range stops {
		out[i] = s.ID
	}
	return out
}

func TestOptimizeRoute_Empty(t *testing.T) {
	got, err := OptimizeRoute(nil, "09:00", domain.Walking)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestOptimizeRoute_SingleStop(t *testing.T) {
	got, err := OptimizeRoute([]domain.Stop{cafe("a", 1.28, 103.86)}, "14:05", domain.Walking)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Order)
	assert.Equal(t, "14:05", got[0].TimeSlot)
}

func TestOptimizeRoute_NearestNeighborAlongLine(t *testing.T) {
	in := []domain.Stop{
		cafe("a", 1.28, 103.86),
		cafe("b", 1.31, 103.86),
		cafe("c", 1.29, 103.86),
		cafe("d", 1.30, 103.86),
	}

	got, err := OptimizeRoute(in, "09:00", domain.Walking)
	require.NoError(t, err)

	assert.Equal(t, []domain.StopID{"a", "c", "d", "b"}, ids(got))

	// Each ~1.11 km leg is 13 walking minutes plus the 60 minute dwell.
	var slots []string
	for _, s := range got {
		slots = append(slots, s.TimeSlot)
	}
	assert.Equal(t, []string{"09:00", "10:13", "11:26", "12:39"}, slots)

	for i, s := range got {
		assert.Equal(t, i+1, s.Order)
	}
}

func TestOptimizeRoute_DoesNotMutateInput(t *testing.T) {
	in := []domain.Stop{
		cafe("a", 1.28, 103.86),
		cafe("b", 1.31, 103.86),
		cafe("c", 1.29, 103.86),
	}
	in[1].Order = 7

	_, err := OptimizeRoute(in, "09:00", domain.Walking)
	require.NoError(t, err)

	assert.Equal(t, []domain.StopID{"a", "b", "c"}, ids(in))
	assert.Equal(t, 7, in[1].Order)
	assert.Empty(t, in[0].TimeSlot)
}

func TestOptimizeRoute_TiesKeepInputOrder(t *testing.T) {
	east := cafe("east", 0, 0.01)
	west := cafe("west", 0, -0.01)
	origin := cafe("origin", 0, 0)

	got, err := OptimizeRoute([]domain.Stop{origin, east, west}, "09:00", domain.Walking)
	require.NoError(t, err)
	assert.Equal(t, []domain.StopID{"origin", "east", "west"}, ids(got))

	got, err = OptimizeRoute([]domain.Stop{origin, west, east}, "09:00", domain.Walking)
	require.NoError(t, err)
	assert.Equal(t, []domain.StopID{"origin", "west", "east"}, ids(got))
}

func TestOptimizeRoute_IdempotentOnOwnOutput(t *testing.T) {
	in := []domain.Stop{
		cafe("a", 1.2839, 103.8608),
		cafe("b", 1.2900, 103.8500),
		cafe("c", 1.2800, 103.8700),
		cafe("d", 1.3000, 103.8400),
		cafe("e", 1.2750, 103.8800),
	}

	first, err := OptimizeRoute(in, "08:30", domain.Walking)
	require.NoError(t, err)
	second, err := OptimizeRoute(first, "08:30", domain.Walking)
	require.NoError(t, err)

	assert.Equal(t, ids(first), ids(second))
	assert.Equal(t, first, second)
}

func TestOptimizeRoute_OrdersContiguousAndSlotsNonDecreasing(t *testing.T) {
	in := []domain.Stop{
		cafe("a", 1.30, 103.80),
		cafe("b", 1.35, 103.95),
		cafe("c", 1.28, 103.86),
		cafe("d", 1.40, 103.70),
		cafe("e", 1.33, 103.90),
		cafe("f", 1.29, 103.82),
	}

	got, err := OptimizeRoute(in, "07:15", domain.Walking)
	require.NoError(t, err)
	require.Len(t, got, len(in))

	prev := domain.Clock(0)
	for i, s := range got {
		assert.Equal(t, i+1, s.Order)
		c, err := domain.ParseClock(s.TimeSlot)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, int(c), int(prev))
		prev = c
	}
}

func TestOptimizeRoute_WrapsPastMidnight(t *testing.T) {
	in := []domain.Stop{cafe("a", 1.28, 103.86), cafe("b", 1.28, 103.86)}

	got, err := OptimizeRoute(in, "23:30", domain.Walking)
	require.NoError(t, err)
	assert.Equal(t, "23:30", got[0].TimeSlot)
	assert.Equal(t, "00:30", got[1].TimeSlot)
}

func TestOptimizeRoute_MissingLocation(t *testing.T) {
	in := []domain.Stop{cafe("a", 1.28, 103.86), {ID: "nowhere", Name: "Nowhere"}}

	_, err := OptimizeRoute(in, "09:00", domain.Walking)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingLocation))

	var mle *domain.MissingLocationError
	require.ErrorAs(t, err, &mle)
	assert.Equal(t, domain.StopID("nowhere"), mle.StopID)
}

func TestOptimizeRoute_BadStartTime(t *testing.T) {
	_, err := OptimizeRoute([]domain.Stop{cafe("a", 1.28, 103.86)}, "9am", domain.Walking)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestScheduleStops_UnlocatedLegsAddOnlyDwell(t *testing.T) {
	stops := []domain.Stop{
		cafe("a", 1.28, 103.86),
		{ID: "b"},
		cafe("c", 1.29, 103.86),
	}

	got := ScheduleStops(stops, domain.Clock(9*60), domain.Walking)
	assert.Equal(t, "09:00", got[0].TimeSlot)
	assert.Equal(t, "10:00", got[1].TimeSlot)
	assert.Equal(t, "11:00", got[2].TimeSlot)
}

func TestScheduleStops_ModeChangesTravelTime(t *testing.T) {
	stops := []domain.Stop{cafe("a", 1.28, 103.86), cafe("b", 1.33, 103.86)}

	walk := ScheduleStops(stops, domain.Clock(9*60), domain.Walking)
	drive := ScheduleStops(stops, domain.Clock(9*60), domain.Driving)

	assert.Equal(t, "11:07", walk[1].TimeSlot)
	assert.Equal(t, "10:08", drive[1].TimeSlot)
}

func TestSummarize(t *testing.T) {
	plan := domain.NewPlan()
	plan.Cafes = ScheduleStops([]domain.Stop{
		cafe("a", 1.28, 103.86),
		{ID: "skip"},
		cafe("c", 1.29, 103.86),
		cafe("d", 1.30, 103.86),
	}, domain.Clock(9*60), domain.Walking)

	sum := Summarize(plan, domain.Walking)
	assert.Equal(t, 4, sum.Stops)
	assert.InDelta(t, 2.224, sum.TotalDistanceKm, 0.01)
	assert.Equal(t, 26, sum.TotalTravelMinutes)
	assert.Equal(t, "09:00", sum.StartsAt)
	assert.Equal(t, plan.Cafes[3].TimeSlot, sum.EndsAt)

	assert.Equal(t, RouteSummary{}, Summarize(domain.NewPlan(), domain.Walking))
}

func TestSummarize_BridgesStopsWithoutCoordinates(t *testing.T) {
	plan := domain.NewPlan()
	plan.Cafes = []domain.Stop{
		cafe("a", 1.28, 103.86),
		{ID: "b"},
		cafe("c", 1.29, 103.86),
	}

	sum := Summarize(plan, domain.Walking)
	assert.InDelta(t, 1.112, sum.TotalDistanceKm, 0.01)
	assert.Equal(t, 13, sum.TotalTravelMinutes)

	// The map draws the same a -> c line.
	fc := RouteGeoJSON(plan)
	require.Len(t, fc.Features, 3)
	assert.Equal(t, "route", fc.Features[2].Properties["kind"])
}

func TestOptimizeRoute_PadsStartTime(t *testing.T) {
	got, err := OptimizeRoute([]domain.Stop{cafe("a", 1.28, 103.86)}, "9:05", domain.Walking)
	require.NoError(t, err)
	assert.Equal(t, "09:05", got[0].TimeSlot)
}
