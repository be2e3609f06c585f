package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/paulmach/orb/geojson"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"cafe-route-service/internal/domain"
	"cafe-route-service/internal/platform/logging"
	"cafe-route-service/internal/ports"
)

// Marina Bay, used when no locator is configured or it fails.
var DefaultLocation = domain.Coordinates{Lat: 1.2839, Lng: 103.8608}

// Itinerary applies user edits to the current plan and keeps order and time
// slots consistent. Every mutation is persisted through the PlanStore before
// it returns; a failed mutation leaves the stored plan untouched.
type Itinerary struct {
	store       *PlanStore
	catalog     ports.CafeCatalog
	locator     ports.Locator
	rng         *rand.Rand
	walkingOnly bool
	fallback    domain.Coordinates
	log         logrus.FieldLogger

	mu sync.Mutex
}

type ItineraryOption func(*Itinerary)

func WithCatalog(c ports.CafeCatalog) ItineraryOption {
	return func(it *Itinerary) { it.catalog = c }
}

func WithLocator(l ports.Locator) ItineraryOption {
	return func(it *Itinerary) { it.locator = l }
}

// WithRand injects the random source used by Surprise.
func WithRand(r *rand.Rand) ItineraryOption {
	return func(it *Itinerary) { it.rng = r }
}

// WithWalkingOnly pins travel estimates to walking and rejects other modes.
func WithWalkingOnly(on bool) ItineraryOption {
	return func(it *Itinerary) { it.walkingOnly = on }
}

func WithFallbackLocation(c domain.Coordinates) ItineraryOption {
	return func(it *Itinerary) { it.fallback = c }
}

func WithItineraryLogger(log logrus.FieldLogger) ItineraryOption {
	return func(it *Itinerary) { it.log = log }
}

func NewItinerary(store *PlanStore, opts ...ItineraryOption) *Itinerary {
	it := &Itinerary{
		store:       store,
		walkingOnly: true,
		fallback:    DefaultLocation,
		log:         logging.Discard(),
	}
	for _, opt := range opts {
		opt(it)
	}
	if it.rng == nil {
		it.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return it
}

// travelMode is the mode used for estimates under the current policy.
func (it *Itinerary) travelMode(p domain.Plan) domain.TransportMode {
	if it.walkingOnly {
		return domain.Walking
	}
	return p.TransportMode
}

// retime re-derives time slots in the current order.
func (it *Itinerary) retime(p *domain.Plan) error {
	start, err := domain.ParseClock(p.StartTime)
	if err != nil {
		return err
	}
	p.Cafes = ScheduleStops(p.Cafes, start, it.travelMode(*p))
	return nil
}

func (it *Itinerary) Current(ctx context.Context) (domain.Plan, error) {
	return it.store.LoadCurrentPlan(ctx)
}

// AddStop appends a stop. Duplicate ids are rejected. Plan-only fields on the
// incoming record are discarded before validation.
func (it *Itinerary) AddStop(ctx context.Context, stop domain.Stop) (domain.Plan, error) {
	stop = stop.Clone()
	stop.Order = 0
	stop.Notes = ""
	stop.TimeSlot = ""
	if err := domain.ValidateStop(stop); err != nil {
		return domain.Plan{}, err
	}

	it.mu.Lock()
	defer it.mu.Unlock()

	return it.store.Update(ctx, func(p *domain.Plan) error {
		return p.AddStop(stop)
	})
}

// AddCafe looks a cafe up in the catalog and appends it.
func (it *Itinerary) AddCafe(ctx context.Context, id domain.StopID) (domain.Plan, error) {
	if it.catalog == nil {
		return domain.Plan{}, domain.NewValidationError("catalog", "no cafe catalog configured")
	}

	cafe, err := it.catalog.GetCafe(ctx, id)
	if err != nil {
		return domain.Plan{}, err
	}
	return it.AddStop(ctx, cafe)
}

// MoveStop moves the stop at position from to position to (0-based).
func (it *Itinerary) MoveStop(ctx context.Context, from, to int) (domain.Plan, error) {
	it.mu.Lock()
	defer it.mu.Unlock()

	return it.store.Update(ctx, func(p *domain.Plan) error {
		scheduled := p.Scheduled()
		if err := p.MoveStop(from, to); err != nil {
			return err
		}
		if scheduled {
			return it.retime(p)
		}
		return nil
	})
}

func (it *Itinerary) RemoveStop(ctx context.Context, id domain.StopID) (domain.Plan, error) {
	it.mu.Lock()
	defer it.mu.Unlock()

	return it.store.Update(ctx, func(p *domain.Plan) error {
		scheduled := p.Scheduled()
		if err := p.RemoveStop(id); err != nil {
			return err
		}
		if scheduled && !p.IsEmpty() {
			return it.retime(p)
		}
		return nil
	})
}

func (it *Itinerary) AnnotateStop(ctx context.Context, id domain.StopID, notes string) (domain.Plan, error) {
	it.mu.Lock()
	defer it.mu.Unlock()

	return it.store.Update(ctx, func(p *domain.Plan) error {
		return p.Annotate(id, notes)
	})
}

// OptimizeResult carries the optimized plan and the stops dropped for lacking coordinates.
type OptimizeResult struct {
	Plan    domain.Plan
	Dropped []domain.StopID
}

// Optimize reorders the located stops with the nearest-neighbor route and
// assigns time slots. Stops without coordinates are removed from the plan.
func (it *Itinerary) Optimize(ctx context.Context) (OptimizeResult, error) {
	it.mu.Lock()
	defer it.mu.Unlock()

	var dropped []domain.StopID
	plan, err := it.store.Update(ctx, func(p *domain.Plan) error {
		if p.IsEmpty() {
			return domain.NewValidationError("cafes", "cannot optimize an empty plan")
		}

		located := make([]domain.Stop, 0, len(p.Cafes))
		dropped = dropped[:0]
		for _, s := range p.Cafes {
			if s.HasLocation() {
				located = append(located, s)
			} else {
				dropped = append(dropped, s.ID)
			}
		}
		if len(located) == 0 {
			return &domain.MissingLocationError{}
		}

		optimized, err := OptimizeRoute(located, p.StartTime, it.travelMode(*p))
		if err != nil {
			return err
		}
		p.Cafes = optimized
		return nil
	})
	if err != nil {
		return OptimizeResult{}, err
	}

	if len(dropped) > 0 {
		it.log.WithField("dropped", dropped).Info("optimize dropped stops without coordinates")
	}
	return OptimizeResult{Plan: plan, Dropped: dropped}, nil
}

// SetStartTime shifts every time slot to the new start without reordering.
func (it *Itinerary) SetStartTime(ctx context.Context, startTime string) (domain.Plan, error) {
	start, err := domain.ParseClock(startTime)
	if err != nil {
		return domain.Plan{}, err
	}

	it.mu.Lock()
	defer it.mu.Unlock()

	return it.store.Update(ctx, func(p *domain.Plan) error {
		p.StartTime = start.String()
		if p.IsEmpty() {
			return nil
		}
		return it.retime(p)
	})
}

// SetTransportMode changes the plan's mode. Under the walking-only policy any
// other mode is rejected.
func (it *Itinerary) SetTransportMode(ctx context.Context, mode string) (domain.Plan, error) {
	m, ok := domain.ParseTransportMode(mode)
	if !ok {
		return domain.Plan{}, domain.NewValidationError("transportMode", "unknown transport mode "+mode)
	}
	if it.walkingOnly && m != domain.Walking {
		return domain.Plan{}, domain.NewValidationError("transportMode", "only walking routes are supported")
	}

	it.mu.Lock()
	defer it.mu.Unlock()

	return it.store.Update(ctx, func(p *domain.Plan) error {
		p.TransportMode = m
		if p.Scheduled() {
			return it.retime(p)
		}
		return nil
	})
}

func (it *Itinerary) Clear(ctx context.Context) error {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.store.ClearCurrentPlan(ctx)
}

// SaveResult carries the archived plan and the stops left out for lacking coordinates.
type SaveResult struct {
	Archived domain.ArchivedPlan
	Dropped  []domain.StopID
}

// Save archives the current plan. Missing coordinates are filled from the
// catalog first; stops that still have none are left out of the archive.
// A plan with no located stop is refused and stays in place.
func (it *Itinerary) Save(ctx context.Context) (SaveResult, error) {
	it.mu.Lock()
	defer it.mu.Unlock()

	var dropped []domain.StopID
	archived, err := it.store.PromoteCurrent(ctx, func(p *domain.Plan) error {
		it.backfillLocations(ctx, p)

		kept := make([]domain.Stop, 0, len(p.Cafes))
		for _, s := range p.Cafes {
			if s.HasLocation() {
				kept = append(kept, s)
			} else {
				dropped = append(dropped, s.ID)
			}
		}
		if len(kept) == 0 {
			return &domain.MissingLocationError{}
		}
		p.Cafes = kept
		p.Renumber()
		return nil
	})
	if err != nil {
		return SaveResult{}, err
	}

	if len(dropped) > 0 {
		it.log.WithField("dropped", dropped).Info("save left out stops without coordinates")
	}
	return SaveResult{Archived: archived, Dropped: dropped}, nil
}

func (it *Itinerary) backfillLocations(ctx context.Context, p *domain.Plan) {
	if it.catalog == nil {
		return
	}
	for i, s := range p.Cafes {
		if s.HasLocation() {
			continue
		}
		cafe, err := it.catalog.GetCafe(ctx, s.ID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				it.log.WithError(err).WithField("stop_id", s.ID).Warn("catalog lookup failed during save")
			}
			continue
		}
		if cafe.HasLocation() {
			c := *cafe.Coordinates
			p.Cafes[i].Coordinates = &c
		}
	}
}

func (it *Itinerary) History(ctx context.Context) ([]domain.ArchivedPlan, error) {
	return it.store.ListArchive(ctx)
}

func (it *Itinerary) Reuse(ctx context.Context, id string) (domain.Plan, error) {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.store.ReuseArchived(ctx, id)
}

func (it *Itinerary) MarkCompleted(ctx context.Context, id string, completed bool) (domain.ArchivedPlan, error) {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.store.SetCompleted(ctx, id, completed)
}

// Surprise replaces the current plan with 3 to 5 random catalog cafes.
func (it *Itinerary) Surprise(ctx context.Context) (domain.Plan, error) {
	if it.catalog == nil {
		return domain.Plan{}, domain.NewValidationError("catalog", "no cafe catalog configured")
	}

	cafes, err := it.catalog.ListCafes(ctx)
	if err != nil {
		return domain.Plan{}, pkgerrors.Wrap(err, "surprise: list cafes")
	}
	if len(cafes) == 0 {
		return domain.Plan{}, domain.NewValidationError("catalog", "catalog is empty")
	}

	it.mu.Lock()
	defer it.mu.Unlock()

	perm := it.rng.Perm(len(cafes))
	count := min(3+it.rng.IntN(3), len(cafes))

	plan := domain.NewPlan()
	for _, idx := range perm[:count] {
		if err := plan.AddStop(cafes[idx]); err != nil {
			return domain.Plan{}, err
		}
	}

	if err := it.store.SaveCurrentPlan(ctx, plan); err != nil {
		return domain.Plan{}, err
	}
	return plan, nil
}

// NearbyCafes lists catalog cafes around the user's position, falling back to
// the default location when it cannot be determined.
func (it *Itinerary) NearbyCafes(ctx context.Context, k int, radiusKm float64) ([]domain.Stop, error) {
	if it.catalog == nil {
		return nil, domain.NewValidationError("catalog", "no cafe catalog configured")
	}
	return it.catalog.NearbyCafes(ctx, it.locate(ctx), k, radiusKm)
}

// SearchCafes lists catalog cafes matching q.
func (it *Itinerary) SearchCafes(ctx context.Context, q domain.CafeQuery) ([]domain.Stop, error) {
	if it.catalog == nil {
		return nil, domain.NewValidationError("catalog", "no cafe catalog configured")
	}
	return it.catalog.SearchCafes(ctx, q)
}

func (it *Itinerary) locate(ctx context.Context) domain.Coordinates {
	if it.locator == nil {
		return it.fallback
	}
	c, err := it.locator.Locate(ctx)
	if err != nil {
		it.log.WithError(err).Debug("locator failed, using fallback location")
		return it.fallback
	}
	if !c.Valid() {
		return it.fallback
	}
	return c
}

func (it *Itinerary) Summary(ctx context.Context) (RouteSummary, error) {
	plan, err := it.store.LoadCurrentPlan(ctx)
	if err != nil {
		return RouteSummary{}, err
	}
	return Summarize(plan, it.travelMode(plan)), nil
}

// Share encodes the current plan as a share token.
func (it *Itinerary) Share(ctx context.Context) (string, error) {
	plan, err := it.store.LoadCurrentPlan(ctx)
	if err != nil {
		return "", err
	}
	return EncodeShareToken(plan)
}

// Import replaces the current plan with one decoded from a share token.
func (it *Itinerary) Import(ctx context.Context, token string) (domain.Plan, error) {
	plan, err := DecodeShareToken(token)
	if err != nil {
		return domain.Plan{}, err
	}

	it.mu.Lock()
	defer it.mu.Unlock()

	if err := it.store.SaveCurrentPlan(ctx, plan); err != nil {
		return domain.Plan{}, err
	}
	return plan, nil
}

// MapFeatures renders the current plan as GeoJSON.
func (it *Itinerary) MapFeatures(ctx context.Context) (*geojson.FeatureCollection, error) {
	plan, err := it.store.LoadCurrentPlan(ctx)
	if err != nil {
		return nil, err
	}
	return RouteGeoJSON(plan), nil
}
