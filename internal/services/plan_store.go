package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"cafe-route-service/internal/domain"
	"cafe-route-service/internal/platform/logging"
	"cafe-route-service/internal/platform/obs"
	"cafe-route-service/internal/ports"
)

// Well-known storage keys.
const (
	CurrentPlanKey = "currentPlan"
	ArchiveKey     = "pastPlans"
)

// PlanStore owns the current plan slot and the archive over a KVStore.
//
// All read-modify-write sequences run under one mutex, so concurrent callers
// on the same instance observe last-write-wins in a deterministic order.
// Separate instances over the same medium are not coordinated.
type PlanStore struct {
	kv    ports.KVStore
	log   logrus.FieldLogger
	now   func() time.Time
	newID func() (string, error)

	mu sync.Mutex
}

type PlanStoreOption func(*PlanStore)

func WithLogger(log logrus.FieldLogger) PlanStoreOption {
	return func(s *PlanStore) { s.log = log }
}

func WithClock(now func() time.Time) PlanStoreOption {
	return func(s *PlanStore) { s.now = now }
}

// WithIDGenerator replaces the archive id source (UUIDv7 by default).
func WithIDGenerator(gen func() (string, error)) PlanStoreOption {
	return func(s *PlanStore) { s.newID = gen }
}

func NewPlanStore(kv ports.KVStore, opts ...PlanStoreOption) *PlanStore {
	s := &PlanStore{
		kv:    kv,
		log:   logging.Discard(),
		now:   time.Now,
		newID: newArchiveID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newArchiveID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// LoadCurrentPlan returns the persisted plan, or the empty default when none is stored
// or the stored value cannot be decoded. Only storage failures are returned.
func (s *PlanStore) LoadCurrentPlan(ctx context.Context) (plan domain.Plan, err error) {
	defer obs.Time(ctx, s.log, "plan_store.load_current")(&err)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadCurrent(ctx)
}

func (s *PlanStore) loadCurrent(ctx context.Context) (domain.Plan, error) {
	raw, ok, err := s.kv.Get(ctx, CurrentPlanKey)
	if err != nil {
		return domain.Plan{}, errors.Wrap(err, "load current plan")
	}
	if !ok || len(raw) == 0 {
		return domain.NewPlan(), nil
	}

	p, err := decodePlan(raw)
	if err != nil {
		s.log.WithError(err).WithField("key", CurrentPlanKey).Warn("discarding unreadable current plan")
		return domain.NewPlan(), nil
	}
	return p, nil
}

// SaveCurrentPlan validates and overwrites the current plan wholesale.
func (s *PlanStore) SaveCurrentPlan(ctx context.Context, plan domain.Plan) (err error) {
	defer obs.Time(ctx, s.log, "plan_store.save_current")(&err)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveCurrent(ctx, plan)
}

func (s *PlanStore) saveCurrent(ctx context.Context, plan domain.Plan) error {
	plan = plan.Clone()
	normalizePlan(&plan)
	if err := domain.ValidatePlan(plan); err != nil {
		return err
	}

	raw, err := json.Marshal(plan)
	if err != nil {
		return errors.Wrap(err, "encode current plan")
	}
	if err := s.kv.Set(ctx, CurrentPlanKey, raw); err != nil {
		return errors.Wrap(err, "save current plan")
	}
	return nil
}

// Update loads the current plan, applies fn to a copy and persists the result.
// If fn or validation fails nothing is written and the stored plan is unchanged.
func (s *PlanStore) Update(ctx context.Context, fn func(*domain.Plan) error) (plan domain.Plan, err error) {
	defer obs.Time(ctx, s.log, "plan_store.update")(&err)

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadCurrent(ctx)
	if err != nil {
		return domain.Plan{}, err
	}

	next := current.Clone()
	if err := fn(&next); err != nil {
		return domain.Plan{}, err
	}
	if err := s.saveCurrent(ctx, next); err != nil {
		return domain.Plan{}, err
	}
	normalizePlan(&next)
	return next, nil
}

// ClearCurrentPlan resets the current slot. Clearing an empty slot is a no-op.
func (s *PlanStore) ClearCurrentPlan(ctx context.Context) (err error) {
	defer obs.Time(ctx, s.log, "plan_store.clear_current")(&err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, CurrentPlanKey); err != nil {
		return errors.Wrap(err, "clear current plan")
	}
	return nil
}

// PromoteToArchive prepends a deep copy of plan to the archive with a fresh id and
// timestamp, then clears the current slot. Empty plans are rejected.
func (s *PlanStore) PromoteToArchive(ctx context.Context, plan domain.Plan) (archived domain.ArchivedPlan, err error) {
	defer obs.Time(ctx, s.log, "plan_store.promote")(&err)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.promote(ctx, plan)
}

// PromoteCurrent archives the stored current plan in one locked step, so no
// write can slip in between reading and clearing it. prepare may edit the copy
// first; if it fails nothing is written.
func (s *PlanStore) PromoteCurrent(ctx context.Context, prepare func(*domain.Plan) error) (archived domain.ArchivedPlan, err error) {
	defer obs.Time(ctx, s.log, "plan_store.promote_current")(&err)

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadCurrent(ctx)
	if err != nil {
		return domain.ArchivedPlan{}, err
	}
	if current.IsEmpty() {
		return domain.ArchivedPlan{}, domain.NewValidationError("cafes", "cannot archive an empty plan")
	}

	plan := current.Clone()
	if prepare != nil {
		if err := prepare(&plan); err != nil {
			return domain.ArchivedPlan{}, err
		}
	}
	return s.promote(ctx, plan)
}

// promote expects s.mu to be held.
func (s *PlanStore) promote(ctx context.Context, plan domain.Plan) (domain.ArchivedPlan, error) {
	if plan.IsEmpty() {
		return domain.ArchivedPlan{}, domain.NewValidationError("cafes", "cannot archive an empty plan")
	}

	plan = plan.Clone()
	normalizePlan(&plan)
	if err := domain.ValidatePlan(plan); err != nil {
		return domain.ArchivedPlan{}, err
	}

	id, err := s.newID()
	if err != nil {
		return domain.ArchivedPlan{}, errors.Wrap(err, "generate archive id")
	}

	entry := domain.ArchivedPlan{
		Plan:      plan,
		ID:        id,
		Date:      s.now().UTC(),
		Completed: false,
	}

	prevRaw, hadPrev, entries, err := s.loadArchiveRaw(ctx)
	if err != nil {
		return domain.ArchivedPlan{}, err
	}

	encoded, err := json.Marshal(entry)
	if err != nil {
		return domain.ArchivedPlan{}, errors.Wrap(err, "encode archive entry")
	}
	entries = append([]json.RawMessage{encoded}, entries...)

	if err := s.writeArchiveRaw(ctx, entries); err != nil {
		return domain.ArchivedPlan{}, err
	}

	if err := s.kv.Delete(ctx, CurrentPlanKey); err != nil {
		s.restoreArchive(ctx, prevRaw, hadPrev)
		return domain.ArchivedPlan{}, errors.Wrap(err, "clear current plan after archiving")
	}

	s.log.WithFields(logrus.Fields{"plan_id": entry.ID, "stops": len(entry.Cafes)}).Info("plan archived")
	return entry.Clone(), nil
}

// restoreArchive puts the archive back to its value before a failed promotion.
func (s *PlanStore) restoreArchive(ctx context.Context, prev []byte, existed bool) {
	var err error
	if existed {
		err = s.kv.Set(ctx, ArchiveKey, prev)
	} else {
		err = s.kv.Delete(ctx, ArchiveKey)
	}
	if err != nil {
		s.log.WithError(err).Error("archive rollback failed")
	}
}

// ListArchive returns archived plans most recent first. Entries that cannot be
// decoded are skipped; only storage failures are returned.
func (s *PlanStore) ListArchive(ctx context.Context) (plans []domain.ArchivedPlan, err error) {
	defer obs.Time(ctx, s.log, "plan_store.list_archive")(&err)

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _, entries, err := s.loadArchiveRaw(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ArchivedPlan, 0, len(entries))
	for i, raw := range entries {
		a, err := decodeArchivedPlan(raw)
		if err != nil {
			s.log.WithError(err).WithField("index", i).Warn("skipping unreadable archive entry")
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// ReuseArchived copies an archived plan into the current slot, overwriting it.
func (s *PlanStore) ReuseArchived(ctx context.Context, id string) (plan domain.Plan, err error) {
	defer obs.Time(ctx, s.log, "plan_store.reuse")(&err)

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _, entries, err := s.loadArchiveRaw(ctx)
	if err != nil {
		return domain.Plan{}, err
	}

	idx, entry := findArchived(entries, id)
	if idx < 0 {
		return domain.Plan{}, &domain.NotFoundError{Kind: "plan", ID: id}
	}

	plan = entry.Plan.Clone()
	if err := s.saveCurrent(ctx, plan); err != nil {
		return domain.Plan{}, err
	}
	return plan, nil
}

// SetCompleted flips the completed flag of an archived plan, the only mutation
// allowed once a plan is archived.
func (s *PlanStore) SetCompleted(ctx context.Context, id string, completed bool) (archived domain.ArchivedPlan, err error) {
	defer obs.Time(ctx, s.log, "plan_store.set_completed")(&err)

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _, entries, err := s.loadArchiveRaw(ctx)
	if err != nil {
		return domain.ArchivedPlan{}, err
	}

	idx, entry := findArchived(entries, id)
	if idx < 0 {
		return domain.ArchivedPlan{}, &domain.NotFoundError{Kind: "plan", ID: id}
	}
	if entry.Completed == completed {
		return entry, nil
	}

	entry.Completed = completed
	encoded, err := json.Marshal(entry)
	if err != nil {
		return domain.ArchivedPlan{}, errors.Wrap(err, "encode archive entry")
	}
	entries[idx] = encoded

	if err := s.writeArchiveRaw(ctx, entries); err != nil {
		return domain.ArchivedPlan{}, err
	}
	return entry.Clone(), nil
}

func findArchived(entries []json.RawMessage, id string) (int, domain.ArchivedPlan) {
	for i, raw := range entries {
		a, err := decodeArchivedPlan(raw)
		if err != nil {
			continue
		}
		if a.ID == id {
			return i, a
		}
	}
	return -1, domain.ArchivedPlan{}
}

// loadArchiveRaw returns the stored archive bytes, whether the key existed, and the
// entries split individually so one bad entry does not hide the rest.
func (s *PlanStore) loadArchiveRaw(ctx context.Context) ([]byte, bool, []json.RawMessage, error) {
	raw, ok, err := s.kv.Get(ctx, ArchiveKey)
	if err != nil {
		return nil, false, nil, errors.Wrap(err, "load archive")
	}
	if !ok || len(raw) == 0 {
		return raw, ok, []json.RawMessage{}, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.log.WithError(err).WithField("key", ArchiveKey).Warn("discarding unreadable archive")
		return raw, ok, []json.RawMessage{}, nil
	}
	if entries == nil {
		entries = []json.RawMessage{}
	}
	return raw, ok, entries, nil
}

func (s *PlanStore) writeArchiveRaw(ctx context.Context, entries []json.RawMessage) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return errors.Wrap(err, "encode archive")
	}
	if err := s.kv.Set(ctx, ArchiveKey, raw); err != nil {
		return errors.Wrap(err, "save archive")
	}
	return nil
}
