// Package app is the composition root: it wires storage, the cafe catalog and the
// plan services from config for an embedding presentation layer.
package app

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"cafe-route-service/internal/adapters/catalog"
	"cafe-route-service/internal/adapters/repositories"
	"cafe-route-service/internal/config"
	"cafe-route-service/internal/domain"
	"cafe-route-service/internal/platform/storage"
	"cafe-route-service/internal/ports"
	"cafe-route-service/internal/services"
)

type App struct {
	Itinerary *services.Itinerary
	Plans     *services.PlanStore
	Catalog   ports.CafeCatalog

	backend *storage.Backend
}

type Option func(*options)

type options struct {
	locator ports.Locator
}

// WithLocator supplies the device position source used for nearby lookups.
func WithLocator(l ports.Locator) Option {
	return func(o *options) { o.locator = l }
}

// New opens the configured backend and builds the services on top of it.
// SQL backends serve the catalog from the cafes table, seeding it from
// catalog.seedPath when the file exists; other backends load the seed into memory.
func New(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	backend, err := storage.Open(ctx, cfg.Storage, log)
	if err != nil {
		return nil, err
	}

	cat, err := openCatalog(ctx, cfg.Catalog, backend, log)
	if err != nil {
		backend.Close()
		return nil, err
	}

	plans := services.NewPlanStore(backend.Store, services.WithLogger(log))

	itOpts := []services.ItineraryOption{
		services.WithCatalog(cat),
		services.WithWalkingOnly(cfg.Planner.WalkingOnly),
		services.WithFallbackLocation(domain.Coordinates{Lat: cfg.Planner.DefaultLat, Lng: cfg.Planner.DefaultLng}),
		services.WithItineraryLogger(log),
	}
	if o.locator != nil {
		itOpts = append(itOpts, services.WithLocator(o.locator))
	}

	log.WithFields(logrus.Fields{
		"driver":       cfg.Storage.Driver,
		"walking_only": cfg.Planner.WalkingOnly,
	}).Info("cafe planner ready")

	return &App{
		Itinerary: services.NewItinerary(plans, itOpts...),
		Plans:     plans,
		Catalog:   cat,
		backend:   backend,
	}, nil
}

func openCatalog(ctx context.Context, cfg config.Catalog, backend *storage.Backend, log logrus.FieldLogger) (ports.CafeCatalog, error) {
	_, statErr := os.Stat(cfg.SeedPath)
	haveSeed := cfg.SeedPath != "" && statErr == nil

	if backend.DB != nil {
		if haveSeed {
			n, err := repositories.SeedCafesFromJSON(ctx, backend.DB, backend.Dialect, cfg.SeedPath)
			if err != nil {
				return nil, errors.Wrap(err, "seed catalog")
			}
			log.WithField("cafes", n).Debug("catalog seeded")
		}
		if backend.Dialect == repositories.Postgres {
			return repositories.NewPostgresCafeRepository(backend.DB), nil
		}
		return repositories.NewSqliteCafeRepository(backend.DB), nil
	}

	if !haveSeed {
		log.WithField("path", cfg.SeedPath).Warn("no catalog seed found, catalog is empty")
		return catalog.NewStaticCatalog(nil)
	}
	c, err := catalog.LoadStaticCatalog(cfg.SeedPath)
	if err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}
	return c, nil
}

func (a *App) Close() error {
	if a.backend == nil {
		return nil
	}
	return a.backend.Close()
}
