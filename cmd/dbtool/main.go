package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"cafe-route-service/internal/adapters/repositories"
	"cafe-route-service/internal/config"
	"cafe-route-service/internal/platform/logging"
	"cafe-route-service/internal/platform/storage"
)

// dbtool creates the schema on the configured SQL backend and seeds the cafe catalog.
func main() {
	configPath := flag.String("config", config.Get("CAFEHOP_CONFIG", ""), "path to a YAML config file")
	seedPath := flag.String("seed", "", "cafe seed JSON (defaults to catalog.seedPath)")
	flag.Parse()

	envErr := godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("invalid config")
	}

	log, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		logrus.WithError(err).Fatal("init logger")
	}
	if envErr != nil {
		log.Debug("No .env file found (using environment variables)")
	}

	if cfg.Storage.Driver != "sqlite" && cfg.Storage.Driver != "postgres" {
		log.WithField("driver", cfg.Storage.Driver).Fatal("dbtool needs a sqlite or postgres storage driver")
	}

	path := cfg.Catalog.SeedPath
	if *seedPath != "" {
		path = *seedPath
	}

	if err := initAndSeed(context.Background(), cfg.Storage, path, log); err != nil {
		log.WithError(err).Error("dbtool failed")
		os.Exit(1)
	}
}

func initAndSeed(ctx context.Context, cfg config.Storage, seedPath string, log *logrus.Logger) error {
	log.WithField("driver", cfg.Driver).Info("Initializing database schema...")
	backend, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer backend.Close()
	log.Info("Schema ready.")

	log.WithField("seed", seedPath).Info("Seeding cafe catalog...")
	n, err := repositories.SeedCafesFromJSON(ctx, backend.DB, backend.Dialect, seedPath)
	if err != nil {
		return err
	}
	log.WithField("cafes", n).Info("Seeding complete.")

	return nil
}
