// Package storage selects and opens the KVStore backend named by config.
package storage

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"cafe-route-service/internal/adapters/kv"
	"cafe-route-service/internal/adapters/repositories"
	"cafe-route-service/internal/config"
	"cafe-route-service/internal/platform/db"
	"cafe-route-service/internal/ports"
)

// Backend is an opened store plus the resources it holds.
// DB is set for the SQL drivers so callers can reuse the connection for the catalog.
type Backend struct {
	Store   ports.KVStore
	DB      *sql.DB
	Dialect repositories.Dialect
	closers []func() error
}

func (b *Backend) Close() error {
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	b.closers = nil
	return first
}

// Open connects to the configured backend. SQL backends get their schema created.
func Open(ctx context.Context, cfg config.Storage, log logrus.FieldLogger) (*Backend, error) {
	switch cfg.Driver {
	case "memory":
		return &Backend{Store: kv.NewMemoryStore()}, nil

	case "sqlite":
		conn, err := db.OpenSqlite(cfg.SqlitePath)
		if err != nil {
			return nil, errors.Wrap(err, "open sqlite storage")
		}
		if err := repositories.InitSchema(ctx, conn); err != nil {
			conn.Close()
			return nil, errors.Wrap(err, "open sqlite storage")
		}
		return &Backend{
			Store:   kv.NewSqliteStore(conn, cfg.KeyPrefix),
			DB:      conn,
			Dialect: repositories.SQLite,
			closers: []func() error{conn.Close},
		}, nil

	case "postgres":
		conn, err := db.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "open postgres storage")
		}
		if err := repositories.InitSchema(ctx, conn); err != nil {
			conn.Close()
			return nil, errors.Wrap(err, "open postgres storage")
		}
		return &Backend{
			Store:   kv.NewSQLStore(conn, cfg.KeyPrefix, log),
			DB:      conn,
			Dialect: repositories.Postgres,
			closers: []func() error{conn.Close},
		}, nil

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, errors.Wrapf(err, "open redis storage at %s", cfg.RedisAddr)
		}
		return &Backend{
			Store:   kv.NewRedisStore(client, cfg.KeyPrefix),
			closers: []func() error{client.Close},
		}, nil
	}

	return nil, errors.Errorf("unknown storage driver %q", cfg.Driver)
}
