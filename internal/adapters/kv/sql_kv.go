package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cafe-route-service/internal/platform/obs"

	"github.com/sirupsen/logrus"
)

// SQLStore is a Postgres-backed KVStore over the kv_store table.
type SQLStore struct {
	DB     *sql.DB
	Prefix string
	Log    logrus.FieldLogger
}

func NewSQLStore(db *sql.DB, prefix string, log logrus.FieldLogger) *SQLStore {
	return &SQLStore{DB: db, Prefix: prefix, Log: log}
}

func (s *SQLStore) Get(ctx context.Context, key string) (_ []byte, _ bool, err error) {
	if s.Log != nil {
		defer obs.Time(ctx, s.Log, "kv.sql.Get")(&err)
	}

	if s.DB == nil {
		return nil, false, errors.New("kv store: db is nil")
	}

	if strings.TrimSpace(key) == "" {
		return nil, false, errors.New("get kv: key must not be empty")
	}

	var value string
	err = s.DB.QueryRowContext(ctx, `
	SELECT value
    FROM kv_store
    WHERE store_key = $1;
	`, s.Prefix+key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get kv key=%q: query kv_store table: %w", key, err)
	}

	return []byte(value), true, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) (err error) {
	if s.Log != nil {
		defer obs.Time(ctx, s.Log, "kv.sql.Set")(&err)
	}

	if s.DB == nil {
		return errors.New("kv store: db is nil")
	}

	if strings.TrimSpace(key) == "" {
		return errors.New("set kv: key must not be empty")
	}

	if _, err := s.DB.ExecContext(ctx, `
	INSERT INTO kv_store (store_key, value, updated_at)
    VALUES ($1, $2, $3)
	ON CONFLICT (store_key) DO UPDATE
	SET value = EXCLUDED.value,
		updated_at = EXCLUDED.updated_at;
	`, s.Prefix+key, string(value), time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("set kv key=%q: %w", key, err)
	}

	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if s.DB == nil {
		return errors.New("kv store: db is nil")
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM kv_store WHERE store_key = $1;`, s.Prefix+key); err != nil {
		return fmt.Errorf("delete kv key=%q: %w", key, err)
	}

	return nil
}
