package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLite backed KVStore over the kv_store table.
// Values are whole JSON documents; Set replaces the row.
type SqliteStore struct {
	DB     *sql.DB
	Prefix string
}

func NewSqliteStore(db *sql.DB, prefix string) *SqliteStore {
	return &SqliteStore{DB: db, Prefix: prefix}
}

func (s *SqliteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.DB == nil {
		return nil, false, errors.New("kv store: db is nil")
	}

	if strings.TrimSpace(key) == "" {
		return nil, false, errors.New("get kv: key must not be empty")
	}

	var value string
	err := s.DB.QueryRowContext(ctx, `
	SELECT value
    FROM kv_store
    WHERE store_key = ?;
	`, s.Prefix+key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get kv key=%q: query kv_store table: %w", key, err)
	}

	return []byte(value), true, nil
}

func (s *SqliteStore) Set(ctx context.Context, key string, value []byte) error {
	if s.DB == nil {
		return errors.New("kv store: db is nil")
	}

	if strings.TrimSpace(key) == "" {
		return errors.New("set kv: key must not be empty")
	}

	if _, err := s.DB.ExecContext(ctx, `
	INSERT OR REPLACE INTO kv_store (
        store_key,
        value,
        updated_at
    )
    VALUES (?, ?, ?);
	`, s.Prefix+key, string(value), time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("set kv key=%q: %w", key, err)
	}

	return nil
}

func (s *SqliteStore) Delete(ctx context.Context, key string) error {
	if s.DB == nil {
		return errors.New("kv store: db is nil")
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM kv_store WHERE store_key = ?;`, s.Prefix+key); err != nil {
		return fmt.Errorf("delete kv key=%q: %w", key, err)
	}

	return nil
}
