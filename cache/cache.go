// cache.go
// On-device persistence for store state: one JSON payload per namespace in
// a single SQLite table. This is a cache, never a source of truth: stores
// rehydrate from it at construction and overwrite it from live data.

package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrMiss is returned by Load when the namespace has never been saved.
var ErrMiss = errors.New("cache: namespace not found")

// Store is a namespaced JSON key-value store over SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at path and bootstraps the
// schema. Use ":memory:" for a throwaway cache.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache at %s: %w", path, err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS kv (
	namespace  TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to bootstrap cache schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save serializes v as JSON under the namespace, replacing any previous
// payload.
func (s *Store) Save(namespace string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", namespace, err)
	}

	const upsert = `
INSERT INTO kv (namespace, payload, updated_at) VALUES (?, ?, ?)
ON CONFLICT(namespace) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at;`
	if _, err := s.db.Exec(upsert, namespace, string(payload), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to persist %s: %w", namespace, err)
	}
	return nil
}

// Load deserializes the namespace payload into out. Returns ErrMiss when
// nothing was ever saved under the namespace.
func (s *Store) Load(namespace string, out interface{}) error {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM kv WHERE namespace = ?`, namespace).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", namespace, err)
	}

	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", namespace, err)
	}
	return nil
}

// Delete drops the namespace payload. Deleting an absent namespace is a
// no-op.
func (s *Store) Delete(namespace string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE namespace = ?`, namespace); err != nil {
		return fmt.Errorf("failed to delete %s: %w", namespace, err)
	}
	return nil
}
