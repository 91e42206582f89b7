// README: On-device key/value store backed by SQLite; holds the last pushed location and install id.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	lastLocationKey = "last_location_update"
	installIDKey    = "install_id"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// LastLocation is the baseline the movement gate compares new fixes against.
type LastLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"` // unix milliseconds
}

func (l LastLocation) Time() time.Time {
	return time.UnixMilli(l.Timestamp)
}

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite file at path. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	// Every pooled connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping local store: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// LastLocation returns the cached baseline, or nil when nothing was pushed yet.
func (s *Store) LastLocation(ctx context.Context) (*LastLocation, error) {
	raw, ok, err := s.get(ctx, lastLocationKey)
	if err != nil || !ok {
		return nil, err
	}
	var l LastLocation
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", lastLocationKey, err)
	}
	return &l, nil
}

func (s *Store) SaveLastLocation(ctx context.Context, l LastLocation) error {
	b, err := json.Marshal(l)
	if err != nil {
		return err
	}
	return s.put(ctx, lastLocationKey, string(b))
}

// InstallID returns the id identifying this installation, generating and
// persisting one on first use.
func (s *Store) InstallID(ctx context.Context) (string, error) {
	id, ok, err := s.get(ctx, installIDKey)
	if err != nil {
		return "", err
	}
	if ok {
		return id, nil
	}
	id = uuid.NewString()
	if err := s.put(ctx, installIDKey, id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
