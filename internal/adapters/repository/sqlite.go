package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver" // database/sql driver
	_ "github.com/ncruces/go-sqlite3/embed"  // embedded sqlite build

	"github.com/fintrack/fintrack/internal/domain/model"
	"github.com/fintrack/fintrack/internal/domain/types"
)

// sqliteSchema holds one JSON document per identity. The document is the
// whole record set; rows are replaced, never patched.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS record_sets (
    identity   TEXT PRIMARY KEY,
    data       TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// SQLiteStore is the local persistent store used for guest sessions. It is
// the durable per-device equivalent of browser local storage.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteStore opens (and creates if needed) the database at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init local store schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Load implements Store. Unparseable stored text maps to ErrCorruptData;
// the engine treats that as "no data", not a fatal condition.
func (s *SQLiteStore) Load(ctx context.Context, identity types.Identity) (model.RecordSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM record_sets WHERE identity = ?`, identity.ID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load local record set: %w", err)
	}

	var set model.RecordSet
	if err := json.Unmarshal([]byte(data), &set); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	return set, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, identity types.Identity, set model.RecordSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshal record set: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO record_sets (identity, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		identity.ID, string(data), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save local record set: %w", err)
	}
	return nil
}

// Clear implements Store.
func (s *SQLiteStore) Clear(ctx context.Context, identity types.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM record_sets WHERE identity = ?`, identity.ID,
	); err != nil {
		return fmt.Errorf("clear local record set: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
