package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/fintrack/fintrack/internal/domain/model"
	"github.com/fintrack/fintrack/internal/domain/types"
)

// postgresSchema keeps one JSONB document per owner. Saves are full-document
// upserts: last writer wins at record-set granularity.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS record_documents (
    owner_id   TEXT PRIMARY KEY,
    data       JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// PostgresStore is the remote document store used for registered identities.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open connection and ensures the schema exists.
func NewPostgresStore(ctx context.Context, db *sql.DB) (*PostgresStore, error) {
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("init remote store schema: %w", mapPostgresError(err))
	}
	return &PostgresStore{db: db}, nil
}

// OpenPostgres opens and pings a connection for url.
func OpenPostgres(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open remote store: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping remote store: %w", mapPostgresError(err))
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	return db, nil
}

// Load implements Store. A missing row is the first-login state, reported
// as ErrNotFound so the engine can seed a starter document.
func (s *PostgresStore) Load(ctx context.Context, identity types.Identity) (model.RecordSet, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM record_documents WHERE owner_id = $1`, identity.ID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load remote record set: %w", mapPostgresError(err))
	}

	var set model.RecordSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	return set, nil
}

// Save implements Store.
func (s *PostgresStore) Save(ctx context.Context, identity types.Identity, set model.RecordSet) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshal record set: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO record_documents (owner_id, data, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (owner_id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		identity.ID, data,
	)
	if err != nil {
		return fmt.Errorf("save remote record set: %w", mapPostgresError(err))
	}
	return nil
}

// Clear implements Store.
func (s *PostgresStore) Clear(ctx context.Context, identity types.Identity) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM record_documents WHERE owner_id = $1`, identity.ID,
	); err != nil {
		return fmt.Errorf("clear remote record set: %w", mapPostgresError(err))
	}
	return nil
}

// mapPostgresError translates driver errors to the store's sentinel kinds.
// Access-policy rejections surface as ErrPermissionDenied; everything else
// transport-shaped is ErrUnavailable so callers offer a retry.
func mapPostgresError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "28": // invalid authorization
			return fmt.Errorf("%w: %s", ErrPermissionDenied, pqErr.Message)
		case "42":
			if pqErr.Code == "42501" { // insufficient_privilege
				return fmt.Errorf("%w: %s", ErrPermissionDenied, pqErr.Message)
			}
		case "08", "53", "57", "58": // connection, resources, operator intervention
			return fmt.Errorf("%w: %s", ErrUnavailable, pqErr.Message)
		}
		return fmt.Errorf("%w: %s", ErrUnavailable, pqErr.Message)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
