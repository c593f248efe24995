// Package repository defines the record-set store contract and errors.
package repository

import (
	"context"

	"github.com/fintrack/fintrack/internal/domain/model"
	"github.com/fintrack/fintrack/internal/domain/types"
)

// Store provides durable access to one record set per identity. The set is
// read and written whole; there are no per-month operations at this layer.
type Store interface {
	// Load returns the identity's record set.
	// Returns ErrNotFound when no document exists yet (a first-login state,
	// not a failure).
	Load(ctx context.Context, identity types.Identity) (model.RecordSet, error)

	// Save overwrites the identity's full document (last-writer-wins).
	Save(ctx context.Context, identity types.Identity, set model.RecordSet) error

	// Clear removes the identity's document entirely.
	Clear(ctx context.Context, identity types.Identity) error
}
