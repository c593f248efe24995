package repository

import (
	"context"
	"sync"
	"time"

	"github.com/fintrack/fintrack/internal/domain/model"
	"github.com/fintrack/fintrack/internal/domain/types"
)

// MemoryStore implements Store with in-memory storage. It backs tests and
// dev-mode deployments that have no database configured.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]model.RecordSet

	loadErr  error
	saveErr  error
	clearErr error

	saveDelay time.Duration

	saveCount   int
	inFlight    int
	maxInFlight int
	lastSaved   model.RecordSet
}

// MemoryOption applies a configuration option to the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithLoadError makes every Load fail with err.
func WithLoadError(err error) MemoryOption {
	return func(s *MemoryStore) { s.loadErr = err }
}

// WithSaveError makes every Save fail with err.
func WithSaveError(err error) MemoryOption {
	return func(s *MemoryStore) { s.saveErr = err }
}

// WithClearError makes every Clear fail with err.
func WithClearError(err error) MemoryOption {
	return func(s *MemoryStore) { s.clearErr = err }
}

// WithSaveDelay makes Save block for d, simulating backend latency.
func WithSaveDelay(d time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.saveDelay = d }
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{docs: make(map[string]model.RecordSet)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, identity types.Identity) (model.RecordSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	set, ok := s.docs[identity.ID]
	if !ok {
		return nil, ErrNotFound
	}
	return set.Clone(), nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, identity types.Identity, set model.RecordSet) error {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	delay := s.saveDelay
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
	if s.saveErr != nil {
		return s.saveErr
	}
	s.docs[identity.ID] = set.Clone()
	s.saveCount++
	s.lastSaved = set.Clone()
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context, identity types.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clearErr != nil {
		return s.clearErr
	}
	delete(s.docs, identity.ID)
	return nil
}

// SetLoadError swaps the injected load failure at runtime (tests only).
func (s *MemoryStore) SetLoadError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadErr = err
}

// SetSaveError swaps the injected save failure at runtime (tests only).
func (s *MemoryStore) SetSaveError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

// SaveCount reports how many saves have landed.
func (s *MemoryStore) SaveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saveCount
}

// MaxInFlightSaves reports the peak number of concurrent saves observed.
func (s *MemoryStore) MaxInFlightSaves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxInFlight
}

// LastSaved returns a copy of the most recently saved set.
func (s *MemoryStore) LastSaved() model.RecordSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSaved.Clone()
}
