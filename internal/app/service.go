// Package service provides the synchronization engine: it owns the
// in-memory record set, applies edits optimistically, and reconciles them
// with durable storage through a debounced, single-flight save path.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	repository "github.com/fintrack/fintrack/internal/adapters/repository"
	"github.com/fintrack/fintrack/internal/demo"
	"github.com/fintrack/fintrack/internal/domain/advice"
	"github.com/fintrack/fintrack/internal/domain/calc"
	"github.com/fintrack/fintrack/internal/domain/model"
	"github.com/fintrack/fintrack/internal/domain/transfer"
	"github.com/fintrack/fintrack/internal/domain/types"
	"github.com/fintrack/fintrack/pkg/logger"
	"github.com/fintrack/fintrack/pkg/metrics"
)

// Default engine configuration constants.
const (
	defaultDebounceWindow = 800 * time.Millisecond
	saveTimeout           = 10 * time.Second
)

// Service is the synchronization engine. Its lifecycle is scoped to the
// currently active identity: SetIdentity is the sole trigger for loads, and
// a cleared identity discards all in-memory state.
type Service struct {
	mu sync.Mutex

	local  repository.Store
	remote repository.Store

	identity types.Identity
	gen      int            // bumped on identity change; stale async results are dropped
	loadPrev types.Identity // pre-switch identity, kept until its load succeeds so a retried load can still migrate

	set      model.RecordSet
	state    State
	failKind FailKind
	lastErr  error

	debounce time.Duration
	timer    *time.Timer
	saving   bool       // at most one in-flight save or clear; see flush and ClearAll
	saveDone *sync.Cond // signalled when saving drops back to false
	dirty    bool       // work arrived while a save was in flight

	demoSeed bool
	now      func() time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLocalStore sets the store backing anonymous (guest) identities.
func WithLocalStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.local = store
		}
	}
}

// WithRemoteStore sets the store backing registered identities.
func WithRemoteStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.remote = store
		}
	}
}

// WithDebounceWindow sets the quiet period after the last edit before a
// save is dispatched.
func WithDebounceWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithDemoSeed controls whether first-login guest documents are seeded with
// demonstration data instead of an empty current-month template.
func WithDemoSeed(enabled bool) Option {
	return func(s *Service) {
		s.demoSeed = enabled
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for current-month seeding.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs an engine with default configuration. Stores default to
// in-memory implementations so the engine works in dev mode without any
// database configured.
func New(opts ...Option) *Service {
	s := &Service{
		local:    repository.NewMemoryStore(),
		remote:   repository.NewMemoryStore(),
		set:      model.RecordSet{},
		debounce: defaultDebounceWindow,
		now:      time.Now,
	}
	s.saveDone = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		_ = logger.Init()
		s.logger = logger.Named("engine")
	}
	return s
}

// storeFor routes an identity to its backing store.
func (s *Service) storeFor(id types.Identity) repository.Store {
	if id.Anonymous {
		return s.local
	}
	return s.remote
}

// SetIdentity switches the active identity. A zero identity is a logout:
// the in-memory set is discarded and the engine returns to a neutral state.
// Any other change discards current state and loads the new identity's
// record set, seeding a starter document on first login.
func (s *Service) SetIdentity(ctx context.Context, id types.Identity) error {
	s.mu.Lock()
	if id == s.identity {
		s.mu.Unlock()
		return nil
	}
	prev := s.identity
	s.gen++
	gen := s.gen
	s.stopTimerLocked()
	s.saving = false
	s.saveDone.Broadcast()
	s.dirty = false
	s.identity = id
	s.loadPrev = prev
	s.set = model.RecordSet{}
	s.failKind = FailNone
	s.lastErr = nil
	metrics.UpdateMonthsTracked(0)

	if id.Zero() {
		s.setStateLocked(StateIdle)
		s.mu.Unlock()
		s.logger.Info(ctx, "identity cleared; record set discarded")
		return nil
	}
	s.setStateLocked(StateLoading)
	s.mu.Unlock()

	return s.load(ctx, gen, id, prev)
}

// load fetches (or seeds) the record set for id and installs it unless the
// identity changed in the meantime.
func (s *Service) load(ctx context.Context, gen int, id, prev types.Identity) error {
	start := time.Now()
	set, err := s.storeFor(id).Load(ctx, id)
	switch {
	case err == nil:
		metrics.RecordLoad(float64(time.Since(start).Milliseconds()))
	case errors.Is(err, repository.ErrNotFound):
		set, err = s.seed(ctx, id, prev)
	case errors.Is(err, repository.ErrCorruptData):
		// Unparseable stored text is "no data", not a fatal condition.
		s.logger.Warn(ctx, "stored record set is corrupt; reseeding", logger.Error(err))
		set, err = s.seed(ctx, id, prev)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return nil
	}
	if err != nil {
		s.lastErr = err
		s.failKind = FailLoad
		s.setStateLocked(StateError)
		metrics.RecordLoadError(errorKind(err))
		s.logger.Error(ctx, "record set load failed",
			logger.String("identity", id.ID), logger.Error(err))
		return err
	}
	s.set = set
	s.loadPrev = types.Identity{}
	s.setStateLocked(StateIdle)
	metrics.UpdateMonthsTracked(len(set))
	s.logger.Info(ctx, "record set loaded",
		logger.String("identity", id.ID), logger.Int("months", len(set)))
	return nil
}

// seed builds the starter document for a first login.
//
// Guest sessions start empty unless demo seeding is enabled; an empty guest
// set is never persisted, so hasData stays false until the first edit.
// Registered identities always end up with a persisted document: either the
// guest set migrated from the local store (one-time, one-directional; only
// runs when no remote document exists, so stale local data never overwrites
// remote data) or a current-month template.
func (s *Service) seed(ctx context.Context, id, prev types.Identity) (model.RecordSet, error) {
	if id.Anonymous {
		if !s.demoSeed {
			return model.RecordSet{}, nil
		}
		set := demo.RecordSet(s.now())
		if err := s.local.Save(ctx, id, set); err != nil {
			return nil, fmt.Errorf("seed record set: %w", err)
		}
		return set, nil
	}

	var set model.RecordSet
	migrated := false
	if prev.Anonymous && !prev.Zero() {
		if localSet, err := s.local.Load(ctx, prev); err == nil && len(localSet) > 0 {
			set = localSet
			migrated = true
		}
	}
	if set == nil {
		set = model.RecordSet{types.MonthKey(s.now()): model.NewMonthlyRecord()}
	}

	if err := s.remote.Save(ctx, id, set); err != nil {
		return nil, fmt.Errorf("seed record set: %w", err)
	}
	if migrated {
		if err := s.local.Clear(ctx, prev); err != nil {
			// Remote copy already landed; leftover local data is harmless.
			s.logger.Warn(ctx, "clearing migrated local data failed", logger.Error(err))
		}
		s.logger.Info(ctx, "migrated local record set to remote store",
			logger.String("identity", id.ID), logger.Int("months", len(set)))
	}
	return set, nil
}

// UpdateMonth replaces one month's record optimistically and (re)arms the
// debounce timer. Rejected only while a load is in flight.
func (s *Service) UpdateMonth(ctx context.Context, key string, rec model.MonthlyRecord) error {
	if !types.ValidMonthKey(key) {
		return fmt.Errorf("%w: %q", ErrInvalidMonthKey, key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity.Zero() {
		return ErrNoIdentity
	}
	if s.state == StateLoading {
		return ErrLoading
	}
	clone := rec.Clone()
	clone.Normalize()
	s.set[key] = clone
	metrics.RecordEdit()
	metrics.UpdateMonthsTracked(len(s.set))
	s.setStateLocked(StateUnsaved)
	s.scheduleLocked()
	return nil
}

// scheduleLocked arms or restarts the debounce timer. Restarting an armed
// timer coalesces the edit into the pending window.
func (s *Service) scheduleLocked() {
	if s.timer != nil {
		s.timer.Stop()
		metrics.RecordEditCoalesced()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.flush(context.Background())
	})
}

func (s *Service) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// flush dispatches the pending save. At most one save is ever in flight per
// identity: a flush observed while one is outstanding marks the set dirty
// and is re-dispatched through a fresh debounce cycle when the save lands,
// which keeps whole-set overwrites ordered.
func (s *Service) flush(ctx context.Context) {
	s.mu.Lock()
	s.timer = nil
	if s.saving {
		s.dirty = true
		s.mu.Unlock()
		return
	}
	if s.identity.Zero() || s.state != StateUnsaved {
		s.mu.Unlock()
		return
	}
	gen := s.gen
	id := s.identity
	snap := s.set.Clone()
	s.saving = true
	s.setStateLocked(StateSaving)
	s.mu.Unlock()

	metrics.RecordDebounceFlush()
	saveCtx, cancel := context.WithTimeout(ctx, saveTimeout)
	start := time.Now()
	err := s.storeFor(id).Save(saveCtx, id, snap)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false
	s.saveDone.Broadcast()
	if gen != s.gen {
		return
	}
	if err != nil {
		// Edits are never rolled back; the user retries against the same set.
		s.lastErr = err
		s.failKind = FailSave
		s.setStateLocked(StateError)
		metrics.RecordSaveError(errorKind(err))
		s.logger.Error(ctx, "record set save failed",
			logger.String("identity", id.ID), logger.Error(err))
		return
	}
	metrics.RecordSave(float64(time.Since(start).Milliseconds()))
	s.lastErr = nil
	s.failKind = FailNone
	if s.dirty {
		s.dirty = false
		s.setStateLocked(StateUnsaved)
		s.scheduleLocked()
		return
	}
	if s.state != StateSaving {
		// An edit landed mid-save and armed its own debounce cycle; that
		// cycle carries the pending data, so the state stays unsaved.
		return
	}
	s.setStateLocked(StateIdle)
}

// Retry re-attempts the failed operation behind a StateError. It is the
// only recovery path; the engine never retries on a timer.
func (s *Service) Retry(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateError {
		s.mu.Unlock()
		return nil
	}
	kind := s.failKind
	id := s.identity
	switch kind {
	case FailLoad:
		s.gen++
		gen := s.gen
		prev := s.loadPrev
		s.setStateLocked(StateLoading)
		s.mu.Unlock()
		return s.load(ctx, gen, id, prev)
	case FailClear:
		s.mu.Unlock()
		return s.ClearAll(ctx)
	default:
		s.setStateLocked(StateUnsaved)
		s.mu.Unlock()
		s.flush(ctx)
		s.mu.Lock()
		err := s.lastErr
		s.mu.Unlock()
		return err
	}
}

// Month returns a copy of the record for key, or the all-zero template when
// the month is absent. Viewing a month never mutates the set.
func (s *Service) Month(key string) model.MonthlyRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.set[key]; ok {
		return rec.Clone()
	}
	return model.NewMonthlyRecord()
}

// HasMonth reports whether key has recorded data.
func (s *Service) HasMonth(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.set[key]
	return ok
}

// Snapshot returns an immutable deep copy of the record set for rendering.
func (s *Service) Snapshot() model.RecordSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.Clone()
}

// HasData reports whether any month has been recorded.
func (s *Service) HasData() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.set) > 0
}

// State returns the engine's current state machine position.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// FailureKind names the operation behind the current error state.
func (s *Service) FailureKind() FailKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failKind
}

// LastError returns the error behind the current error state, if any.
func (s *Service) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Identity returns the active identity.
func (s *Service) Identity() types.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// ExportAll renders the current record set as a portable backup document.
func (s *Service) ExportAll() ([]byte, error) {
	s.mu.Lock()
	snap := s.set.Clone()
	s.mu.Unlock()
	b, err := transfer.Export(snap)
	if err == nil {
		metrics.RecordExport()
	}
	return b, err
}

// ImportAll replaces the record set from a backup document and persists it
// through the normal debounced path. A malformed document leaves the
// in-memory set untouched. This is a restore, not a merge.
func (s *Service) ImportAll(ctx context.Context, data []byte) error {
	set, err := transfer.Import(data)
	if err != nil {
		metrics.RecordImport(false)
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity.Zero() {
		return ErrNoIdentity
	}
	if s.state == StateLoading {
		return ErrLoading
	}
	for key, rec := range set {
		rec.Normalize()
		set[key] = rec
	}
	s.set = set
	metrics.RecordImport(true)
	metrics.UpdateMonthsTracked(len(set))
	s.setStateLocked(StateUnsaved)
	s.scheduleLocked()
	s.logger.Info(ctx, "record set imported", logger.Int("months", len(set)))
	return nil
}

// ClearAll wipes the identity's durable document and the in-memory set.
// Individual months are never deleted; this is the only deletion operation.
func (s *Service) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	if s.identity.Zero() {
		s.mu.Unlock()
		return ErrNoIdentity
	}
	gen := s.gen
	// An outstanding save must land before the delete; its whole-set write
	// would otherwise resurrect the cleared document.
	for s.saving {
		s.saveDone.Wait()
	}
	if gen != s.gen || s.identity.Zero() {
		s.mu.Unlock()
		return nil
	}
	id := s.identity
	s.stopTimerLocked()
	s.dirty = false
	s.saving = true
	s.mu.Unlock()

	err := s.storeFor(id).Clear(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false
	s.saveDone.Broadcast()
	s.dirty = false
	if gen != s.gen {
		return nil
	}
	if err != nil {
		s.lastErr = err
		s.failKind = FailClear
		s.setStateLocked(StateError)
		return err
	}
	s.stopTimerLocked()
	s.set = model.RecordSet{}
	s.lastErr = nil
	s.failKind = FailNone
	s.setStateLocked(StateIdle)
	metrics.UpdateMonthsTracked(0)
	s.logger.Info(ctx, "record set cleared", logger.String("identity", id.ID))
	return nil
}

// Aggregates computes the derived numbers for one month. Only these
// aggregates cross the advice boundary; names and identifiers never do.
func (s *Service) Aggregates(key string) advice.Aggregates {
	rec := s.Month(key)
	return advice.Aggregates{
		MonthKey:      key,
		NetWorth:      calc.NetWorth(rec),
		MonthlyIncome: calc.NormalizedMonthlyIncome(rec.Income),
		MonthlyBills:  calc.TotalBills(rec),
		DebtTotal:     calc.TotalDebt(rec),
		Utilization:   calc.OverallUtilization(rec),
		DTI:           calc.DebtToIncome(rec),
		CreditScores:  rec.CreditScores.Values(),
	}
}

// Stop cancels the debounce timer and makes a final save attempt if edits
// are still pending. Used on graceful shutdown.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	s.stopTimerLocked()
	pending := s.state == StateUnsaved
	s.mu.Unlock()
	if pending {
		s.flush(ctx)
	}
	s.logger.Info(ctx, "engine stopped")
}

// setStateLocked transitions the state machine and updates the gauge.
func (s *Service) setStateLocked(st State) {
	s.state = st
	metrics.UpdateEngineState(int(st))
}

// errorKind maps store errors to stable metric labels.
func errorKind(err error) string {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	case errors.Is(err, repository.ErrCorruptData):
		return "corrupt_data"
	case errors.Is(err, repository.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, repository.ErrUnavailable):
		return "unavailable"
	default:
		return "other"
	}
}
