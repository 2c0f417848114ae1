package cart

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/storage"
)

// DefaultKeyPrefix namespaces persisted cart snapshots.
const DefaultKeyPrefix = "cart-storage"

// Key returns the storage key for a session's cart.
func Key(prefix, sessionID string) string {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if sessionID == "" {
		return prefix
	}
	return prefix + ":" + sessionID
}

// StoreParams wires a Store. Storage, Notifier, Observer and Logger are optional.
type StoreParams struct {
	SessionID string
	KeyPrefix string
	Storage   SnapshotStore
	Notifier  Notifier
	Observer  Observer
	Logger    *logger.Logger
}

// Store is the state container for one shopper's cart. Every operation runs
// engine mutation, total recomputation and the storage flush under a single
// lock, then notifies.
type Store struct {
	mu     sync.Mutex
	engine Engine
	agg    Aggregate

	sessionID string
	key       string
	storage   SnapshotStore
	notifier  Notifier
	observer  Observer
	logg      *logger.Logger

	// degraded is set when the last load failed. Flushes are withheld until a
	// load succeeds so the stored cart is never replaced by a partial one.
	degraded bool

	lastAccess atomic.Int64
	now        func() time.Time
}

func NewStore(params StoreParams) *Store {
	s := &Store{
		sessionID: params.SessionID,
		key:       Key(params.KeyPrefix, params.SessionID),
		storage:   params.Storage,
		notifier:  params.Notifier,
		observer:  params.Observer,
		logg:      params.Logger,
		now:       time.Now,
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	s.touch()
	return s
}

func (s *Store) SessionID() string { return s.sessionID }

func (s *Store) Key() string { return s.key }

// Rehydrate replaces the in-memory cart with the persisted snapshot. Totals
// are always recomputed from the lines. Missing, unreadable or malformed
// snapshots leave an empty cart; the result is reported, never returned as an error.
// A load error leaves the store degraded: it keeps working in memory and
// retries the load before each mutation instead of flushing.
func (s *Store) Rehydrate(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rehydrateLocked(ctx)
}

func (s *Store) rehydrateLocked(ctx context.Context) string {
	result := s.loadLocked(ctx)
	s.degraded = result == RehydrateError
	s.observer.ObserveRehydrate(result)
	return result
}

// Degraded reports whether the persisted cart could not be read yet.
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// recoverLocked retries the load of a degraded store. On success the lines
// added while degraded are merged into the restored cart through the engine,
// which applies the stock cap.
func (s *Store) recoverLocked(ctx context.Context) {
	pending := s.agg.Clone()
	if result := s.rehydrateLocked(ctx); result == RehydrateError {
		s.agg = pending
		return
	}
	for _, line := range pending.Items {
		s.engine.AddItem(&s.agg, line.Product, line.Quantity, line.SellingPrice)
	}
	s.agg.IsOpen = pending.IsOpen
}

func (s *Store) loadLocked(ctx context.Context) string {
	s.agg = Aggregate{IsOpen: s.agg.IsOpen}
	if s.storage == nil {
		return RehydrateUnavailable
	}
	ctx = s.logg.WithSessionID(ctx, s.sessionID)

	raw, err := s.storage.Load(ctx, s.key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return RehydrateEmpty
	case errors.Is(err, storage.ErrUnavailable):
		return RehydrateUnavailable
	case err != nil:
		s.logg.Error(ctx, "cart snapshot load failed", err)
		return RehydrateError
	}

	items, err := DecodeItems(raw)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "discarding malformed cart snapshot")
		return RehydrateMalformed
	}
	if len(items) == 0 {
		return RehydrateEmpty
	}
	s.agg.Items = items
	s.agg.recalculate()
	return RehydrateRestored
}

func (s *Store) AddItem(ctx context.Context, product ProductRef, quantity int, sellingPrice *decimal.Decimal) Outcome {
	return s.apply(ctx, OpAddItem, func(agg *Aggregate) Outcome {
		return s.engine.AddItem(agg, product, quantity, sellingPrice)
	})
}

func (s *Store) RemoveItem(ctx context.Context, productID string) Outcome {
	return s.apply(ctx, OpRemoveItem, func(agg *Aggregate) Outcome {
		return s.engine.RemoveItem(agg, productID)
	})
}

func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) Outcome {
	return s.apply(ctx, OpUpdateQuantity, func(agg *Aggregate) Outcome {
		return s.engine.UpdateQuantity(agg, productID, quantity)
	})
}

func (s *Store) UpdateSellingPrice(ctx context.Context, productID string, sellingPrice decimal.Decimal) Outcome {
	return s.apply(ctx, OpUpdateSellingPrice, func(agg *Aggregate) Outcome {
		return s.engine.UpdateSellingPrice(agg, productID, sellingPrice)
	})
}

func (s *Store) Clear(ctx context.Context) Outcome {
	return s.apply(ctx, OpClear, s.engine.Clear)
}

func (s *Store) Open(ctx context.Context) Outcome {
	return s.apply(ctx, OpOpen, s.engine.Open)
}

func (s *Store) Close(ctx context.Context) Outcome {
	return s.apply(ctx, OpClose, s.engine.Close)
}

func (s *Store) Toggle(ctx context.Context) Outcome {
	return s.apply(ctx, OpToggle, s.engine.Toggle)
}

// Snapshot returns a copy of the current aggregate.
func (s *Store) Snapshot() Aggregate {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.agg.Clone()
}

func (s *Store) ValidateSellingPrices() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.ValidateSellingPrices(s.agg)
}

func (s *Store) MissingSellingPrices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.MissingSellingPrices(s.agg)
}

func (s *Store) ItemsWithSellingPrices() []SubmissionLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.ItemsWithSellingPrices(s.agg)
}

// SubmissionSnapshot returns the submission lines and the ids failing the
// selling price gate, both read under one lock.
func (s *Store) SubmissionSnapshot() ([]SubmissionLine, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.engine.ItemsWithSellingPrices(s.agg), s.engine.MissingSellingPrices(s.agg)
}

// ReleaseSubmitted removes the quantities of an accepted order from the cart.
// Lines added or increased after the snapshot was taken keep the remainder.
func (s *Store) ReleaseSubmitted(ctx context.Context, submitted []SubmissionLine) Outcome {
	return s.apply(ctx, OpReleaseSubmitted, func(agg *Aggregate) Outcome {
		return s.engine.ReleaseSubmitted(agg, submitted)
	})
}

func (s *Store) apply(ctx context.Context, op string, mutate func(*Aggregate) Outcome) Outcome {
	s.mu.Lock()
	recovered := false
	if s.degraded {
		s.recoverLocked(ctx)
		recovered = !s.degraded
	}
	outcome := mutate(&s.agg)
	if (outcome.Mutated() || recovered) && !s.degraded {
		s.flushLocked(ctx)
	}
	s.touch()
	s.mu.Unlock()

	s.observer.ObserveMutation(op, outcome.Kind)
	s.notifier.Notify(ctx, s.sessionID, outcome)
	return outcome
}

// flushLocked writes the lines synchronously. A failed write is logged and
// counted; the in-memory state is kept either way.
func (s *Store) flushLocked(ctx context.Context) {
	if s.storage == nil {
		return
	}
	ctx = s.logg.WithSessionID(ctx, s.sessionID)

	payload, err := EncodeItems(s.agg.Items)
	if err != nil {
		s.observer.IncFlushFailure()
		s.logg.Error(ctx, "cart snapshot encode failed", err)
		return
	}
	err = s.storage.Save(ctx, s.key, payload)
	switch {
	case err == nil, errors.Is(err, storage.ErrUnavailable):
	default:
		s.observer.IncFlushFailure()
		s.logg.Error(ctx, "cart snapshot flush failed", err)
	}
}

func (s *Store) touch() {
	s.lastAccess.Store(s.now().UnixNano())
}

func (s *Store) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastAccess.Load()))
}
