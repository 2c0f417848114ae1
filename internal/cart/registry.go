package cart

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront/pkg/logger"
)

// ErrSessionRequired is returned when a cart is requested without a session id.
var ErrSessionRequired = errors.New("cart session id required")

// RegistryParams configures the stores a Registry creates.
type RegistryParams struct {
	KeyPrefix string
	Storage   SnapshotStore
	Notifier  Notifier
	Observer  Observer
	Logger    *logger.Logger
	// IdleTTL evicts in-memory stores untouched for longer. Zero keeps them.
	IdleTTL time.Duration
}

// Registry maps session ids to their Store, rehydrating on first access.
type Registry struct {
	mu     sync.Mutex
	stores map[string]*Store
	params RegistryParams
	now    func() time.Time
}

func NewRegistry(params RegistryParams) *Registry {
	return &Registry{
		stores: make(map[string]*Store),
		params: params,
		now:    time.Now,
	}
}

// Get returns the session's store, loading it from storage when it is not
// yet in memory. Concurrent callers for a new session wait for the same load.
func (r *Registry) Get(ctx context.Context, sessionID string) (*Store, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	r.mu.Lock()
	if store, ok := r.stores[sessionID]; ok {
		r.mu.Unlock()
		store.touch()
		return store, nil
	}
	store := NewStore(StoreParams{
		SessionID: sessionID,
		KeyPrefix: r.params.KeyPrefix,
		Storage:   r.params.Storage,
		Notifier:  r.params.Notifier,
		Observer:  r.params.Observer,
		Logger:    r.params.Logger,
	})
	store.now = r.now
	store.touch()
	store.mu.Lock()
	r.stores[sessionID] = store
	r.mu.Unlock()

	store.rehydrateLocked(ctx)
	store.mu.Unlock()
	return store, nil
}

// Len reports how many carts are held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Sweep drops stores idle longer than IdleTTL. Their state is already
// persisted and comes back on the next Get.
func (r *Registry) Sweep() int {
	if r.params.IdleTTL <= 0 {
		return 0
	}
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, store := range r.stores {
		if store.idleSince(now) > r.params.IdleTTL {
			delete(r.stores, id)
			evicted++
		}
	}
	return evicted
}

// JobObserver records sweeper runs.
type JobObserver interface {
	ObserveRun(job string, duration time.Duration, affected int)
}

const sweepJob = "cart_sweep"

// RunSweeper calls Sweep every interval until ctx is done. jobs may be nil.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration, jobs JobObserver) {
	if interval <= 0 || r.params.IdleTTL <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			evicted := r.Sweep()
			if jobs != nil {
				jobs.ObserveRun(sweepJob, time.Since(start), evicted)
			}
			if evicted > 0 {
				r.params.Logger.Debug(r.params.Logger.WithField(ctx, "evicted", evicted), "swept idle carts")
			}
		}
	}
}
