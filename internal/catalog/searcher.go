package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/storefront/internal/cart"
)

// ErrSuperseded is returned to a search that a newer search for the same
// session replaced before it finished.
var ErrSuperseded = errors.New("search superseded by a newer query")

type productSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]cart.ProductRef, error)
}

// Searcher applies latest-wins semantics to product searches per session:
// a new query cancels the one in flight, and each query waits out a debounce
// window before it is sent.
type Searcher struct {
	catalog  productSearcher
	debounce time.Duration

	mu       sync.Mutex
	inflight map[string]*pendingSearch
}

type pendingSearch struct {
	cancel context.CancelFunc
}

func NewSearcher(catalog productSearcher, debounce time.Duration) *Searcher {
	if debounce < 0 {
		debounce = 0
	}
	return &Searcher{
		catalog:  catalog,
		debounce: debounce,
		inflight: make(map[string]*pendingSearch),
	}
}

func (s *Searcher) Search(ctx context.Context, sessionID, query string, limit int) ([]cart.ProductRef, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	current := &pendingSearch{cancel: cancel}

	s.mu.Lock()
	if prev, ok := s.inflight[sessionID]; ok {
		prev.cancel()
	}
	s.inflight[sessionID] = current
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.inflight[sessionID] == current {
			delete(s.inflight, sessionID)
		}
		s.mu.Unlock()
	}()

	if s.debounce > 0 {
		timer := time.NewTimer(s.debounce)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, s.cancelled(sessionID, current, ctx.Err())
		case <-timer.C:
		}
	}

	results, err := s.catalog.Search(ctx, query, limit)
	if s.superseded(sessionID, current) {
		return nil, ErrSuperseded
	}
	return results, err
}

func (s *Searcher) superseded(sessionID string, current *pendingSearch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight[sessionID] != current
}

func (s *Searcher) cancelled(sessionID string, current *pendingSearch, err error) error {
	if s.superseded(sessionID, current) {
		return ErrSuperseded
	}
	return err
}
