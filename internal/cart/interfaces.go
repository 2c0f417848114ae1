package cart

import (
	"context"

	"github.com/angelmondragon/storefront/pkg/enums"
)

// SnapshotStore is the durable storage a Store flushes to. storage.Storage
// satisfies it.
type SnapshotStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Notifier receives every outcome after the state change is durable.
// Implementations must not block for long and must not fail the caller.
type Notifier interface {
	Notify(ctx context.Context, sessionID string, outcome Outcome)
}

// Observer records cart activity for metrics.
type Observer interface {
	ObserveMutation(op string, outcome enums.CartOutcome)
	IncFlushFailure()
	ObserveRehydrate(result string)
}

// Operation names reported to the Observer.
const (
	OpAddItem            = "add_item"
	OpRemoveItem         = "remove_item"
	OpUpdateQuantity     = "update_quantity"
	OpUpdateSellingPrice = "update_selling_price"
	OpClear              = "clear"
	OpOpen               = "open"
	OpClose              = "close"
	OpToggle             = "toggle"
	OpReleaseSubmitted   = "release_submitted"
)

// Rehydration results reported to the Observer.
const (
	RehydrateRestored    = "restored"
	RehydrateEmpty       = "empty"
	RehydrateMalformed   = "malformed"
	RehydrateUnavailable = "unavailable"
	RehydrateError       = "error"
)

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, Outcome) {}

type nopObserver struct{}

func (nopObserver) ObserveMutation(string, enums.CartOutcome) {}
func (nopObserver) IncFlushFailure()                          {}
func (nopObserver) ObserveRehydrate(string)                   {}
