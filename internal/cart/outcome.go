package cart

import "github.com/angelmondragon/storefront/pkg/enums"

// Outcome reports what an engine operation did. Rejections and no-ops are
// outcomes too; the engine never returns errors.
type Outcome struct {
	Kind        enums.CartOutcome
	ProductID   string
	ProductName string
	// Quantity is the line quantity after the operation (or the requested
	// quantity for a rejection).
	Quantity int
	// Available is the stock snapshot, set on capacity rejections.
	Available int
	IsOpen    bool
}

// Mutated reports whether the persisted items changed.
func (o Outcome) Mutated() bool {
	return o.Kind.MutatesItems()
}

// Rejected reports whether the operation was refused for capacity.
func (o Outcome) Rejected() bool {
	return o.Kind == enums.CartOutcomeRejectedCapacity
}

func noop(productID string) Outcome {
	return Outcome{Kind: enums.CartOutcomeNoop, ProductID: productID}
}
