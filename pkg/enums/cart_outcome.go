package enums

import "fmt"

// CartOutcome describes what a cart engine operation did to the aggregate.
type CartOutcome string

const (
	CartOutcomeAdded               CartOutcome = "added"
	CartOutcomeQuantityUpdated     CartOutcome = "quantity_updated"
	CartOutcomeRemoved             CartOutcome = "removed"
	CartOutcomeSellingPriceUpdated CartOutcome = "selling_price_updated"
	CartOutcomeCleared             CartOutcome = "cleared"
	CartOutcomeRejectedCapacity    CartOutcome = "rejected_capacity"
	CartOutcomeNoop                CartOutcome = "noop"
	CartOutcomeVisibilityChanged   CartOutcome = "visibility_changed"
	CartOutcomeSubmitted           CartOutcome = "submitted"
)

var validCartOutcomes = []CartOutcome{
	CartOutcomeAdded,
	CartOutcomeQuantityUpdated,
	CartOutcomeRemoved,
	CartOutcomeSellingPriceUpdated,
	CartOutcomeCleared,
	CartOutcomeRejectedCapacity,
	CartOutcomeNoop,
	CartOutcomeVisibilityChanged,
	CartOutcomeSubmitted,
}

// String implements fmt.Stringer.
func (c CartOutcome) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CartOutcome.
func (c CartOutcome) IsValid() bool {
	for _, candidate := range validCartOutcomes {
		if candidate == c {
			return true
		}
	}
	return false
}

// MutatesItems reports whether the outcome changed the persisted line items.
func (c CartOutcome) MutatesItems() bool {
	switch c {
	case CartOutcomeAdded,
		CartOutcomeQuantityUpdated,
		CartOutcomeRemoved,
		CartOutcomeSellingPriceUpdated,
		CartOutcomeCleared,
		CartOutcomeSubmitted:
		return true
	}
	return false
}

// ParseCartOutcome converts raw input into a CartOutcome.
func ParseCartOutcome(value string) (CartOutcome, error) {
	for _, candidate := range validCartOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cart outcome %q", value)
}
