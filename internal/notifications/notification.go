package notifications

import (
	"fmt"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/pkg/enums"
)

// Notification is an advisory message shown to the shopper. It carries no
// cart state.
type Notification struct {
	Level     enums.NotificationLevel `json:"level"`
	Message   string                  `json:"message"`
	Kind      enums.CartOutcome       `json:"kind"`
	ProductID string                  `json:"product_id,omitempty"`
}

// FromOutcome renders the message for an outcome. Outcomes the shopper does
// not need to hear about (no-ops, open/close) return false.
func FromOutcome(o cart.Outcome) (Notification, bool) {
	n := Notification{Kind: o.Kind, ProductID: o.ProductID}
	switch o.Kind {
	case enums.CartOutcomeAdded:
		n.Level = enums.NotificationLevelSuccess
		n.Message = fmt.Sprintf("Added %s to cart", displayName(o))
	case enums.CartOutcomeQuantityUpdated:
		n.Level = enums.NotificationLevelSuccess
		n.Message = fmt.Sprintf("Updated %s quantity", displayName(o))
	case enums.CartOutcomeRemoved:
		n.Level = enums.NotificationLevelInfo
		n.Message = fmt.Sprintf("Removed %s from cart", displayName(o))
	case enums.CartOutcomeSellingPriceUpdated:
		n.Level = enums.NotificationLevelInfo
		n.Message = fmt.Sprintf("Updated %s selling price", displayName(o))
	case enums.CartOutcomeCleared:
		n.Level = enums.NotificationLevelInfo
		n.Message = "Cart cleared"
	case enums.CartOutcomeSubmitted:
		n.Level = enums.NotificationLevelInfo
		n.Message = fmt.Sprintf("Ordered items removed, %d left in cart", o.Quantity)
	case enums.CartOutcomeRejectedCapacity:
		n.Level = enums.NotificationLevelWarning
		n.Message = fmt.Sprintf("Only %d items available", o.Available)
	default:
		return Notification{}, false
	}
	return n, true
}

func displayName(o cart.Outcome) string {
	if o.ProductName != "" {
		return o.ProductName
	}
	if o.ProductID != "" {
		return o.ProductID
	}
	return "item"
}
