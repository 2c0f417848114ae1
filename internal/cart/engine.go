package cart

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/pkg/enums"
)

// Engine holds the mutation rules for an Aggregate. It has no state and no
// storage concerns; Store wraps it with locking and persistence.
type Engine struct{}

// AddItem merges quantity into the line for product.ID, or appends a new line.
// The resulting quantity may not exceed product.StockQuantity. A non-nil
// sellingPrice overwrites the line's selling price; nil keeps the prior value.
func (Engine) AddItem(agg *Aggregate, product ProductRef, quantity int, sellingPrice *decimal.Decimal) Outcome {
	if product.ID == "" {
		return noop("")
	}
	if quantity <= 0 {
		quantity = 1
	}

	idx := agg.indexOf(product.ID)
	if idx >= 0 {
		next := agg.Items[idx].Quantity + quantity
		if next > product.StockQuantity {
			return rejectCapacity(product, next)
		}
		line := &agg.Items[idx]
		line.Product = product
		line.Quantity = next
		if sellingPrice != nil {
			line.SellingPrice = copyDecimalPtr(sellingPrice)
		}
		agg.recalculate()
		return Outcome{
			Kind:        enums.CartOutcomeQuantityUpdated,
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    next,
		}
	}

	if quantity > product.StockQuantity {
		return rejectCapacity(product, quantity)
	}
	agg.Items = append(agg.Items, Line{
		Product:      product,
		Quantity:     quantity,
		SellingPrice: copyDecimalPtr(sellingPrice),
	})
	agg.recalculate()
	return Outcome{
		Kind:        enums.CartOutcomeAdded,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    quantity,
	}
}

// RemoveItem deletes the line for productID. Absent ids are a no-op.
func (Engine) RemoveItem(agg *Aggregate, productID string) Outcome {
	idx := agg.indexOf(productID)
	if idx < 0 {
		return noop(productID)
	}
	removed := agg.Items[idx]
	agg.Items = append(agg.Items[:idx], agg.Items[idx+1:]...)
	agg.recalculate()
	return Outcome{
		Kind:        enums.CartOutcomeRemoved,
		ProductID:   removed.Product.ID,
		ProductName: removed.Product.Name,
	}
}

// UpdateQuantity sets the quantity of an existing line. quantity <= 0 removes it.
func (e Engine) UpdateQuantity(agg *Aggregate, productID string, quantity int) Outcome {
	if quantity <= 0 {
		return e.RemoveItem(agg, productID)
	}
	idx := agg.indexOf(productID)
	if idx < 0 {
		return noop(productID)
	}
	line := &agg.Items[idx]
	if quantity > line.Product.StockQuantity {
		return rejectCapacity(line.Product, quantity)
	}
	line.Quantity = quantity
	agg.recalculate()
	return Outcome{
		Kind:        enums.CartOutcomeQuantityUpdated,
		ProductID:   line.Product.ID,
		ProductName: line.Product.Name,
		Quantity:    quantity,
	}
}

// UpdateSellingPrice sets the negotiated price of an existing line. The
// subtotal stays derived from the catalog price.
func (Engine) UpdateSellingPrice(agg *Aggregate, productID string, sellingPrice decimal.Decimal) Outcome {
	idx := agg.indexOf(productID)
	if idx < 0 {
		return noop(productID)
	}
	line := &agg.Items[idx]
	line.SellingPrice = &sellingPrice
	return Outcome{
		Kind:        enums.CartOutcomeSellingPriceUpdated,
		ProductID:   line.Product.ID,
		ProductName: line.Product.Name,
		Quantity:    line.Quantity,
	}
}

// Clear empties the cart and zeroes the totals.
func (Engine) Clear(agg *Aggregate) Outcome {
	agg.Items = nil
	agg.recalculate()
	return Outcome{Kind: enums.CartOutcomeCleared}
}

// ReleaseSubmitted subtracts each submitted quantity from its line, removing
// lines that reach zero. An emptied cart reports cleared.
func (Engine) ReleaseSubmitted(agg *Aggregate, submitted []SubmissionLine) Outcome {
	released := 0
	for _, sub := range submitted {
		idx := agg.indexOf(sub.ProductID)
		if idx < 0 || sub.Quantity <= 0 {
			continue
		}
		released++
		if agg.Items[idx].Quantity <= sub.Quantity {
			agg.Items = append(agg.Items[:idx], agg.Items[idx+1:]...)
			continue
		}
		agg.Items[idx].Quantity -= sub.Quantity
	}
	if released == 0 {
		return noop("")
	}
	agg.recalculate()
	if len(agg.Items) == 0 {
		return Outcome{Kind: enums.CartOutcomeCleared}
	}
	return Outcome{Kind: enums.CartOutcomeSubmitted, Quantity: agg.TotalItems}
}

func (Engine) Open(agg *Aggregate) Outcome {
	return setOpen(agg, true)
}

func (Engine) Close(agg *Aggregate) Outcome {
	return setOpen(agg, false)
}

func (Engine) Toggle(agg *Aggregate) Outcome {
	return setOpen(agg, !agg.IsOpen)
}

// ValidateSellingPrices reports whether every line carries a selling price > 0.
// An empty cart passes.
func (Engine) ValidateSellingPrices(agg Aggregate) bool {
	for _, line := range agg.Items {
		if line.SellingPrice == nil || !line.SellingPrice.IsPositive() {
			return false
		}
	}
	return true
}

// MissingSellingPrices lists the product ids failing the selling price gate.
func (Engine) MissingSellingPrices(agg Aggregate) []string {
	var missing []string
	for _, line := range agg.Items {
		if line.SellingPrice == nil || !line.SellingPrice.IsPositive() {
			missing = append(missing, line.Product.ID)
		}
	}
	return missing
}

// ItemsWithSellingPrices projects the lines into the order submission shape.
func (Engine) ItemsWithSellingPrices(agg Aggregate) []SubmissionLine {
	out := make([]SubmissionLine, 0, len(agg.Items))
	for _, line := range agg.Items {
		out = append(out, SubmissionLine{
			ProductID:    line.Product.ID,
			Quantity:     line.Quantity,
			SellingPrice: copyDecimalPtr(line.SellingPrice),
		})
	}
	return out
}

func setOpen(agg *Aggregate, open bool) Outcome {
	agg.IsOpen = open
	return Outcome{Kind: enums.CartOutcomeVisibilityChanged, IsOpen: open}
}

func rejectCapacity(product ProductRef, requested int) Outcome {
	return Outcome{
		Kind:        enums.CartOutcomeRejectedCapacity,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    requested,
		Available:   product.StockQuantity,
	}
}
