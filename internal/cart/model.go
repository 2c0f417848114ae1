package cart

import (
	"github.com/shopspring/decimal"
)

// ProductRef is the catalog snapshot a cart line is built from. It is never
// re-read from the catalog once captured.
type ProductRef struct {
	ID            string
	Name          string
	Price         decimal.Decimal
	StockQuantity int
}

// Line is one product/quantity pairing inside the cart.
type Line struct {
	Product      ProductRef
	Quantity     int
	SellingPrice *decimal.Decimal
	Subtotal     decimal.Decimal
}

// Aggregate is the full in-progress order draft.
type Aggregate struct {
	Items      []Line
	TotalItems int
	TotalPrice decimal.Decimal
	IsOpen     bool
}

// SubmissionLine is the minimal per-line shape accepted by order creation.
type SubmissionLine struct {
	ProductID    string
	Quantity     int
	SellingPrice *decimal.Decimal
}

func (l *Line) recalculate() {
	l.Subtotal = l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (a *Aggregate) recalculate() {
	totalItems := 0
	totalPrice := decimal.Zero
	for i := range a.Items {
		a.Items[i].recalculate()
		totalItems += a.Items[i].Quantity
		totalPrice = totalPrice.Add(a.Items[i].Subtotal)
	}
	a.TotalItems = totalItems
	a.TotalPrice = totalPrice
}

func (a *Aggregate) indexOf(productID string) int {
	for i := range a.Items {
		if a.Items[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy that shares no memory with the receiver.
func (a Aggregate) Clone() Aggregate {
	out := a
	if a.Items != nil {
		out.Items = make([]Line, len(a.Items))
		for i, line := range a.Items {
			line.SellingPrice = copyDecimalPtr(line.SellingPrice)
			out.Items[i] = line
		}
	}
	return out
}

// Line returns the line for productID, if present.
func (a Aggregate) Line(productID string) (Line, bool) {
	idx := a.indexOf(productID)
	if idx < 0 {
		return Line{}, false
	}
	return a.Items[idx], true
}

func copyDecimalPtr(src *decimal.Decimal) *decimal.Decimal {
	if src == nil {
		return nil
	}
	val := *src
	return &val
}
