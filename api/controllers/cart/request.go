package cart

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/internal/cart"
)

// ProductPayload lets the UI send the product snapshot it already holds
// instead of having the server look it up.
type ProductPayload struct {
	ID            string          `json:"id" validate:"required"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price" validate:"gte=0"`
	StockQuantity int             `json:"stock_quantity" validate:"gte=0"`
}

func (p ProductPayload) toRef() cart.ProductRef {
	return cart.ProductRef{
		ID:            p.ID,
		Name:          p.Name,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
	}
}

// AddItemRequest adds quantity of a product. Quantity defaults to 1.
type AddItemRequest struct {
	ProductID    string           `json:"product_id" validate:"required_without=Product"`
	Product      *ProductPayload  `json:"product,omitempty"`
	Quantity     int              `json:"quantity" validate:"gte=0"`
	SellingPrice *decimal.Decimal `json:"selling_price,omitempty" validate:"omitempty,gt=0"`
}

// UpdateQuantityRequest sets a line's quantity. Zero or less removes the line.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type UpdateSellingPriceRequest struct {
	SellingPrice *decimal.Decimal `json:"selling_price" validate:"required"`
}
