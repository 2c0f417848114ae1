package orders

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/internal/cart"
)

// CreateOrderRequest is the body sent to the remote order endpoint.
type CreateOrderRequest struct {
	Items []OrderLine `json:"items"`
}

type OrderLine struct {
	ProductID    string          `json:"product_id"`
	Quantity     int             `json:"quantity"`
	SellingPrice decimal.Decimal `json:"selling_price"`
}

// OrderConfirmation is what the remote API returns for a created order.
type OrderConfirmation struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// StockShortage describes a line that no longer fits the live stock.
type StockShortage struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

func requestFromLines(lines []cart.SubmissionLine) CreateOrderRequest {
	req := CreateOrderRequest{Items: make([]OrderLine, 0, len(lines))}
	for _, line := range lines {
		item := OrderLine{ProductID: line.ProductID, Quantity: line.Quantity}
		if line.SellingPrice != nil {
			item.SellingPrice = *line.SellingPrice
		}
		req.Items = append(req.Items, item)
	}
	return req
}
