package cart

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/notifications"
)

type ProductResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
}

type LineResponse struct {
	Product      ProductResponse  `json:"product"`
	Quantity     int              `json:"quantity"`
	SellingPrice *decimal.Decimal `json:"selling_price,omitempty"`
	Subtotal     decimal.Decimal  `json:"subtotal"`
}

type CartResponse struct {
	Items      []LineResponse  `json:"items"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	IsOpen     bool            `json:"is_open"`
}

// MutationResponse is returned by every cart operation.
type MutationResponse struct {
	Outcome string                       `json:"outcome"`
	Cart    CartResponse                 `json:"cart"`
	Notices []notifications.Notification `json:"notices"`
}

type ValidationResponse struct {
	Valid                bool     `json:"valid"`
	MissingSellingPrices []string `json:"missing_selling_prices"`
}

type SubmissionLineResponse struct {
	ProductID    string           `json:"product_id"`
	Quantity     int              `json:"quantity"`
	SellingPrice *decimal.Decimal `json:"selling_price"`
}

type SubmissionResponse struct {
	Items []SubmissionLineResponse `json:"items"`
}

func newCartResponse(agg cart.Aggregate) CartResponse {
	items := make([]LineResponse, 0, len(agg.Items))
	for _, line := range agg.Items {
		items = append(items, LineResponse{
			Product: ProductResponse{
				ID:            line.Product.ID,
				Name:          line.Product.Name,
				Price:         line.Product.Price,
				StockQuantity: line.Product.StockQuantity,
			},
			Quantity:     line.Quantity,
			SellingPrice: line.SellingPrice,
			Subtotal:     line.Subtotal,
		})
	}
	return CartResponse{
		Items:      items,
		TotalItems: agg.TotalItems,
		TotalPrice: agg.TotalPrice,
		IsOpen:     agg.IsOpen,
	}
}

func newSubmissionResponse(lines []cart.SubmissionLine) SubmissionResponse {
	items := make([]SubmissionLineResponse, 0, len(lines))
	for _, line := range lines {
		items = append(items, SubmissionLineResponse{
			ProductID:    line.ProductID,
			Quantity:     line.Quantity,
			SellingPrice: line.SellingPrice,
		})
	}
	return SubmissionResponse{Items: items}
}

func noticesOrEmpty(rec *notifications.Recorder) []notifications.Notification {
	if notices := rec.Notices(); notices != nil {
		return notices
	}
	return []notifications.Notification{}
}
