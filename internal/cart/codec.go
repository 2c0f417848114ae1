package cart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// snapshotVersion is written with every snapshot. Version 0 snapshots also
// carried total_items/total_price, which are ignored on load.
const snapshotVersion = 1

type snapshot struct {
	State   snapshotState `json:"state"`
	Version int           `json:"version"`
}

type snapshotState struct {
	Items []snapshotLine `json:"items"`
}

type snapshotLine struct {
	Product      snapshotProduct  `json:"product"`
	Quantity     int              `json:"quantity"`
	SellingPrice *decimal.Decimal `json:"selling_price,omitempty"`
}

type snapshotProduct struct {
	ID            flexibleID      `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
}

// flexibleID accepts both string and numeric product ids.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = flexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("product id: %w", err)
	}
	*f = flexibleID(n.String())
	return nil
}

// EncodeItems serializes the persisted part of the cart: the lines only.
func EncodeItems(items []Line) ([]byte, error) {
	out := snapshot{
		State:   snapshotState{Items: make([]snapshotLine, 0, len(items))},
		Version: snapshotVersion,
	}
	for _, line := range items {
		out.State.Items = append(out.State.Items, snapshotLine{
			Product: snapshotProduct{
				ID:            flexibleID(line.Product.ID),
				Name:          line.Product.Name,
				Price:         line.Product.Price,
				StockQuantity: line.Product.StockQuantity,
			},
			Quantity:     line.Quantity,
			SellingPrice: copyDecimalPtr(line.SellingPrice),
		})
	}
	return json.Marshal(out)
}

// DecodeItems parses a snapshot back into lines. Lines without an id, with a
// non-positive quantity, or breaking the stock cap are dropped. Repeated ids
// keep the first entry.
// Derived fields are left zero for the caller to recompute.
func DecodeItems(data []byte) ([]Line, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var in snapshot
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode cart snapshot: %w", err)
	}
	if in.Version > snapshotVersion {
		return nil, fmt.Errorf("unsupported cart snapshot version %d", in.Version)
	}

	seen := make(map[string]struct{}, len(in.State.Items))
	lines := make([]Line, 0, len(in.State.Items))
	for _, raw := range in.State.Items {
		id := string(raw.Product.ID)
		if id == "" || raw.Quantity < 1 {
			continue
		}
		if raw.Product.StockQuantity < 0 || raw.Quantity > raw.Product.StockQuantity {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		lines = append(lines, Line{
			Product: ProductRef{
				ID:            id,
				Name:          raw.Product.Name,
				Price:         raw.Product.Price,
				StockQuantity: raw.Product.StockQuantity,
			},
			Quantity:     raw.Quantity,
			SellingPrice: raw.SellingPrice,
		})
	}
	return lines, nil
}
