package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/angelmondragon/storefront/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/remote"
)

const (
	productsPath      = "/products"
	productPath       = "/products/{productId}"
	defaultSearchSize = 20
	maxSearchSize     = 100
)

// Client reads products from the remote catalog. It never writes.
type Client struct {
	api          *remote.Client
	group        singleflight.Group
	defaultLimit int
}

func NewClient(api *remote.Client, defaultLimit int) (*Client, error) {
	if api == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "remote api client required")
	}
	if defaultLimit <= 0 {
		defaultLimit = defaultSearchSize
	}
	return &Client{api: api, defaultLimit: defaultLimit}, nil
}

// GetProduct fetches the current product snapshot. Concurrent lookups of the
// same id share one request, which runs detached from any single caller and
// is bounded by the remote client timeout.
func (c *Client) GetProduct(ctx context.Context, productID string) (cart.ProductRef, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return cart.ProductRef{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(productID, func() (any, error) {
		return c.fetchProduct(shared, productID)
	})
	select {
	case <-ctx.Done():
		return cart.ProductRef{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return cart.ProductRef{}, res.Err
		}
		return res.Val.(cart.ProductRef), nil
	}
}

func (c *Client) fetchProduct(ctx context.Context, productID string) (cart.ProductRef, error) {
	var body remoteProduct
	resp, err := c.api.R(ctx).
		SetPathParam("productId", productID).
		SetResult(&body).
		Get(productPath)
	if err := c.api.Check(ctx, resp, err, "get product"); err != nil {
		return cart.ProductRef{}, err
	}
	return body.toRef()
}

// Search returns products matching query, at most limit of them.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]cart.ProductRef, error) {
	query = strings.TrimSpace(query)
	if limit <= 0 {
		limit = c.defaultLimit
	}
	if limit > maxSearchSize {
		limit = maxSearchSize
	}

	resp, err := c.api.R(ctx).
		SetQueryParams(map[string]string{
			"search": query,
			"limit":  strconv.Itoa(limit),
		}).
		Get(productsPath)
	if err := c.api.Check(ctx, resp, err, "search products"); err != nil {
		return nil, err
	}

	items, err := decodeProductList(resp.Body())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode product search")
	}
	out := make([]cart.ProductRef, 0, len(items))
	for _, item := range items {
		ref, err := item.toRef()
		if err != nil {
			continue
		}
		out = append(out, ref)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type remoteProduct struct {
	ID            json.RawMessage `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
}

func (p remoteProduct) toRef() (cart.ProductRef, error) {
	id := strings.Trim(strings.TrimSpace(string(p.ID)), `"`)
	if id == "" || id == "null" {
		return cart.ProductRef{}, pkgerrors.New(pkgerrors.CodeDependency, "catalog returned a product without id")
	}
	stock := p.StockQuantity
	if stock < 0 {
		stock = 0
	}
	return cart.ProductRef{
		ID:            id,
		Name:          p.Name,
		Price:         p.Price,
		StockQuantity: stock,
	}, nil
}

// decodeProductList accepts a bare array or a {"data": [...]} envelope.
func decodeProductList(raw []byte) ([]remoteProduct, error) {
	raw = bytes.TrimSpace(raw)
	var items []remoteProduct
	if len(raw) > 0 && raw[0] == '[' {
		err := json.Unmarshal(raw, &items)
		return items, err
	}
	var envelope struct {
		Data []remoteProduct `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}
