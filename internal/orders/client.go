package orders

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/remote"
)

const defaultOrdersPath = "/orders"

// Client creates orders on the remote API.
type Client struct {
	api  *remote.Client
	path string
}

func NewClient(api *remote.Client, path string) (*Client, error) {
	if api == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "remote api client required")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		path = defaultOrdersPath
	}
	return &Client{api: api, path: path}, nil
}

// CreateOrder posts the order once. The idempotency key lets the remote side
// drop duplicates if the shopper resubmits after a timeout.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest, idempotencyKey string) (*OrderConfirmation, error) {
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}
	resp, err := c.api.R(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Idempotency-Key", idempotencyKey).
		SetBody(req).
		Post(c.path)
	if err := c.api.Check(ctx, resp, err, "create order"); err != nil {
		return nil, err
	}

	var body struct {
		OrderConfirmation
		Data *OrderConfirmation `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode order confirmation")
	}
	confirmation := body.OrderConfirmation
	if body.Data != nil {
		confirmation = *body.Data
	}
	if confirmation.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order confirmation missing id")
	}
	return &confirmation, nil
}
