package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/notifications"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/storage"
)

type stubCatalog map[string]cart.ProductRef

func (s stubCatalog) GetProduct(_ context.Context, id string) (cart.ProductRef, error) {
	p, ok := s[id]
	if !ok {
		return cart.ProductRef{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return p, nil
}

type mutationEnvelope struct {
	Data struct {
		Outcome string `json:"outcome"`
		Cart    struct {
			Items []struct {
				Product struct {
					ID string `json:"id"`
				} `json:"product"`
				Quantity     int              `json:"quantity"`
				SellingPrice *decimal.Decimal `json:"selling_price"`
				Subtotal     decimal.Decimal  `json:"subtotal"`
			} `json:"items"`
			TotalItems int             `json:"total_items"`
			TotalPrice decimal.Decimal `json:"total_price"`
			IsOpen     bool            `json:"is_open"`
		} `json:"cart"`
		Notices []notifications.Notification `json:"notices"`
	} `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func newTestRouter(t *testing.T, sessionID string) (http.Handler, *cart.Registry) {
	t.Helper()
	registry := cart.NewRegistry(cart.RegistryParams{
		Storage:  storage.NewMemory(),
		Notifier: notifications.ContextRecorder{},
	})
	catalog := stubCatalog{
		"p-1": {ID: "p-1", Name: "Widget", Price: decimal.NewFromInt(100), StockQuantity: 2},
		"p-2": {ID: "p-2", Name: "Gadget", Price: decimal.RequireFromString("12.50"), StockQuantity: 10},
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if sessionID != "" {
				req = req.WithContext(middleware.WithSessionID(req.Context(), sessionID))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/cart", CartFetch(registry, nil))
	r.Delete("/cart", CartClear(registry, nil))
	r.Post("/cart/items", CartAddItem(registry, catalog, nil))
	r.Patch("/cart/items/{productId}", CartUpdateQuantity(registry, nil))
	r.Put("/cart/items/{productId}/selling-price", CartUpdateSellingPrice(registry, nil))
	r.Delete("/cart/items/{productId}", CartRemoveItem(registry, nil))
	r.Post("/cart/open", CartOpen(registry, nil))
	r.Post("/cart/close", CartClose(registry, nil))
	r.Post("/cart/toggle", CartToggle(registry, nil))
	r.Get("/cart/selling-prices/validate", CartValidateSellingPrices(registry, nil))
	r.Get("/cart/submission", CartSubmission(registry, nil))
	return r, registry
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeMutation(t *testing.T, rec *httptest.ResponseRecorder) mutationEnvelope {
	t.Helper()
	var env mutationEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestAddItemUntilStockRunsOut(t *testing.T) {
	h, _ := newTestRouter(t, "sess-1")

	rec := do(t, h, http.MethodPost, "/cart/items", `{"product_id":"p-1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decodeMutation(t, rec)
	assert.Equal(t, "added", env.Data.Outcome)
	assert.Equal(t, 1, env.Data.Cart.TotalItems)
	assert.True(t, env.Data.Cart.TotalPrice.Equal(decimal.NewFromInt(100)))
	require.Len(t, env.Data.Notices, 1)
	assert.Equal(t, "Added Widget to cart", env.Data.Notices[0].Message)

	rec = do(t, h, http.MethodPost, "/cart/items", `{"product_id":"p-1","quantity":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env = decodeMutation(t, rec)
	assert.Equal(t, "quantity_updated", env.Data.Outcome)
	assert.Equal(t, 2, env.Data.Cart.TotalItems)
	assert.True(t, env.Data.Cart.TotalPrice.Equal(decimal.NewFromInt(200)))

	rec = do(t, h, http.MethodPost, "/cart/items", `{"product_id":"p-1"}`)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	var failure errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &failure))
	assert.Equal(t, string(pkgerrors.CodeCapacity), failure.Error.Code)
	assert.Equal(t, "Only 2 items available", failure.Error.Message)
	assert.Equal(t, float64(2), failure.Error.Details["available"])
	assert.Equal(t, float64(3), failure.Error.Details["requested"])
	cartDetails, ok := failure.Error.Details["cart"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2), cartDetails["total_items"])
	notices, ok := failure.Error.Details["notices"].([]any)
	require.True(t, ok)
	require.Len(t, notices, 1)
	assert.Equal(t, "warning", notices[0].(map[string]any)["level"])
}

func TestAddItemWithInlineProduct(t *testing.T) {
	h, _ := newTestRouter(t, "sess-1")

	body := `{"product":{"id":"p-9","name":"Inline","price":"4.25","stock_quantity":5},"quantity":3,"selling_price":"5"}`
	rec := do(t, h, http.MethodPost, "/cart/items", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decodeMutation(t, rec)
	require.Len(t, env.Data.Cart.Items, 1)
	line := env.Data.Cart.Items[0]
	assert.Equal(t, "p-9", line.Product.ID)
	assert.Equal(t, 3, line.Quantity)
	assert.True(t, line.Subtotal.Equal(decimal.RequireFromString("12.75")))
	require.NotNil(t, line.SellingPrice)
	assert.True(t, line.SellingPrice.Equal(decimal.NewFromInt(5)))
}

func TestAddItemValidation(t *testing.T) {
	h, _ := newTestRouter(t, "sess-1")

	cases := map[string]struct {
		body   string
		status int
	}{
		"missing product":       {body: `{"quantity":1}`, status: http.StatusBadRequest},
		"non positive price":    {body: `{"product_id":"p-1","selling_price":"0"}`, status: http.StatusBadRequest},
		"mismatched inline id":  {body: `{"product_id":"p-1","product":{"id":"p-2","price":"1","stock_quantity":1}}`, status: http.StatusBadRequest},
		"unknown catalog entry": {body: `{"product_id":"nope"}`, status: http.StatusNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/cart/items", tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestOverlongProductIDIsRejectedNotTruncated(t *testing.T) {
	h, _ := newTestRouter(t, "sess-1")
	longID := strings.Repeat("a", 128)

	body := `{"product":{"id":"` + longID + `","name":"Long","price":"2","stock_quantity":5},"quantity":1}`
	rec := do(t, h, http.MethodPost, "/cart/items", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodDelete, "/cart/items/"+longID+"-other", "")
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	var failure errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &failure))
	assert.Equal(t, string(pkgerrors.CodeValidation), failure.Error.Code)

	rec = do(t, h, http.MethodPatch, "/cart/items/"+longID+"b", `{"quantity":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	body = `{"product":{"id":"` + longID + `-variant","name":"Other","price":"9","stock_quantity":5},"quantity":1}`
	rec = do(t, h, http.MethodPost, "/cart/items", body)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched struct {
		Data struct {
			Items []struct {
				Product struct {
					ID string `json:"id"`
				} `json:"product"`
				Quantity int `json:"quantity"`
			} `json:"items"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched), rec.Body.String())
	require.Len(t, fetched.Data.Items, 1)
	assert.Equal(t, longID, fetched.Data.Items[0].Product.ID)
	assert.Equal(t, 1, fetched.Data.Items[0].Quantity)
}

func TestUpdateQuantityAndRemove(t *testing.T) {
	h, _ := newTestRouter(t, "sess-1")
	do(t, h, http.MethodPost, "/cart/items", `{"product_id":"p-2","quantity":2}`)

	rec := do(t, h, http.MethodPatch, "/cart/items/p-2", `{"quantity":5}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decodeMutation(t, rec)
	assert.Equal(t, 5, env.Data.Cart.TotalItems)
	assert.True(t, env.Data.Cart.TotalPrice.Equal(decimal.RequireFromString("62.5")))

	rec = do(t, h, http.MethodPatch, "/cart/items/p-2", `{"quantity":11}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPatch, "/cart/items/p-2", `{"quantity":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	env = decodeMutation(t, rec)
	assert.Equal(t, "removed", env.Data.Outcome)
	assert.Empty(t, env.Data.Cart.Items)

	rec = do(t, h, http.MethodDelete, "/cart/items/p-2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	env = decodeMutation(t, rec)
	assert.Equal(t, "noop", env.Data.Outcome)
	assert.Empty(t, env.Data.Notices)

	rec = do(t, h, http.MethodPatch, "/cart/items/p-2", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSellingPriceGateAndSubmission(t *testing.T) {
	h, _ := newTestRouter(t, "sess-1")
	do(t, h, http.MethodPost, "/cart/items", `{"product_id":"p-1"}`)
	do(t, h, http.MethodPost, "/cart/items", `{"product_id":"p-2","selling_price":"15"}`)

	rec := do(t, h, http.MethodGet, "/cart/selling-prices/validate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var validation struct {
		Data ValidationResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &validation))
	assert.False(t, validation.Data.Valid)
	assert.Equal(t, []string{"p-1"}, validation.Data.MissingSellingPrices)

	rec = do(t, h, http.MethodPut, "/cart/items/p-1/selling-price", `{"selling_price":"120"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decodeMutation(t, rec)
	assert.Equal(t, "selling_price_updated", env.Data.Outcome)
	assert.True(t, env.Data.Cart.TotalPrice.Equal(decimal.RequireFromString("112.5")))

	rec = do(t, h, http.MethodGet, "/cart/selling-prices/validate", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &validation))
	assert.True(t, validation.Data.Valid)
	assert.Empty(t, validation.Data.MissingSellingPrices)

	rec = do(t, h, http.MethodGet, "/cart/submission", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var submission struct {
		Data SubmissionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submission))
	require.Len(t, submission.Data.Items, 2)
	assert.Equal(t, "p-1", submission.Data.Items[0].ProductID)
	assert.True(t, submission.Data.Items[0].SellingPrice.Equal(decimal.NewFromInt(120)))
}

func TestVisibilityAndClear(t *testing.T) {
	h, registry := newTestRouter(t, "sess-1")
	do(t, h, http.MethodPost, "/cart/items", `{"product_id":"p-2"}`)

	rec := do(t, h, http.MethodPost, "/cart/toggle", "")
	env := decodeMutation(t, rec)
	assert.True(t, env.Data.Cart.IsOpen)
	assert.Empty(t, env.Data.Notices)

	rec = do(t, h, http.MethodPost, "/cart/close", "")
	assert.False(t, decodeMutation(t, rec).Data.Cart.IsOpen)
	rec = do(t, h, http.MethodPost, "/cart/open", "")
	assert.True(t, decodeMutation(t, rec).Data.Cart.IsOpen)

	rec = do(t, h, http.MethodDelete, "/cart", "")
	env = decodeMutation(t, rec)
	assert.Equal(t, "cleared", env.Data.Outcome)
	assert.Equal(t, 0, env.Data.Cart.TotalItems)
	assert.True(t, env.Data.Cart.IsOpen)

	store, err := registry.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Empty(t, store.Snapshot().Items)

	rec = do(t, h, http.MethodGet, "/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched struct {
		Data CartResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.NotNil(t, fetched.Data.Items)
	assert.True(t, fetched.Data.IsOpen)
}

func TestSessionsAreIsolated(t *testing.T) {
	h, registry := newTestRouter(t, "sess-a")
	do(t, h, http.MethodPost, "/cart/items", `{"product_id":"p-2"}`)

	other, err := registry.Get(context.Background(), "sess-b")
	require.NoError(t, err)
	assert.Empty(t, other.Snapshot().Items)
}

func TestMissingSessionIsUnauthorized(t *testing.T) {
	h, _ := newTestRouter(t, "")
	rec := do(t, h, http.MethodGet, "/cart", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
