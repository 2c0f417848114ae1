package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const (
	maxSearchQueryLen = 200
	maxSearchLimit    = 100
)

type productSearcher interface {
	Search(ctx context.Context, sessionID, query string, limit int) ([]cart.ProductRef, error)
}

type productGetter interface {
	GetProduct(ctx context.Context, productID string) (cart.ProductRef, error)
}

type productResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
}

func newProductResponse(p cart.ProductRef) productResponse {
	return productResponse{ID: p.ID, Name: p.Name, Price: p.Price, StockQuantity: p.StockQuantity}
}

// ProductSearch runs a debounced, latest-wins catalog search for the session.
// A search replaced by a newer one answers 409 so the UI can drop it.
func ProductSearch(searcher productSearcher, defaultLimit int, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if searcher == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog search unavailable"))
			return
		}
		params, err := validators.ParseSearch(r, maxSearchQueryLen, defaultLimit, maxSearchLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if params.Query == "" {
			responses.WriteSuccess(w, map[string]any{"products": []productResponse{}})
			return
		}

		found, err := searcher.Search(r.Context(), middleware.SessionIDFromContext(r.Context()), params.Query, params.Limit)
		if errors.Is(err, catalog.ErrSuperseded) {
			responses.WriteError(r.Context(), nil, w, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "search superseded"))
			return
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		products := make([]productResponse, 0, len(found))
		for _, p := range found {
			products = append(products, newProductResponse(p))
		}
		responses.WriteSuccess(w, map[string]any{"products": products})
	}
}

func ProductFetch(products productGetter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if products == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}
		productID, err := validators.ProductID(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if productID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product id is required"))
			return
		}
		product, err := products.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newProductResponse(product))
	}
}
