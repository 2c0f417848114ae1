package cart

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/notifications"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// Carts resolves the cart store bound to a shopper session.
type Carts interface {
	Get(ctx context.Context, sessionID string) (*cart.Store, error)
}

// ProductLookup fetches the product snapshot a new line is built from.
type ProductLookup interface {
	GetProduct(ctx context.Context, productID string) (cart.ProductRef, error)
}

// CartFetch returns the current aggregate with derived totals.
func CartFetch(carts Carts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionStore(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(store.Snapshot()))
	}
}

// CartClear empties the cart.
func CartClear(carts Carts, logg *logger.Logger) http.HandlerFunc {
	return mutate(carts, logg, func(ctx context.Context, store *cart.Store, _ *http.Request) (cart.Outcome, error) {
		return store.Clear(ctx), nil
	})
}

// CartAddItem merges a product into the cart, looking the product up in the
// catalog unless the request carries its snapshot.
func CartAddItem(carts Carts, catalog ProductLookup, logg *logger.Logger) http.HandlerFunc {
	return mutate(carts, logg, func(ctx context.Context, store *cart.Store, r *http.Request) (cart.Outcome, error) {
		var payload AddItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return cart.Outcome{}, err
		}
		product, err := resolveProduct(ctx, catalog, payload)
		if err != nil {
			return cart.Outcome{}, err
		}
		return store.AddItem(ctx, product, payload.Quantity, payload.SellingPrice), nil
	})
}

// CartUpdateQuantity sets a line's quantity; zero or less removes the line.
func CartUpdateQuantity(carts Carts, logg *logger.Logger) http.HandlerFunc {
	return mutate(carts, logg, func(ctx context.Context, store *cart.Store, r *http.Request) (cart.Outcome, error) {
		productID, err := productIDParam(r)
		if err != nil {
			return cart.Outcome{}, err
		}
		var payload UpdateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return cart.Outcome{}, err
		}
		return store.UpdateQuantity(ctx, productID, *payload.Quantity), nil
	})
}

// CartUpdateSellingPrice sets the negotiated price of a line.
func CartUpdateSellingPrice(carts Carts, logg *logger.Logger) http.HandlerFunc {
	return mutate(carts, logg, func(ctx context.Context, store *cart.Store, r *http.Request) (cart.Outcome, error) {
		productID, err := productIDParam(r)
		if err != nil {
			return cart.Outcome{}, err
		}
		var payload UpdateSellingPriceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return cart.Outcome{}, err
		}
		return store.UpdateSellingPrice(ctx, productID, *payload.SellingPrice), nil
	})
}

func CartRemoveItem(carts Carts, logg *logger.Logger) http.HandlerFunc {
	return mutate(carts, logg, func(ctx context.Context, store *cart.Store, r *http.Request) (cart.Outcome, error) {
		productID, err := productIDParam(r)
		if err != nil {
			return cart.Outcome{}, err
		}
		return store.RemoveItem(ctx, productID), nil
	})
}

func CartOpen(carts Carts, logg *logger.Logger) http.HandlerFunc {
	return mutate(carts, logg, func(ctx context.Context, store *cart.Store, _ *http.Request) (cart.Outcome, error) {
		return store.Open(ctx), nil
	})
}

func CartClose(carts Carts, logg *logger.Logger) http.HandlerFunc {
	return mutate(carts, logg, func(ctx context.Context, store *cart.Store, _ *http.Request) (cart.Outcome, error) {
		return store.Close(ctx), nil
	})
}

func CartToggle(carts Carts, logg *logger.Logger) http.HandlerFunc {
	return mutate(carts, logg, func(ctx context.Context, store *cart.Store, _ *http.Request) (cart.Outcome, error) {
		return store.Toggle(ctx), nil
	})
}

// CartValidateSellingPrices reports whether the cart passes the selling price
// gate and which lines fail it.
func CartValidateSellingPrices(carts Carts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionStore(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		_, missing := store.SubmissionSnapshot()
		if missing == nil {
			missing = []string{}
		}
		responses.WriteSuccess(w, ValidationResponse{
			Valid:                len(missing) == 0,
			MissingSellingPrices: missing,
		})
	}
}

// CartSubmission projects the cart into the order submission shape.
func CartSubmission(carts Carts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionStore(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSubmissionResponse(store.ItemsWithSellingPrices()))
	}
}

type operation func(ctx context.Context, store *cart.Store, r *http.Request) (cart.Outcome, error)

// mutate runs op against the session's store and renders the outcome with
// the notices raised while it ran. A capacity rejection answers 409 and
// still carries the unchanged cart.
func mutate(carts Carts, logg *logger.Logger, op operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionStore(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx, rec := notifications.WithRecorder(r.Context())
		outcome, err := op(ctx, store, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		body := MutationResponse{
			Outcome: outcome.Kind.String(),
			Cart:    newCartResponse(store.Snapshot()),
			Notices: noticesOrEmpty(rec),
		}
		if outcome.Rejected() {
			responses.WriteError(r.Context(), logg, w, capacityError(outcome, body))
			return
		}
		responses.WriteSuccess(w, body)
	}
}

func capacityError(outcome cart.Outcome, body MutationResponse) error {
	return pkgerrors.Newf(pkgerrors.CodeCapacity, "Only %d items available", outcome.Available).
		WithDetails(map[string]any{
			"product_id": outcome.ProductID,
			"requested":  outcome.Quantity,
			"available":  outcome.Available,
			"cart":       body.Cart,
			"notices":    body.Notices,
		})
}

func sessionStore(r *http.Request, carts Carts) (*cart.Store, error) {
	if carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart registry unavailable")
	}
	store, err := carts.Get(r.Context(), middleware.SessionIDFromContext(r.Context()))
	if errors.Is(err, cart.ErrSessionRequired) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "session required")
	}
	return store, err
}

func productIDParam(r *http.Request) (string, error) {
	productID, err := validators.ProductID(chi.URLParam(r, "productId"))
	if err != nil {
		return "", err
	}
	if productID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return productID, nil
}

func resolveProduct(ctx context.Context, catalog ProductLookup, payload AddItemRequest) (cart.ProductRef, error) {
	productID, err := validators.ProductID(payload.ProductID)
	if err != nil {
		return cart.ProductRef{}, err
	}
	if payload.Product != nil {
		inline := payload.Product.toRef()
		if inline.ID, err = validators.ProductID(inline.ID); err != nil {
			return cart.ProductRef{}, err
		}
		if productID != "" && productID != inline.ID {
			return cart.ProductRef{}, pkgerrors.New(pkgerrors.CodeValidation, "product id mismatch").
				WithDetails(map[string]string{"product_id": productID, "product.id": inline.ID})
		}
		return inline, nil
	}
	if catalog == nil {
		return cart.ProductRef{}, pkgerrors.New(pkgerrors.CodeDependency, "catalog unavailable")
	}
	return catalog.GetProduct(ctx, productID)
}
