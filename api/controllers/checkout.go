package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	cartcontrollers "github.com/angelmondragon/storefront/api/controllers/cart"
	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/internal/orders"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const (
	idempotencyHeader    = "Idempotency-Key"
	maxIdempotencyKeyLen = 128
)

type orderSubmitter interface {
	Submit(ctx context.Context, store orders.CartStore, idempotencyKey string) (*orders.OrderConfirmation, error)
}

// Checkout submits the session's cart as an order. Clients should send an
// Idempotency-Key so a retried checkout cannot create a second order; one is
// generated when absent.
func Checkout(carts cartcontrollers.Carts, submitter orderSubmitter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if carts == nil || submitter == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}
		key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
		if len(key) > maxIdempotencyKeyLen {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key too long"))
			return
		}
		if key == "" {
			key = uuid.NewString()
		}

		store, err := carts.Get(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "session required"))
			return
		}

		confirmation, err := submitter.Submit(r.Context(), store, key)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set(idempotencyHeader, key)
		responses.WriteSuccessStatus(w, http.StatusCreated, confirmation)
	}
}
