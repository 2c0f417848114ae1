package orders

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/storefront/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const stockCheckConcurrency = 4

type productLookup interface {
	GetProduct(ctx context.Context, productID string) (cart.ProductRef, error)
}

type orderCreator interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest, idempotencyKey string) (*OrderConfirmation, error)
}

// CartStore is the part of cart.Store the submitter needs.
type CartStore interface {
	SessionID() string
	SubmissionSnapshot() ([]cart.SubmissionLine, []string)
	ReleaseSubmitted(ctx context.Context, submitted []cart.SubmissionLine) cart.Outcome
}

// Submitter turns a shopper's cart into a remote order.
type Submitter struct {
	catalog productLookup
	orders  orderCreator
	logg    *logger.Logger
}

func NewSubmitter(catalog productLookup, orders orderCreator, logg *logger.Logger) (*Submitter, error) {
	if catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog client required")
	}
	if orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders client required")
	}
	return &Submitter{catalog: catalog, orders: orders, logg: logg}, nil
}

// Submit works on one snapshot of the cart: it gates on selling prices,
// re-checks every line against live stock, creates the order and then removes
// exactly the ordered quantities. The cart is left untouched on any failure.
func (s *Submitter) Submit(ctx context.Context, store CartStore, idempotencyKey string) (*OrderConfirmation, error) {
	ctx = s.logg.WithSessionID(ctx, store.SessionID())

	lines, missing := store.SubmissionSnapshot()
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "every item needs a selling price greater than zero").
			WithDetails(map[string]any{"missing_selling_prices": missing})
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	shortages, err := s.checkStock(ctx, lines)
	if err != nil {
		return nil, err
	}
	if len(shortages) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "some items are no longer available in the requested quantity").
			WithDetails(map[string]any{"shortages": shortages})
	}

	confirmation, err := s.orders.CreateOrder(ctx, requestFromLines(lines), idempotencyKey)
	if err != nil {
		s.logg.Error(ctx, "order submission failed", err)
		return nil, err
	}

	store.ReleaseSubmitted(ctx, lines)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":     confirmation.ID,
		"order_status": confirmation.Status,
		"lines":        len(lines),
	}), "order submitted")
	return confirmation, nil
}

// checkStock fetches every product live; the cart's own stock snapshot may be stale.
func (s *Submitter) checkStock(ctx context.Context, lines []cart.SubmissionLine) ([]StockShortage, error) {
	live := make([]cart.ProductRef, len(lines))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(stockCheckConcurrency)
	for i, line := range lines {
		group.Go(func() error {
			ref, err := s.catalog.GetProduct(gctx, line.ProductID)
			if err != nil {
				if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
					live[i] = cart.ProductRef{ID: line.ProductID}
					return nil
				}
				return err
			}
			live[i] = ref
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var shortages []StockShortage
	for i, line := range lines {
		if line.Quantity > live[i].StockQuantity {
			shortages = append(shortages, StockShortage{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: live[i].StockQuantity,
			})
		}
	}
	return shortages, nil
}
