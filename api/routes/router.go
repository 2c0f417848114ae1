package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront/api/controllers"
	cartcontrollers "github.com/angelmondragon/storefront/api/controllers/cart"
	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/orders"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/logger"
)

type productCatalog interface {
	GetProduct(ctx context.Context, productID string) (cart.ProductRef, error)
}

type productSearcher interface {
	Search(ctx context.Context, sessionID, query string, limit int) ([]cart.ProductRef, error)
}

type orderSubmitter interface {
	Submit(ctx context.Context, store orders.CartStore, idempotencyKey string) (*orders.OrderConfirmation, error)
}

type rateLimiter interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Deps carries everything the HTTP surface is wired to. Optional members may
// be nil: RateLimiter disables throttling, Gatherer hides /metrics.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Carts       cartcontrollers.Carts
	Catalog     productCatalog
	Searcher    productSearcher
	Submitter   orderSubmitter
	RateLimiter rateLimiter
	Gatherer    prometheus.Gatherer
	Readiness   map[string]controllers.Pinger
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	limiter := deps.RateLimiter
	sessionPolicy := middleware.NewRateLimitPolicy("session", cfg.RateLimit.Window, cfg.RateLimit.SessionIPLimit)
	checkoutPolicy := middleware.NewRateLimitPolicy("checkout", cfg.RateLimit.Window, cfg.RateLimit.CheckoutIPLimit)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness))
	})

	if cfg.Metrics.Enabled && deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.RateLimit(sessionPolicy, limiter, logg)).Post("/session", controllers.SessionCreate(cfg.Session, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(cfg.Session, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.CartFetch(deps.Carts, logg))
				r.Delete("/", cartcontrollers.CartClear(deps.Carts, logg))
				r.Post("/items", cartcontrollers.CartAddItem(deps.Carts, deps.Catalog, logg))
				r.Patch("/items/{productId}", cartcontrollers.CartUpdateQuantity(deps.Carts, logg))
				r.Put("/items/{productId}/selling-price", cartcontrollers.CartUpdateSellingPrice(deps.Carts, logg))
				r.Delete("/items/{productId}", cartcontrollers.CartRemoveItem(deps.Carts, logg))
				r.Post("/open", cartcontrollers.CartOpen(deps.Carts, logg))
				r.Post("/close", cartcontrollers.CartClose(deps.Carts, logg))
				r.Post("/toggle", cartcontrollers.CartToggle(deps.Carts, logg))
				r.Get("/selling-prices/validate", cartcontrollers.CartValidateSellingPrices(deps.Carts, logg))
				r.Get("/submission", cartcontrollers.CartSubmission(deps.Carts, logg))
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/search", controllers.ProductSearch(deps.Searcher, cfg.Catalog.SearchLimit, logg))
				r.Get("/{productId}", controllers.ProductFetch(deps.Catalog, logg))
			})

			r.With(middleware.RateLimit(checkoutPolicy, limiter, logg)).Post("/checkout", controllers.Checkout(deps.Carts, deps.Submitter, logg))
		})
	})

	return r
}
