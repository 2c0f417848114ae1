package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/api/controllers"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/notifications"
	pkgAuth "github.com/angelmondragon/storefront/pkg/auth"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/storage"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubCatalog struct{}

func (stubCatalog) GetProduct(_ context.Context, id string) (cart.ProductRef, error) {
	return cart.ProductRef{ID: id, Name: "Widget", Price: decimal.NewFromInt(7), StockQuantity: 3}, nil
}

type countingLimiter struct {
	hits map[string]int64
}

func (c *countingLimiter) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.hits[key]++
	return c.hits[key], nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:       config.AppConfig{Env: "test", CORSAllowedOrigins: []string{"http://localhost:3000"}},
		Session:   config.SessionConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 60},
		Catalog:   config.CatalogConfig{SearchLimit: 20},
		Metrics:   config.MetricsConfig{Enabled: true},
		RateLimit: config.RateLimitConfig{Window: time.Minute, SessionIPLimit: 2, CheckoutIPLimit: 1},
	}
}

func newTestRouter(t *testing.T) (http.Handler, *countingLimiter) {
	t.Helper()
	reg := prometheus.NewRegistry()
	cartMetrics := metrics.NewCartMetrics(reg, "memory")
	registry := cart.NewRegistry(cart.RegistryParams{
		Storage:  storage.NewMemory(),
		Notifier: notifications.ContextRecorder{},
		Observer: cartMetrics,
	})
	limiter := &countingLimiter{hits: map[string]int64{}}
	h := NewRouter(Deps{
		Config:      testConfig(),
		Carts:       registry,
		Catalog:     stubCatalog{},
		RateLimiter: limiter,
		Gatherer:    reg,
		Readiness:   map[string]controllers.Pinger{"cart_storage": stubPinger{}},
	})
	return h, limiter
}

func bearer(t *testing.T) string {
	t.Helper()
	token, _, err := pkgAuth.MintSessionToken(testConfig().Session, time.Now(), uuid.New())
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthRoutes(t *testing.T) {
	h, _ := newTestRouter(t)
	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
		if rec.Header().Get("X-Request-Id") == "" {
			t.Fatalf("%s: expected request id header", path)
		}
	}
}

func TestCartRoutesRequireSession(t *testing.T) {
	h, _ := newTestRouter(t)
	for _, path := range []string{"/api/v1/cart", "/api/v1/products/p-1"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, rec.Code)
		}
	}
}

func TestCartFlowAndMetrics(t *testing.T) {
	h, _ := newTestRouter(t)
	auth := bearer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"product_id":"p-1","quantity":2}`))
	req.Header.Set("Authorization", auth)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("add item: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", auth)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var body struct {
		Data struct {
			TotalItems int             `json:"total_items"`
			TotalPrice decimal.Decimal `json:"total_price"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if body.Data.TotalItems != 2 || !body.Data.TotalPrice.Equal(decimal.NewFromInt(14)) {
		t.Fatalf("unexpected totals %+v", body.Data)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `cart_mutations_total{op="add_item",outcome="added"} 1`) {
		t.Fatalf("expected mutation counter in metrics output:\n%s", rec.Body.String())
	}
}

func TestSessionRouteIsRateLimited(t *testing.T) {
	h, limiter := newTestRouter(t)
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/session", nil)
		req.RemoteAddr = "9.9.9.9:1000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusCreated || codes[1] != http.StatusCreated || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}
	if limiter.hits["ip:session:9.9.9.9"] != 3 {
		t.Fatalf("unexpected limiter hits %v", limiter.hits)
	}
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/cart", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected preflight to allow origin, got %q", got)
	}
}
