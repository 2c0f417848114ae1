package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront/pkg/enums"
)

// CartMetrics counts cart operations, storage flush failures and rehydrations.
type CartMetrics struct {
	driver        string
	mutations     *prometheus.CounterVec
	flushFailures *prometheus.CounterVec
	rehydrations  *prometheus.CounterVec
}

// NewCartMetrics registers the cart metrics on the provided registerer. driver
// labels flush failures with the configured storage backend.
func NewCartMetrics(reg prometheus.Registerer, driver string) *CartMetrics {
	if reg == nil {
		return &CartMetrics{driver: normalizeLabel(driver)}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart operations by operation and outcome.",
	}, []string{"op", "outcome"})
	flushFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_storage_flush_failures_total",
		Help: "Cart snapshots that could not be written to storage.",
	}, []string{"driver"})
	rehydrations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_rehydrations_total",
		Help: "Cart rehydrations by result.",
	}, []string{"result"})
	reg.MustRegister(mutations, flushFailures, rehydrations)
	return &CartMetrics{
		driver:        normalizeLabel(driver),
		mutations:     mutations,
		flushFailures: flushFailures,
		rehydrations:  rehydrations,
	}
}

func (c *CartMetrics) ObserveMutation(op string, outcome enums.CartOutcome) {
	if c == nil || c.mutations == nil {
		return
	}
	c.mutations.WithLabelValues(normalizeLabel(op), normalizeLabel(outcome.String())).Inc()
}

func (c *CartMetrics) IncFlushFailure() {
	if c == nil || c.flushFailures == nil {
		return
	}
	c.flushFailures.WithLabelValues(c.driver).Inc()
}

func (c *CartMetrics) ObserveRehydrate(result string) {
	if c == nil || c.rehydrations == nil {
		return
	}
	c.rehydrations.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
