// Package metrics holds the service's Prometheus collectors on a private registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Outcome label values
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailure  = "failure"
	OutcomeCleared  = "cleared"
)

// Metrics is safe to use as a nil pointer; every method becomes a no-op.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
	cartMutations       *prometheus.CounterVec
	discountResolutions *prometheus.CounterVec
	orderSubmissions    *prometheus.CounterVec
	orderCreateDuration *prometheus.HistogramVec
	eventPublishFailed  *prometheus.CounterVec
	catalogItems        prometheus.Gauge
	catalogUpdates      prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		cartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Cart mutations by action and outcome",
		}, []string{"action", "outcome"}),
		discountResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_resolutions_total",
			Help:      "Discount code resolutions by outcome",
		}, []string{"outcome"}),
		orderSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_submissions_total",
			Help:      "Checkout confirmations by outcome",
		}, []string{"outcome"}),
		orderCreateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_create_duration_seconds",
			Help:      "Order creation latency by outcome",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		eventPublishFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_event_publish_failures_total",
			Help:      "Order events that could not be published",
		}, []string{"routing_key"}),
		catalogItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_items",
			Help:      "Items currently held by the catalog mirror",
		}),
		catalogUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_updates_total",
			Help:      "Catalog deliveries applied by the mirror",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.cartMutations,
		m.discountResolutions,
		m.orderSubmissions,
		m.orderCreateDuration,
		m.eventPublishFailed,
		m.catalogItems,
		m.catalogUpdates,
	)
	return m
}

// Registry exposes the underlying registry for tests and custom collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) CartMutation(action, outcome string) {
	if m == nil {
		return
	}
	m.cartMutations.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) DiscountResolution(outcome string) {
	if m == nil {
		return
	}
	m.discountResolutions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) OrderSubmission(outcome string) {
	if m == nil {
		return
	}
	m.orderSubmissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) OrderCreated(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.orderCreateDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) EventPublishFailed(routingKey string) {
	if m == nil {
		return
	}
	m.eventPublishFailed.WithLabelValues(routingKey).Inc()
}

func (m *Metrics) CatalogUpdated(items int) {
	if m == nil {
		return
	}
	m.catalogItems.Set(float64(items))
	m.catalogUpdates.Inc()
}
