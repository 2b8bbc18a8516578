// Package metrics exposes Prometheus collectors for the planner service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mealplanner"

// Metrics holds every collector the service records into.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	shoppingListBuilds   prometheus.Counter
	shoppingListItems    prometheus.Histogram
	shoppingListDuration prometheus.Histogram

	calorieRecomputes       prometheus.Counter
	calorieRecomputeLatency prometheus.Histogram

	purchaseImports *prometheus.CounterVec
	loginAttempts   *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry together
// with the Go runtime and process collectors.
func New() (*Metrics, error) {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.initMetrics()

	if err := m.registry.Register(m); err != nil {
		return nil, err
	}
	if err := m.registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := m.registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)
	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time taken for HTTP requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.shoppingListBuilds = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "shopping_list_builds_total",
		Help:      "Number of shopping lists aggregated",
	})
	m.shoppingListItems = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "shopping_list_items",
		Help:      "Number of items per aggregated shopping list",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
	})
	m.shoppingListDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "shopping_list_duration_seconds",
		Help:      "Time taken to aggregate a shopping list",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	m.calorieRecomputes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dish_calorie_recomputes_total",
		Help:      "Number of dish calorie recomputations",
	})
	m.calorieRecomputeLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "dish_calorie_recompute_duration_seconds",
		Help:      "Time taken to recompute dish calories",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	m.purchaseImports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchase_import_lines_total",
			Help:      "Receipt lines processed by purchase imports",
		},
		[]string{"outcome"}, // outcome: recorded, unmatched
	)
	m.loginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by result",
		},
		[]string{"result"}, // result: success, failure, throttled
	)
}

func (m *Metrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.shoppingListBuilds,
		m.shoppingListItems,
		m.shoppingListDuration,
		m.calorieRecomputes,
		m.calorieRecomputeLatency,
		m.purchaseImports,
		m.loginAttempts,
	}
}

// Describe implements the Collector interface
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.getCollectors() {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.getCollectors() {
		collector.Collect(ch)
	}
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordLogin records a login attempt outcome.
func (m *Metrics) RecordLogin(result string) {
	m.loginAttempts.WithLabelValues(result).Inc()
}

// ObserveShoppingList implements mealplan.Recorder.
func (m *Metrics) ObserveShoppingList(items int, elapsed time.Duration) {
	m.shoppingListBuilds.Inc()
	m.shoppingListItems.Observe(float64(items))
	m.shoppingListDuration.Observe(elapsed.Seconds())
}

// ObserveDishCalories implements mealplan.Recorder.
func (m *Metrics) ObserveDishCalories(_ int, elapsed time.Duration) {
	m.calorieRecomputes.Inc()
	m.calorieRecomputeLatency.Observe(elapsed.Seconds())
}

// ObservePurchaseImport implements mealplan.Recorder.
func (m *Metrics) ObservePurchaseImport(recorded, skipped int) {
	m.purchaseImports.WithLabelValues("recorded").Add(float64(recorded))
	m.purchaseImports.WithLabelValues("unmatched").Add(float64(skipped))
}
