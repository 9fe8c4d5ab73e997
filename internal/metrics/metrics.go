// Package metrics exposes Prometheus instrumentation for the storefront.
// All methods are safe to call on a nil *Metrics, so components can run
// uninstrumented in tests and in the CLI.
package metrics

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"storefront/internal/model"
)

// Metrics holds storefront collectors.
type Metrics struct {
	gatewayCalls    *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec

	cartsCreated      prometheus.Counter
	staleCartRetries  prometheus.Counter
	cartValidations   *prometheus.CounterVec
	duplicateRejected prometheus.Counter
	catalogCache      *prometheus.CounterVec

	cartQuantity   prometheus.Gauge
	lockedProducts prometheus.Gauge

	httpRequests *prometheus.HistogramVec
}

// NewWithRegisterer creates metrics registered on registerer.
// Registering twice on the same registerer reuses the existing collectors.
func NewWithRegisterer(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		gatewayCalls: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_gateway_requests_total",
			Help: "Storefront API calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		gatewayDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "storefront_gateway_request_duration_seconds",
			Help:    "Storefront API call latency in seconds",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"operation"}),
		cartsCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_carts_created_total",
			Help: "Remote carts created by the session manager",
		}),
		staleCartRetries: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_stale_cart_retries_total",
			Help: "Cart operations retried after the remote reported the cart missing",
		}),
		cartValidations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_validations_total",
			Help: "Cart identity validations by result",
		}, []string{"result"}),
		duplicateRejected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_duplicate_designs_rejected_total",
			Help: "Custom design additions rejected because the product was locked",
		}),
		catalogCache: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_catalog_cache_total",
			Help: "Catalog cache lookups by result",
		}, []string{"result"}),
		cartQuantity: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_cart_total_quantity",
			Help: "Total quantity of the current cart projection",
		}),
		lockedProducts: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_locked_products",
			Help: "Products currently locked by a custom design line",
		}),
		httpRequests: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "Storefront HTTP API latency in seconds by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// ObserveGatewayCall records one remote call.
func (m *Metrics) ObserveGatewayCall(operation string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.gatewayCalls.WithLabelValues(operation, outcome(err)).Inc()
	m.gatewayDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// CartCreated counts a newly created remote cart.
func (m *Metrics) CartCreated() {
	if m == nil {
		return
	}
	m.cartsCreated.Inc()
}

// StaleCartRetried counts a retry after replacing a vanished cart.
func (m *Metrics) StaleCartRetried() {
	if m == nil {
		return
	}
	m.staleCartRetries.Inc()
}

// CartValidated records the result of an identity validation.
func (m *Metrics) CartValidated(valid bool) {
	if m == nil {
		return
	}
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.cartValidations.WithLabelValues(result).Inc()
}

// DuplicateDesignRejected counts an addition blocked by an upload lock.
func (m *Metrics) DuplicateDesignRejected() {
	if m == nil {
		return
	}
	m.duplicateRejected.Inc()
}

// CatalogCacheLookup records a cache result: "hit", "miss" or "stale".
func (m *Metrics) CatalogCacheLookup(result string) {
	if m == nil {
		return
	}
	m.catalogCache.WithLabelValues(result).Inc()
}

// SetCartQuantity publishes the projection's total quantity.
func (m *Metrics) SetCartQuantity(n int) {
	if m == nil {
		return
	}
	m.cartQuantity.Set(float64(n))
}

// SetLockedProducts publishes the number of locked products.
func (m *Metrics) SetLockedProducts(n int) {
	if m == nil {
		return
	}
	m.lockedProducts.Set(float64(n))
}

// ObserveHTTPRequest records one served request. route is the matched
// ServeMux pattern, or "unmatched".
func (m *Metrics) ObserveHTTPRequest(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Observe(d.Seconds())
}

// outcome maps an error onto a low-cardinality label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrCartNotFound):
		return "not_found"
	case errors.Is(err, model.ErrUpstreamError):
		return "upstream_error"
	default:
		return "error"
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}
