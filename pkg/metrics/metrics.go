// Package metrics holds the Prometheus collectors shared by the client,
// hooks and the SIWE server. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "walletkit"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics groups every walletkit collector.
type Metrics struct {
	gatherer prometheus.Gatherer

	queryFetches        *prometheus.CounterVec
	queryDuration       *prometheus.HistogramVec
	activeSubscriptions *prometheus.GaugeVec
	actions             *prometheus.CounterVec
	blockListeners      prometheus.Gauge
	siweVerifications   *prometheus.CounterVec
	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
}

// New registers the collectors on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		queryFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "fetches_total",
			Help:      "Query fetches run by subscription hooks.",
		}, []string{"hook", "outcome"}),
		queryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of query fetches.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"hook"}),
		activeSubscriptions: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hooks",
			Name:      "active_subscriptions",
			Help:      "Subscriptions that have not been closed.",
		}, []string{"hook"}),
		actions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hooks",
			Name:      "actions_total",
			Help:      "Action hook invocations.",
		}, []string{"action", "outcome"}),
		blockListeners: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "block_listeners",
			Help:      "Listeners attached to shared block watchers.",
		}),
		siweVerifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "siwe",
			Name:      "verifications_total",
			Help:      "Sign-in verification attempts.",
		}, []string{"outcome"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served.",
		}, []string{"method", "path", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}, []string{"method", "path"}),
	}
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}

// ObserveFetch records one query fetch.
func (m *Metrics) ObserveFetch(hook string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.queryFetches.WithLabelValues(hook, outcome(err)).Inc()
	m.queryDuration.WithLabelValues(hook).Observe(time.Since(started).Seconds())
}

// SubscriptionOpened increments the active gauge for hook.
func (m *Metrics) SubscriptionOpened(hook string) {
	if m == nil {
		return
	}
	m.activeSubscriptions.WithLabelValues(hook).Inc()
}

// SubscriptionClosed decrements the active gauge for hook.
func (m *Metrics) SubscriptionClosed(hook string) {
	if m == nil {
		return
	}
	m.activeSubscriptions.WithLabelValues(hook).Dec()
}

// ObserveAction records one action hook invocation.
func (m *Metrics) ObserveAction(action string, err error) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(action, outcome(err)).Inc()
}

// BlockListenerAdded tracks a new block watcher listener.
func (m *Metrics) BlockListenerAdded() {
	if m == nil {
		return
	}
	m.blockListeners.Inc()
}

// BlockListenerRemoved tracks a released block watcher listener.
func (m *Metrics) BlockListenerRemoved() {
	if m == nil {
		return
	}
	m.blockListeners.Dec()
}

// ObserveVerification records a SIWE verification outcome label such as
// "success", "nonce_mismatch" or "invalid_signature".
func (m *Metrics) ObserveVerification(result string) {
	if m == nil {
		return
	}
	m.siweVerifications.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware counts requests by chi route pattern so path parameters do not
// explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				path = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
