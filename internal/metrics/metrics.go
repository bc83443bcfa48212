// Package metrics exposes Prometheus collectors for the controller.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "yield_optimizer"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	reallocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reallocation",
			Name:      "attempts_total",
			Help:      "Reallocation attempts by terminal outcome.",
		},
		[]string{"outcome"},
	)

	depositFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reallocation",
			Name:      "deposit_failed_total",
			Help:      "Withdrawn funds that could not be redeposited. Every increment needs manual reconciliation.",
		},
	)

	guardReleaseFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "guard",
			Name:      "release_failures_total",
			Help:      "Reentrancy guards that could not be released.",
		},
	)

	feesCollected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fees",
			Name:      "collected_total",
			Help:      "Platform fees taken from completed reallocations, in asset base units.",
		},
	)

	yieldRates = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rates",
			Name:      "observed",
			Help:      "Last yield rate observed per protocol.",
		},
		[]string{"protocol"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)
)

func init() {
	Registry.MustRegister(
		reallocations,
		depositFailures,
		guardReleaseFailures,
		feesCollected,
		yieldRates,
		httpRequests,
		httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordOutcome(outcome string) {
	reallocations.WithLabelValues(outcome).Inc()
}

// RecordDepositFailure raises the stranded-funds alarm counter.
func RecordDepositFailure() {
	depositFailures.Inc()
}

func RecordGuardReleaseFailure() {
	guardReleaseFailures.Inc()
}

func RecordFee(amount uint64) {
	feesCollected.Add(float64(amount))
}

func RecordRate(protocol string, rate uint64) {
	yieldRates.WithLabelValues(protocol).Set(float64(rate))
}

// InstrumentHandler records request counts and latencies by chi route pattern.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
