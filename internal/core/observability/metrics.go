// Package observability records service metrics. Until Init is called with
// enabled=true every observation is a no-op.
package observability

import (
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type collectors struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	upstreamLatency     *prometheus.HistogramVec
	fetchDuration       *prometheus.HistogramVec
	retrievalFailures   *prometheus.CounterVec
	vectorsTotal        *prometheus.CounterVec
	storeOpTotal        *prometheus.CounterVec
	storeOpDuration     *prometheus.HistogramVec
	storeLoadedPOIs     prometheus.Counter
}

var current atomic.Pointer[collectors]

// Init registers all collectors on reg. Calling it again swaps the target registry.
func Init(reg prometheus.Registerer, enabled bool) {
	if !enabled || reg == nil {
		current.Store(nil)
		return
	}
	f := promauto.With(reg)
	buckets := prometheus.ExponentialBuckets(0.005, 2, 12) // 5ms to ~20s

	current.Store(&collectors{
		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: buckets,
		}, []string{"method", "route", "status"}),
		upstreamLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: buckets,
		}, []string{"upstream"}),
		fetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "feature_fetch_duration_seconds",
			Help:    "Duration of collector fetches in seconds.",
			Buckets: buckets,
		}, []string{"collector", "outcome"}),
		retrievalFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "feature_retrieval_failures_total",
			Help: "Collector fetches that failed and were replaced by a zero vector.",
		}, []string{"collector"}),
		vectorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "feature_vectors_total",
			Help: "Feature vectors produced by outcome.",
		}, []string{"collector", "outcome"}),
		storeOpTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "store_op_total",
			Help: "Redis store operations by op and result.",
		}, []string{"op", "result"}),
		storeOpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Duration of redis operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"op"}),
		storeLoadedPOIs: f.NewCounter(prometheus.CounterOpts{
			Name: "store_loaded_pois_total",
			Help: "POIs written into the redis extract.",
		}),
	})
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	c := current.Load()
	if c == nil {
		return
	}
	st := strconv.Itoa(status)
	c.httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	c.httpRequestDuration.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstreamLatency(upstream string, durationSeconds float64) {
	if c := current.Load(); c != nil {
		c.upstreamLatency.WithLabelValues(upstream).Observe(durationSeconds)
	}
}

func ObserveFetch(collector, outcome string, durationSeconds float64) {
	if c := current.Load(); c != nil {
		c.fetchDuration.WithLabelValues(collector, outcome).Observe(durationSeconds)
	}
}

func IncRetrievalFailure(collector string) {
	if c := current.Load(); c != nil {
		c.retrievalFailures.WithLabelValues(collector).Inc()
	}
}

func ObserveVector(collector, outcome string) {
	if c := current.Load(); c != nil {
		c.vectorsTotal.WithLabelValues(collector, outcome).Inc()
	}
}

func ObserveStoreOp(op string, err error, durationSeconds float64) {
	c := current.Load()
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.storeOpTotal.WithLabelValues(op, result).Inc()
	c.storeOpDuration.WithLabelValues(op).Observe(durationSeconds)
}

func AddLoadedPOIs(n int) {
	if c := current.Load(); c != nil && n > 0 {
		c.storeLoadedPOIs.Add(float64(n))
	}
}
