// Package telemetry exposes Prometheus metrics for the ingestion service.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ingestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readr_ingest_total",
			Help: "Total ingest calls, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	runAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readr_run_attempts_total",
			Help: "Total retried task attempts, labeled by task and result.",
		},
		[]string{"task", "result"},
	)

	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readr_runs_total",
			Help: "Total retried task runs reaching a terminal state, labeled by task and state.",
		},
		[]string{"task", "state"},
	)

	storeMergesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readr_store_merges_total",
			Help: "Total record merge writes, labeled by half (metadata/body).",
		},
		[]string{"half"},
	)

	llmRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "readr_llm_request_duration_seconds",
			Help:    "Histogram of model call latencies, labeled by model.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	llmCostUSDTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readr_llm_cost_usd_total",
			Help: "Cumulative estimated model spend in USD, labeled by model.",
		},
		[]string{"model"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readr_http_requests_total",
			Help: "Total HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "readr_http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveIngest records the outcome of one ingest call
// (accepted, duplicate, rejected, error).
func ObserveIngest(outcome string) {
	ingestTotal.WithLabelValues(outcome).Inc()
}

// ObserveRunAttempt records one task attempt.
func ObserveRunAttempt(task string, ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	runAttemptsTotal.WithLabelValues(task, result).Inc()
}

// ObserveRunResult records a run reaching a terminal state.
func ObserveRunResult(task, state string) {
	runsTotal.WithLabelValues(task, state).Inc()
}

// ObserveMerge records one merge write.
func ObserveMerge(half string) {
	storeMergesTotal.WithLabelValues(half).Inc()
}

// ObserveLLMCall records latency and estimated cost for one model call.
func ObserveLLMCall(model string, duration time.Duration, costUSD float64) {
	llmRequestDurationSeconds.WithLabelValues(model).Observe(duration.Seconds())
	if costUSD > 0 {
		llmCostUSDTotal.WithLabelValues(model).Add(costUSD)
	}
}

// ObserveHTTPRequest records metrics for one HTTP request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Middleware is a chi middleware that records HTTP request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(ww, r)

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}
		ObserveHTTPRequest(r.Method, routePattern, ww.statusCode, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.statusCode = code
	rec.ResponseWriter.WriteHeader(code)
}
