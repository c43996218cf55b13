package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoloc_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geoloc_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	resolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoloc_resolve_total",
			Help: "Satellite vector resolutions, by result.",
		},
		[]string{"result"},
	)

	resolveBatchDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "geoloc_resolve_batch_duration_seconds",
			Help:    "Duration of batch vector resolution in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	resolveWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "geoloc_resolve_workers",
			Help: "Configured size of the resolver worker pool.",
		},
	)

	solveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoloc_solve_total",
			Help: "Trilateration solves, by outcome.",
		},
		[]string{"outcome"},
	)

	estimateDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "geoloc_estimate_duration_seconds",
			Help:    "End-to-end estimate duration (fetch, resolve, solve) in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	ephemerisFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoloc_ephemeris_fetch_total",
			Help: "Ephemeris dataset retrievals, by result (network, cache_fallback, failed).",
		},
		[]string{"result"},
	)

	tleDatasetCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "geoloc_tle_dataset_count",
			Help: "Number of satellites in the loaded TLE dataset.",
		},
	)

	tleDatasetAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "geoloc_tle_dataset_age_seconds",
			Help: "Age of the loaded TLE dataset in seconds.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		resolveTotal,
		resolveBatchDurationSeconds,
		resolveWorkers,
		solveTotal,
		estimateDurationSeconds,
		ephemerisFetchTotal,
		tleDatasetCount,
		tleDatasetAgeSeconds,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordResolveBatch records one batch resolution.
func RecordResolveBatch(d time.Duration, success, failed int) {
	resolveBatchDurationSeconds.Observe(d.Seconds())
	resolveTotal.WithLabelValues("success").Add(float64(success))
	resolveTotal.WithLabelValues("error").Add(float64(failed))
}

// IncResolve counts a single resolution.
func IncResolve(ok bool) {
	if ok {
		resolveTotal.WithLabelValues("success").Inc()
		return
	}
	resolveTotal.WithLabelValues("error").Inc()
}

// SetResolveWorkers publishes the worker pool size.
func SetResolveWorkers(n int) {
	resolveWorkers.Set(float64(n))
}

// IncSolve counts a trilateration solve. Outcome is "ok" or an error class
// such as "precondition" or "degenerate".
func IncSolve(outcome string) {
	solveTotal.WithLabelValues(outcome).Inc()
}

// ObserveEstimateDuration records the duration of one estimate.
func ObserveEstimateDuration(d time.Duration) {
	estimateDurationSeconds.Observe(d.Seconds())
}

// IncEphemerisFetch counts a dataset retrieval by result.
func IncEphemerisFetch(result string) {
	ephemerisFetchTotal.WithLabelValues(result).Inc()
}

// SetTLEDatasetCount publishes the number of loaded satellites.
func SetTLEDatasetCount(n int) {
	tleDatasetCount.Set(float64(n))
}

// SetTLEDatasetAge publishes the age of the loaded dataset.
func SetTLEDatasetAge(seconds float64) {
	tleDatasetAgeSeconds.Set(seconds)
}

// knownRoutes are reported under their own path label.
var knownRoutes = map[string]bool{
	"/":                         true,
	"/healthz":                  true,
	"/readyz":                   true,
	"/metrics":                  true,
	"/api/v1/tle/metadata":      true,
	"/api/v1/tle/fetch":         true,
	"/api/v1/satellites":        true,
	"/api/v1/vectors":           true,
	"/api/v1/trilaterate":       true,
	"/api/v1/trilaterate/batch": true,
}

// normalizeRoute maps a request path to a bounded label set so that scanners
// and parameterized paths cannot blow up metric cardinality.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if rest, ok := strings.CutPrefix(path, "/api/v1/satellites/"); ok && rest != "" && !strings.Contains(rest, "/") {
		return "/api/v1/satellites/{norad_id}"
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		path := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(path, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(path, r.Method).Observe(duration)
	})
}
