package metrics

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		// Known exact routes.
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/metrics", "/metrics"},
		{"/", "/"},
		{"/api/v1/tle/metadata", "/api/v1/tle/metadata"},
		{"/api/v1/tle/fetch", "/api/v1/tle/fetch"},
		{"/api/v1/satellites", "/api/v1/satellites"},
		{"/api/v1/vectors", "/api/v1/vectors"},
		{"/api/v1/trilaterate", "/api/v1/trilaterate"},
		{"/api/v1/trilaterate/batch", "/api/v1/trilaterate/batch"},

		// Parameterized satellite routes collapse to one label.
		{"/api/v1/satellites/25544", "/api/v1/satellites/{norad_id}"},
		{"/api/v1/satellites/20580", "/api/v1/satellites/{norad_id}"},
		{"/api/v1/satellites/1", "/api/v1/satellites/{norad_id}"},

		// Unknown/bot paths collapse to "other".
		{"/wp-admin", "other"},
		{"/robots.txt", "other"},
		{"/.env", "other"},
		{"/api/v1/satellites/1/extra", "other"},
		{"/api/v2/trilaterate", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := normalizeRoute(tt.path)
			if got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// TestMetricsCardinality verifies that 100 unique NORAD IDs produce
// exactly 1 distinct path label, not 100.
func TestMetricsCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		label := normalizeRoute("/api/v1/satellites/" + strconv.Itoa(20000+i))
		seen[label] = true
	}
	if len(seen) != 1 {
		t.Errorf("expected 1 unique label for parameterized paths, got %d: %v", len(seen), seen)
	}
}

func TestIncSolve(t *testing.T) {
	before := testutil.ToFloat64(solveTotal.WithLabelValues("degenerate"))
	IncSolve("degenerate")
	IncSolve("degenerate")
	if got := testutil.ToFloat64(solveTotal.WithLabelValues("degenerate")) - before; got != 2 {
		t.Errorf("degenerate solves = %v, want 2", got)
	}
}

func TestRecordResolveBatch(t *testing.T) {
	okBefore := testutil.ToFloat64(resolveTotal.WithLabelValues("success"))
	errBefore := testutil.ToFloat64(resolveTotal.WithLabelValues("error"))

	RecordResolveBatch(20*time.Millisecond, 7, 2)

	if got := testutil.ToFloat64(resolveTotal.WithLabelValues("success")) - okBefore; got != 7 {
		t.Errorf("success delta = %v, want 7", got)
	}
	if got := testutil.ToFloat64(resolveTotal.WithLabelValues("error")) - errBefore; got != 2 {
		t.Errorf("error delta = %v, want 2", got)
	}
}

func TestMiddlewareRecordsNormalizedPath(t *testing.T) {
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("other", "GET", "418"))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/wp-login.php", nil))
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("other", "GET", "418")) - before; got != 1 {
		t.Errorf("requests_total{path=other,code=418} delta = %v, want 1", got)
	}

	if n := histogramSampleCount(t, "geoloc_http_duration_seconds", map[string]string{"path": "other", "method": "GET"}); n < 1 {
		t.Errorf("duration sample_count = %d, want >= 1", n)
	}
}

func histogramSampleCount(t *testing.T, name string, labels map[string]string) uint64 {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}
