package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// histogramFor collects the histogram series of c whose labels match.
func histogramFor(t *testing.T, c prometheus.Collector, labels map[string]string) *dto.Histogram {
	t.Helper()
	ch := make(chan prometheus.Metric, 100)
	c.Collect(ch)
	close(ch)

	for m := range ch {
		d := &dto.Metric{}
		require.NoError(t, m.Write(d))
		matched := 0
		for _, lp := range d.GetLabel() {
			if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
				matched++
			}
		}
		if matched == len(labels) {
			return d.GetHistogram()
		}
	}
	return nil
}

func TestPrometheusMetrics_CountsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics("metrics-test"))
	r.Get("/api/v1/search/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	counter := httpRequestsTotal.WithLabelValues("metrics-test", http.MethodGet, "/api/v1/search/{id}", "404")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/search/"+id, nil))
	}

	assert.Equal(t, before+3, testutil.ToFloat64(counter))
	assert.Zero(t, testutil.ToFloat64(httpRequestsInFlight.WithLabelValues("metrics-test")))
}

func TestPrometheusMetrics_DefaultStatusOK(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics("metrics-ok"))
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, 1.0, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("metrics-ok", http.MethodGet, "/ping", "200")))
}

func TestPrometheusMetrics_ObservesDuration(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics("metrics-duration"))
	r.Get("/api/v1/search/product", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for range 2 {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/search/product", nil))
	}

	h := histogramFor(t, httpRequestDuration, map[string]string{
		"service": "metrics-duration",
		"method":  http.MethodGet,
		"route":   "/api/v1/search/product",
	})
	require.NotNil(t, h)
	assert.Equal(t, uint64(2), h.GetSampleCount())
	assert.Len(t, h.GetBucket(), 10)
}
