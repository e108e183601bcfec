package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	t.Run("nil metrics are no-ops", func(t *testing.T) {
		var m *Metrics
		m.IncRequests()
		m.IncResolutions("ANDROID_MUSIC")
		m.SetCache(1, 2)
	})

	t.Run("counters", func(t *testing.T) {
		m := New()
		m.IncCacheHits()
		m.IncCacheHits()
		m.IncResolutions("piped")

		if got := testutil.ToFloat64(m.cacheHitsTotal); got != 2 {
			t.Errorf("expected 2 cache hits, got %v", got)
		}
		if got := testutil.ToFloat64(m.resolutionsTotal.WithLabelValues("piped")); got != 1 {
			t.Errorf("expected 1 piped resolution, got %v", got)
		}
	})

	t.Run("RequestMiddleware counts errors", func(t *testing.T) {
		m := New()
		h := RequestMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/missing" {
				http.NotFound(w, r)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))

		for _, path := range []string{"/ok", "/missing"} {
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
		}

		if got := testutil.ToFloat64(m.requestsTotal); got != 2 {
			t.Errorf("expected 2 requests, got %v", got)
		}
		if got := testutil.ToFloat64(m.errorsTotal); got != 1 {
			t.Errorf("expected 1 error, got %v", got)
		}
	})

	t.Run("Handler refreshes gauges", func(t *testing.T) {
		m := New()
		called := false
		h := m.Handler(func() {
			called = true
			m.SetCache(3, 1024)
		})

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		if !called {
			t.Error("expected gauge refresh before scrape")
		}
		if !strings.Contains(rec.Body.String(), "vyra_cache_entries 3") {
			t.Errorf("expected cache gauge in output, got:\n%s", rec.Body.String())
		}
	})
}
