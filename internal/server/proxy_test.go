package server

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/vyra/internal/metrics"
	"github.com/desertthunder/vyra/internal/shared"
	"github.com/desertthunder/vyra/internal/store"
	tu "github.com/desertthunder/vyra/internal/testing"
)

func newProxyRouter(p *AudioProxy) *BasicRouter {
	router := NewBasicRouter()
	router.Use(CORS())
	router.Handler(p)
	return router
}

func get(t *testing.T, h http.Handler, path, rangeHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   ByteRange
		ok     bool
	}{
		{name: "closed", header: "bytes=10-19", want: ByteRange{Start: 10, End: 19}, ok: true},
		{name: "open ended", header: "bytes=1000-", want: ByteRange{Start: 1000, End: -1}, ok: true},
		{name: "single byte", header: "bytes=0-0", want: ByteRange{Start: 0, End: 0}, ok: true},
		{name: "empty", header: "", ok: false},
		{name: "wrong unit", header: "items=0-1", ok: false},
		{name: "suffix", header: "bytes=-500", ok: false},
		{name: "multiple", header: "bytes=0-1,5-6", ok: false},
		{name: "end before start", header: "bytes=20-10", ok: false},
		{name: "garbage", header: "bytes=abc-def", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRange(tt.header)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v", tt.ok, ok)
			}
			if ok && got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestUpstreamWindow(t *testing.T) {
	const initial, max = 262144, 524288

	tests := []struct {
		name     string
		rng      ByteRange
		hasRange bool
		want     string
	}{
		{name: "no range", hasRange: false, want: "bytes=0-262143"},
		{name: "open ended", rng: ByteRange{Start: 1000, End: -1}, hasRange: true, want: "bytes=1000-525287"},
		{name: "within max", rng: ByteRange{Start: 0, End: 99}, hasRange: true, want: "bytes=0-99"},
		{name: "exactly max span", rng: ByteRange{Start: 0, End: 524288}, hasRange: true, want: "bytes=0-524288"},
		{name: "wider than max", rng: ByteRange{Start: 0, End: 9999999}, hasRange: true, want: "bytes=0-524287"},
		{name: "open ended near int64 limit saturates", rng: ByteRange{Start: 9223372036854775000, End: -1}, hasRange: true, want: "bytes=9223372036854775000-9223372036854775807"},
		{name: "last full window before the limit", rng: ByteRange{Start: 9223372036854251520, End: -1}, hasRange: true, want: "bytes=9223372036854251520-9223372036854775807"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UpstreamWindow(tt.rng, tt.hasRange, initial, max); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestAudioProxyCache(t *testing.T) {
	audio := tu.AudioBytes(100)
	cache := store.NewAudioCache()
	cache.Put("abc", audio)
	m := metrics.New()

	proxy := NewAudioProxy(ProxyOpts{
		Cache:   cache,
		Logger:  shared.NewLogger(io.Discard),
		Metrics: m,
	})
	router := newProxyRouter(proxy)

	t.Run("no range serves full body", func(t *testing.T) {
		w := get(t, router, "/audio/abc", "")

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		if got := w.Header().Get("Content-Length"); got != "100" {
			t.Errorf("expected Content-Length 100, got %s", got)
		}
		if got := w.Header().Get("Accept-Ranges"); got != "bytes" {
			t.Errorf("expected Accept-Ranges bytes, got %s", got)
		}
		if got := w.Header().Get("Content-Type"); got != "audio/webm" {
			t.Errorf("expected audio/webm, got %s", got)
		}
		if w.Body.Len() != 100 {
			t.Errorf("expected 100 bytes, got %d", w.Body.Len())
		}
	})

	t.Run("closed range", func(t *testing.T) {
		w := get(t, router, "/audio/abc", "bytes=10-19")

		if w.Code != http.StatusPartialContent {
			t.Fatalf("expected status 206, got %d", w.Code)
		}
		if got := w.Header().Get("Content-Range"); got != "bytes 10-19/100" {
			t.Errorf("expected Content-Range bytes 10-19/100, got %s", got)
		}
		if got := w.Body.Bytes(); string(got) != string(audio[10:20]) {
			t.Errorf("expected bytes 10..19, got %v", got)
		}
	})

	t.Run("open range runs to end", func(t *testing.T) {
		w := get(t, router, "/audio/abc", "bytes=90-")

		if w.Code != http.StatusPartialContent {
			t.Fatalf("expected status 206, got %d", w.Code)
		}
		if got := w.Header().Get("Content-Range"); got != "bytes 90-99/100" {
			t.Errorf("expected bytes 90-99/100, got %s", got)
		}
		if w.Body.Len() != 10 {
			t.Errorf("expected 10 bytes, got %d", w.Body.Len())
		}
	})

	t.Run("end past total is clamped", func(t *testing.T) {
		w := get(t, router, "/audio/abc", "bytes=95-500")

		if got := w.Header().Get("Content-Range"); got != "bytes 95-99/100" {
			t.Errorf("expected bytes 95-99/100, got %s", got)
		}
		if got := w.Header().Get("Content-Length"); got != "5" {
			t.Errorf("expected Content-Length 5, got %s", got)
		}
	})

	t.Run("start past total is unsatisfiable", func(t *testing.T) {
		w := get(t, router, "/audio/abc", "bytes=100-")

		if w.Code != http.StatusRequestedRangeNotSatisfiable {
			t.Fatalf("expected status 416, got %d", w.Code)
		}
		if got := w.Header().Get("Content-Range"); got != "bytes */100" {
			t.Errorf("expected bytes */100, got %s", got)
		}
	})

	t.Run("malformed range serves full body", func(t *testing.T) {
		w := get(t, router, "/audio/abc", "bytes=-5")

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		if w.Body.Len() != 100 {
			t.Errorf("expected 100 bytes, got %d", w.Body.Len())
		}
	})

	t.Run("cache hits are counted", func(t *testing.T) {
		w := httptest.NewRecorder()
		m.Handler(nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if !strings.Contains(w.Body.String(), "vyra_proxy_cache_hits_total 6") {
			t.Errorf("expected 6 cache hits in metrics output:\n%s", w.Body.String())
		}
	})
}

func TestAudioProxyUpstream(t *testing.T) {
	audio := tu.AudioBytes(1024)

	newUpstream := func(seen *string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*seen = r.Header.Get("Range")
			rng, ok := ParseRange(*seen)
			if !ok {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			end := rng.End
			if end < 0 || end >= int64(len(audio)) {
				end = int64(len(audio)) - 1
			}
			w.Header().Set("Content-Type", "audio/mp4")
			w.Header().Set("Content-Length", strconv.FormatInt(end-rng.Start+1, 10))
			w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.Start, end, len(audio)))
			w.WriteHeader(http.StatusPartialContent)
			w.Write(audio[rng.Start : end+1])
		}))
	}

	t.Run("window headers", func(t *testing.T) {
		tests := []struct {
			name    string
			inbound string
			want    string
		}{
			{name: "no range", inbound: "", want: "bytes=0-262143"},
			{name: "open ended", inbound: "bytes=1000-", want: "bytes=1000-525287"},
			{name: "small range", inbound: "bytes=0-99", want: "bytes=0-99"},
			{name: "malformed treated as absent", inbound: "bytes=x-", want: "bytes=0-262143"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				var seen string
				upstream := newUpstream(&seen)
				defer upstream.Close()

				registry := store.NewRegistry()
				registry.Set("abc", upstream.URL+"/videoplayback")
				router := newProxyRouter(NewAudioProxy(ProxyOpts{
					Registry: registry,
					Logger:   shared.NewLogger(io.Discard),
				}))

				get(t, router, "/audio/abc", tt.inbound)
				if seen != tt.want {
					t.Errorf("expected upstream Range %s, got %s", tt.want, seen)
				}
			})
		}
	})

	t.Run("forwards upstream headers as 206", func(t *testing.T) {
		var seen string
		upstream := newUpstream(&seen)
		defer upstream.Close()

		registry := store.NewRegistry()
		registry.Set("abc", upstream.URL)
		router := newProxyRouter(NewAudioProxy(ProxyOpts{
			Registry: registry,
			Logger:   shared.NewLogger(io.Discard),
		}))

		w := get(t, router, "/audio/abc", "bytes=0-99")

		if w.Code != http.StatusPartialContent {
			t.Fatalf("expected status 206, got %d", w.Code)
		}
		if got := w.Header().Get("Content-Type"); got != "audio/mp4" {
			t.Errorf("expected audio/mp4, got %s", got)
		}
		if got := w.Header().Get("Content-Range"); got != "bytes 0-99/1024" {
			t.Errorf("expected bytes 0-99/1024, got %s", got)
		}
		if got := w.Header().Get("Content-Length"); got != "100" {
			t.Errorf("expected Content-Length 100, got %s", got)
		}
		if w.Body.Len() != 100 {
			t.Errorf("expected 100 body bytes, got %d", w.Body.Len())
		}
	})

	t.Run("sends configured user agent", func(t *testing.T) {
		var ua string
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ua = r.Header.Get("User-Agent")
			w.WriteHeader(http.StatusPartialContent)
		}))
		defer upstream.Close()

		registry := store.NewRegistry()
		registry.Set("abc", upstream.URL)
		router := newProxyRouter(NewAudioProxy(ProxyOpts{
			Registry:  registry,
			UserAgent: "custom-agent/1.0",
			Logger:    shared.NewLogger(io.Discard),
		}))

		get(t, router, "/audio/abc", "")
		if ua != "custom-agent/1.0" {
			t.Errorf("expected custom-agent/1.0, got %s", ua)
		}
	})

	t.Run("upstream error status is still answered as 206", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("expired"))
		}))
		defer upstream.Close()

		registry := store.NewRegistry()
		registry.Set("abc", upstream.URL)
		m := metrics.New()
		router := newProxyRouter(NewAudioProxy(ProxyOpts{
			Registry: registry,
			Logger:   shared.NewLogger(io.Discard),
			Metrics:  m,
		}))

		for _, inbound := range []string{"", "bytes=0-99"} {
			w := get(t, router, "/audio/abc", inbound)
			if w.Code != http.StatusPartialContent {
				t.Errorf("Range %q: expected status 206, got %d", inbound, w.Code)
			}
			if got := w.Body.String(); got != "expired" {
				t.Errorf("Range %q: expected upstream body, got %q", inbound, got)
			}
			if got := w.Header().Get("Content-Type"); got != "text/plain" {
				t.Errorf("Range %q: expected upstream content type, got %s", inbound, got)
			}
		}

		scrape := httptest.NewRecorder()
		m.Handler(nil).ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if !strings.Contains(scrape.Body.String(), "vyra_proxy_upstream_failures_total 2") {
			t.Error("expected both rejected fetches to count as upstream failures")
		}
	})

	t.Run("transport failure is 500", func(t *testing.T) {
		upstream := httptest.NewServer(http.NotFoundHandler())
		backing := upstream.URL
		upstream.Close()

		registry := store.NewRegistry()
		registry.Set("abc", backing)
		m := metrics.New()
		router := newProxyRouter(NewAudioProxy(ProxyOpts{
			Registry: registry,
			Logger:   shared.NewLogger(io.Discard),
			Metrics:  m,
		}))

		w := get(t, router, "/audio/abc", "")
		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", w.Code)
		}
		if w.Body.Len() != 0 {
			t.Errorf("expected empty body, got %q", w.Body.String())
		}

		scrape := httptest.NewRecorder()
		m.Handler(nil).ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if !strings.Contains(scrape.Body.String(), "vyra_proxy_upstream_failures_total 1") {
			t.Error("expected one upstream failure in metrics output")
		}
	})

	t.Run("cache wins over registry", func(t *testing.T) {
		var hits atomic.Int32
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusPartialContent)
		}))
		defer upstream.Close()

		registry := store.NewRegistry()
		registry.Set("abc", upstream.URL)
		cache := store.NewAudioCache()
		cache.Put("abc", audio)
		router := newProxyRouter(NewAudioProxy(ProxyOpts{
			Registry: registry,
			Cache:    cache,
			Logger:   shared.NewLogger(io.Discard),
		}))

		w := get(t, router, "/audio/abc", "")
		if w.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", w.Code)
		}
		if hits.Load() != 0 {
			t.Errorf("expected no upstream fetch, got %d", hits.Load())
		}
	})
}

func TestAudioProxyErrors(t *testing.T) {
	router := newProxyRouter(NewAudioProxy(ProxyOpts{Logger: shared.NewLogger(io.Discard)}))

	t.Run("unknown id is 404", func(t *testing.T) {
		w := get(t, router, "/audio/missing123", "")

		if w.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "No stream URL for video: missing123") {
			t.Errorf("expected body to mention id, got %q", w.Body.String())
		}
	})

	t.Run("invalid id is 400", func(t *testing.T) {
		w := get(t, router, "/audio/..", "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})

	t.Run("POST is rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/audio/abc", nil))
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status 405, got %d", w.Code)
		}
	})

	t.Run("preflight is answered by CORS", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/audio/abc", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Headers", "range")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Fatalf("expected status 204, got %d", w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("expected allow-origin *, got %s", got)
		}
		if got := w.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "Range") {
			t.Errorf("expected Range in allowed headers, got %s", got)
		}
	})

	t.Run("responses carry CORS headers", func(t *testing.T) {
		w := get(t, router, "/audio/missing123", "")
		if got := w.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(got, "Content-Range") {
			t.Errorf("expected Content-Range exposed, got %s", got)
		}
	})
}
