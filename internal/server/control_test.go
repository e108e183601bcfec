package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/vyra/internal/services"
	"github.com/desertthunder/vyra/internal/shared"
	"github.com/desertthunder/vyra/internal/tasks"
)

type fakeResolver struct {
	url string
	err error
}

func (f *fakeResolver) Resolve(ctx context.Context, id string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.url + id, nil
}

type fakeMaterializer struct {
	cached  map[string]bool
	err     error
	cleared bool
}

func (f *fakeMaterializer) Materialize(ctx context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.cached[id] = true
	return nil
}

func (f *fakeMaterializer) IsCached(id string) bool { return f.cached[id] }

func (f *fakeMaterializer) Clear() {
	f.cleared = true
	f.cached = map[string]bool{}
}

type fakeDownloader struct {
	got tasks.DownloadRequest
	err error
}

func (f *fakeDownloader) Download(ctx context.Context, req tasks.DownloadRequest, progress chan<- tasks.ProgressUpdate) (*tasks.DownloadResult, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &tasks.DownloadResult{TrackID: req.TrackID, Path: "/tmp/" + req.TrackID + ".webm", Bytes: 42}, nil
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("expected JSON body, got %q: %v", w.Body.String(), err)
	}
	return out
}

func TestControlHandler(t *testing.T) {
	newRouter := func(r Resolver, m Materializer, d Downloader) *BasicRouter {
		router := NewBasicRouter()
		router.Use(CORS())
		router.Handler(NewControlHandler(r, m, d, shared.NewLogger(io.Discard)))
		return router
	}

	do := func(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(method, path, reader))
		return w
	}

	t.Run("resolve returns proxy url", func(t *testing.T) {
		router := newRouter(&fakeResolver{url: "http://127.0.0.1:9876/audio/"}, &fakeMaterializer{cached: map[string]bool{}}, nil)

		w := do(router, http.MethodPost, "/api/resolve/abc", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		if got := decodeBody(t, w)["url"]; got != "http://127.0.0.1:9876/audio/abc" {
			t.Errorf("unexpected url %v", got)
		}
	})

	t.Run("resolve error mapping", func(t *testing.T) {
		tests := []struct {
			name string
			err  error
			want int
		}{
			{name: "not found", err: fmt.Errorf("%w: exhausted", shared.ErrStreamNotFound), want: http.StatusNotFound},
			{name: "rejected", err: fmt.Errorf("%w: 403", shared.ErrUpstreamRejected), want: http.StatusBadGateway},
			{name: "transport", err: fmt.Errorf("%w: dial", shared.ErrTransport), want: http.StatusBadGateway},
			{name: "invalid id", err: shared.ErrInvalidTrackID, want: http.StatusBadRequest},
			{name: "unknown", err: fmt.Errorf("boom"), want: http.StatusInternalServerError},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				router := newRouter(&fakeResolver{err: tt.err}, &fakeMaterializer{cached: map[string]bool{}}, nil)
				w := do(router, http.MethodPost, "/api/resolve/abc", "")

				if w.Code != tt.want {
					t.Errorf("expected status %d, got %d", tt.want, w.Code)
				}
				if _, ok := decodeBody(t, w)["error"]; !ok {
					t.Error("expected error field in body")
				}
			})
		}
	})

	t.Run("cache add and status", func(t *testing.T) {
		m := &fakeMaterializer{cached: map[string]bool{}}
		router := newRouter(&fakeResolver{}, m, nil)

		w := do(router, http.MethodGet, "/api/cache/abc", "")
		if got := decodeBody(t, w)["cached"]; got != false {
			t.Errorf("expected cached=false before add, got %v", got)
		}

		w = do(router, http.MethodPost, "/api/cache/abc", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}

		w = do(router, http.MethodGet, "/api/cache/abc", "")
		if got := decodeBody(t, w)["cached"]; got != true {
			t.Errorf("expected cached=true after add, got %v", got)
		}
	})

	t.Run("cache add without registry entry is 404", func(t *testing.T) {
		m := &fakeMaterializer{cached: map[string]bool{}, err: fmt.Errorf("%w for abc", shared.ErrNoStreamURL)}
		router := newRouter(&fakeResolver{}, m, nil)

		w := do(router, http.MethodPost, "/api/cache/abc", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", w.Code)
		}
	})

	t.Run("cache clear is not a track id", func(t *testing.T) {
		m := &fakeMaterializer{cached: map[string]bool{"abc": true}}
		router := newRouter(&fakeResolver{}, m, nil)

		w := do(router, http.MethodPost, "/api/cache/clear", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		if !m.cleared {
			t.Error("expected Clear to be called")
		}
		if m.cached["clear"] {
			t.Error("clear must not be materialized as a track")
		}
	})

	t.Run("download", func(t *testing.T) {
		d := &fakeDownloader{}
		router := newRouter(&fakeResolver{}, &fakeMaterializer{cached: map[string]bool{}}, d)

		w := do(router, http.MethodPost, "/api/download", `{"track_id":"abc","title":"Song","quality":"high"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
		}
		if d.got.TrackID != "abc" || d.got.Title != "Song" {
			t.Errorf("unexpected request %+v", d.got)
		}
		if d.got.Quality != services.QualityHigh {
			t.Errorf("expected high quality, got %v", d.got.Quality)
		}
		if got := decodeBody(t, w)["path"]; got != "/tmp/abc.webm" {
			t.Errorf("unexpected path %v", got)
		}
	})

	t.Run("download input errors", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{name: "bad json", body: `{`},
			{name: "missing id", body: `{"title":"x"}`},
			{name: "bad quality", body: `{"track_id":"abc","quality":"lossless"}`},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				router := newRouter(&fakeResolver{}, &fakeMaterializer{cached: map[string]bool{}}, &fakeDownloader{})
				w := do(router, http.MethodPost, "/api/download", tt.body)
				if w.Code != http.StatusBadRequest {
					t.Errorf("expected status 400, got %d", w.Code)
				}
			})
		}
	})

	t.Run("download failure is 502", func(t *testing.T) {
		d := &fakeDownloader{err: fmt.Errorf("%w: status 403", shared.ErrDownloadFailed)}
		router := newRouter(&fakeResolver{}, &fakeMaterializer{cached: map[string]bool{}}, d)

		w := do(router, http.MethodPost, "/api/download", `{"track_id":"abc"}`)
		if w.Code != http.StatusBadGateway {
			t.Errorf("expected status 502, got %d", w.Code)
		}
	})

	t.Run("download disabled without downloader", func(t *testing.T) {
		router := newRouter(&fakeResolver{}, &fakeMaterializer{cached: map[string]bool{}}, nil)

		w := do(router, http.MethodPost, "/api/download", `{"track_id":"abc"}`)
		if w.Code != http.StatusNotImplemented {
			t.Errorf("expected status 501, got %d", w.Code)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		router := newRouter(&fakeResolver{}, &fakeMaterializer{cached: map[string]bool{}}, nil)

		w := do(router, http.MethodGet, "/api/resolve/abc", "")
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status 405, got %d", w.Code)
		}
	})
}
