package services_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/desertthunder/vyra/internal/services"
	"github.com/desertthunder/vyra/internal/shared"
	"github.com/desertthunder/vyra/internal/store"
	tu "github.com/desertthunder/vyra/internal/testing"
)

func newResolver(registry *store.Registry, sources ...services.Source) *services.StreamResolver {
	return services.NewStreamResolver(services.ResolverOpts{
		Sources:  sources,
		Registry: registry,
		BaseURL:  "http://127.0.0.1:9876/",
		Logger:   shared.NewLogger(io.Discard),
	})
}

func TestStreamResolver(t *testing.T) {
	t.Run("Resolve writes registry and returns proxy url", func(t *testing.T) {
		registry := store.NewRegistry()
		src := tu.NewFakeSource("first", "https://backing.example/hi", "https://backing.example/lo")
		r := newResolver(registry, src)

		url, err := r.Resolve(context.Background(), "abc")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if url != "http://127.0.0.1:9876/audio/abc" {
			t.Errorf("unexpected proxy url %s", url)
		}
		if backing, ok := registry.Get("abc"); !ok || backing != "https://backing.example/hi" {
			t.Errorf("expected highest bitrate url in registry, got %q", backing)
		}
	})

	t.Run("falls through failing and empty sources in order", func(t *testing.T) {
		failing := tu.NewFailingSource("failing", shared.ErrTransport)
		empty := tu.NewFakeSource("empty")
		good := tu.NewFakeSource("good", "https://backing.example/good")
		unused := tu.NewFakeSource("unused", "https://backing.example/unused")

		r := newResolver(store.NewRegistry(), failing, empty, good, unused)
		loc, err := r.Locate(context.Background(), "abc", services.QualityVeryHigh)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if loc.Source != "good" {
			t.Errorf("expected good source, got %s", loc.Source)
		}
		for _, src := range []*tu.FakeSource{failing, empty, good} {
			if src.Calls() != 1 {
				t.Errorf("%s: expected 1 call, got %d", src.Name(), src.Calls())
			}
		}
		if unused.Calls() != 0 {
			t.Errorf("sources after a success should not be called, got %d", unused.Calls())
		}
	})

	t.Run("all exhausted is NotFound", func(t *testing.T) {
		registry := store.NewRegistry()
		r := newResolver(registry,
			tu.NewFailingSource("a", shared.ErrUpstreamRejected),
			tu.NewFailingSource("b", shared.ErrTransport),
		)

		_, err := r.Resolve(context.Background(), "abc")
		if !errors.Is(err, shared.ErrStreamNotFound) {
			t.Errorf("expected ErrStreamNotFound, got %v", err)
		}
		if registry.Len() != 0 {
			t.Error("registry should not be written on failure")
		}
	})

	t.Run("Locate leaves registry untouched and honors quality", func(t *testing.T) {
		registry := store.NewRegistry()
		src := tu.NewFakeSource("src", "q0", "q1", "q2", "q3", "q4", "q5")
		r := newResolver(registry, src)

		tests := []struct {
			q    services.Quality
			want string
		}{
			{services.QualityVeryHigh, "q0"},
			{services.QualityHigh, "q2"},
			{services.QualityNormal, "q3"},
		}
		for _, tt := range tests {
			loc, err := r.Locate(context.Background(), "abc", tt.q)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if loc.URL != tt.want {
				t.Errorf("quality %v: expected %s, got %s", tt.q, tt.want, loc.URL)
			}
		}

		if registry.Len() != 0 {
			t.Error("Locate should not write the registry")
		}
	})

	t.Run("invalid track id", func(t *testing.T) {
		src := tu.NewFakeSource("src", "u")
		r := newResolver(store.NewRegistry(), src)

		_, err := r.Resolve(context.Background(), "../etc")
		if !errors.Is(err, shared.ErrInvalidTrackID) {
			t.Errorf("expected ErrInvalidTrackID, got %v", err)
		}
		if src.Calls() != 0 {
			t.Error("sources should not be called for invalid ids")
		}
	})

	t.Run("cancelled context stops the chain", func(t *testing.T) {
		src := tu.NewFakeSource("src", "u")
		r := newResolver(store.NewRegistry(), src)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := r.Resolve(ctx, "abc"); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("last resolution wins", func(t *testing.T) {
		registry := store.NewRegistry()
		newResolver(registry, tu.NewFakeSource("a", "first")).Resolve(context.Background(), "abc")
		newResolver(registry, tu.NewFakeSource("b", "second")).Resolve(context.Background(), "abc")

		if backing, _ := registry.Get("abc"); backing != "second" {
			t.Errorf("expected second, got %s", backing)
		}
	})
}
