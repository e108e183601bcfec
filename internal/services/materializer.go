package services

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/desertthunder/vyra/internal/metrics"
	"github.com/desertthunder/vyra/internal/shared"
	"github.com/desertthunder/vyra/internal/store"
)

const defaultFetchUserAgent = "com.google.android.apps.youtube.music/6.42.52"

// MaterializerOpts configures a [Materializer].
type MaterializerOpts struct {
	Registry  *store.Registry
	Cache     *store.AudioCache
	Client    *http.Client
	UserAgent string
	Logger    *log.Logger
	Metrics   *metrics.Metrics
}

// Materializer downloads whole tracks into the [store.AudioCache].
//
// It never resolves on its own: a track must have been resolved first.
type Materializer struct {
	registry   *store.Registry
	cache      *store.AudioCache
	httpClient *http.Client
	userAgent  string
	logger     *log.Logger
	metrics    *metrics.Metrics
	group      singleflight.Group
}

func NewMaterializer(opts MaterializerOpts) *Materializer {
	m := &Materializer{
		registry:   opts.Registry,
		cache:      opts.Cache,
		httpClient: opts.Client,
		userAgent:  opts.UserAgent,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
	if m.registry == nil {
		m.registry = store.NewRegistry()
	}
	if m.cache == nil {
		m.cache = store.NewAudioCache()
	}
	if m.httpClient == nil {
		m.httpClient = http.DefaultClient
	}
	if m.userAgent == "" {
		m.userAgent = defaultFetchUserAgent
	}
	if m.logger == nil {
		m.logger = shared.NewLogger(nil)
	}
	return m
}

// Materialize ensures the full audio of id is cached.
//
// A cached track returns immediately. Otherwise the registry must hold a backing
// URL or the error wraps [shared.ErrNoStreamURL]. Concurrent calls for the same id
// share one fetch. The fetch is detached from the caller's cancellation, so a
// caller that gives up returns ctx.Err() while the others keep waiting.
func (m *Materializer) Materialize(ctx context.Context, id string) error {
	if m.cache.Has(id) {
		return nil
	}

	backing, ok := m.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: no stream URL available for %s, play the song first", shared.ErrNoStreamURL, id)
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan(id, func() (any, error) {
		if m.cache.Has(id) {
			return nil, nil
		}

		data, err := m.fetch(fetchCtx, backing)
		if err != nil {
			return nil, err
		}

		if m.cache.Put(id, data) {
			m.metrics.IncMaterialized()
			m.logger.Info("cached audio", "track", id, "bytes", len(data))
		}
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Materializer) fetch(ctx context.Context, backing string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, backing, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", m.userAgent)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch audio: %v", shared.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: audio fetch returned status %d", shared.ErrUpstreamRejected, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read audio: %v", shared.ErrTransport, err)
	}
	return data, nil
}

// IsCached reports whether the full audio of id is in the cache.
func (m *Materializer) IsCached(id string) bool {
	return m.cache.Has(id)
}

// Clear empties the audio cache. The registry is kept.
func (m *Materializer) Clear() {
	m.cache.Clear()
	m.logger.Info("cleared audio cache")
}
