package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/vyra/internal/metrics"
	"github.com/desertthunder/vyra/internal/shared"
	"github.com/desertthunder/vyra/internal/store"
)

// ResolverOpts configures a [StreamResolver].
type ResolverOpts struct {
	Sources  []Source
	Registry *store.Registry
	// BaseURL is the proxy origin returned to callers, e.g. http://127.0.0.1:9876.
	BaseURL string
	Logger  *log.Logger
	Metrics *metrics.Metrics
}

// StreamResolver walks an ordered list of [Source] values until one yields audio.
type StreamResolver struct {
	sources  []Source
	registry *store.Registry
	baseURL  string
	logger   *log.Logger
	metrics  *metrics.Metrics
}

// Located is a resolved backing stream. URL is never handed to playback clients.
type Located struct {
	TrackID  string
	URL      string
	MimeType string
	Bitrate  int64
	Source   string
	Title    string
	Author   string
}

// NewStreamResolver creates a resolver over opts.Sources.
func NewStreamResolver(opts ResolverOpts) *StreamResolver {
	r := &StreamResolver{
		sources:  opts.Sources,
		registry: opts.Registry,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
	if r.registry == nil {
		r.registry = store.NewRegistry()
	}
	if r.logger == nil {
		r.logger = shared.NewLogger(nil)
	}
	return r
}

// DefaultSources builds the standard chain: one [PersonaSource] per persona, then
// one [PipedSource] per mirror instance.
func DefaultSources(yt *YouTubeService, personas []Persona, instances []string, client *http.Client, personaTimeout, mirrorTimeout time.Duration) []Source {
	sources := make([]Source, 0, len(personas)+len(instances))
	for _, p := range personas {
		sources = append(sources, NewPersonaSource(yt, p, personaTimeout))
	}
	for _, inst := range instances {
		sources = append(sources, NewPipedSource(inst, client, mirrorTimeout))
	}
	return sources
}

func (r *StreamResolver) Sources() []Source { return r.sources }

// ProxyURL is the local address a playback client uses for id.
func (r *StreamResolver) ProxyURL(id string) string {
	return r.baseURL + "/audio/" + url.PathEscape(id)
}

// Resolve finds the highest bitrate stream for id, records it in the registry and
// returns the local proxy URL.
func (r *StreamResolver) Resolve(ctx context.Context, id string) (string, error) {
	loc, err := r.Locate(ctx, id, QualityVeryHigh)
	if err != nil {
		return "", err
	}

	r.registry.Set(id, loc.URL)
	r.logger.Info("resolved stream", "track", id, "source", loc.Source, "mime", loc.MimeType)
	return r.ProxyURL(id), nil
}

// Locate tries each source in order and selects a candidate by q. The registry is
// left untouched.
//
// Source failures are logged and skipped. When every source is exhausted the error
// wraps [shared.ErrStreamNotFound].
func (r *StreamResolver) Locate(ctx context.Context, id string, q Quality) (*Located, error) {
	if !shared.ValidTrackID(id) {
		return nil, fmt.Errorf("%w: %q", shared.ErrInvalidTrackID, id)
	}

	for _, src := range r.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		set, err := src.Candidates(ctx, id)
		if err != nil {
			r.logger.Debug("source failed", "track", id, "source", src.Name(), "error", err)
			continue
		}

		c, ok := SelectFormat(set.Candidates, q)
		if !ok {
			r.logger.Debug("source returned no audio", "track", id, "source", src.Name())
			continue
		}

		r.metrics.IncResolutions(src.Name())
		return &Located{
			TrackID:  id,
			URL:      c.URL,
			MimeType: c.MimeType,
			Bitrate:  c.Bitrate,
			Source:   src.Name(),
			Title:    set.Title,
			Author:   set.Author,
		}, nil
	}

	r.metrics.IncResolutionFailures()
	r.logger.Warn("no stream available", "track", id)
	return nil, fmt.Errorf("%w: %s", shared.ErrStreamNotFound, id)
}
