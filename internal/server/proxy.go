package server

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/desertthunder/vyra/internal/metrics"
	"github.com/desertthunder/vyra/internal/shared"
	"github.com/desertthunder/vyra/internal/store"
)

const (
	defaultAudioType     = "audio/webm"
	defaultInitialWindow = 256 * 1024
	defaultMaxWindow     = 512 * 1024
	defaultProxyAgent    = "com.google.android.apps.youtube.vr.oculus/1.43.32"
)

// ByteRange is a single "bytes=start-end" range. End is -1 when open-ended.
type ByteRange struct {
	Start int64
	End   int64
}

// ParseRange parses a single-range Range header value.
//
// Suffix ranges ("bytes=-500"), multiple ranges and ranges ending before they
// start are reported as malformed.
func ParseRange(header string) (ByteRange, bool) {
	value, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !ok {
		return ByteRange{}, false
	}

	parts := strings.Split(value, "-")
	if len(parts) != 2 {
		return ByteRange{}, false
	}

	start, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil || start < 0 {
		return ByteRange{}, false
	}

	end := int64(-1)
	if s := strings.TrimSpace(parts[1]); s != "" {
		end, err = strconv.ParseInt(s, 10, 64)
		if err != nil || end < start {
			return ByteRange{}, false
		}
	}

	return ByteRange{Start: start, End: end}, true
}

// UpstreamWindow is the Range header sent to the backing URL.
//
// Without an inbound range the first initial bytes are requested. Open-ended or
// wider-than-max ranges are narrowed to max bytes from their start.
func UpstreamWindow(rng ByteRange, hasRange bool, initial, max int64) string {
	if !hasRange {
		return fmt.Sprintf("bytes=0-%d", initial-1)
	}
	if rng.End < 0 || rng.End-rng.Start > max {
		end := int64(math.MaxInt64)
		if rng.Start <= math.MaxInt64-max+1 {
			end = rng.Start + max - 1
		}
		return fmt.Sprintf("bytes=%d-%d", rng.Start, end)
	}
	return fmt.Sprintf("bytes=%d-%d", rng.Start, rng.End)
}

// ProxyOpts configures an [AudioProxy].
type ProxyOpts struct {
	Registry      *store.Registry
	Cache         *store.AudioCache
	Client        *http.Client
	UserAgent     string
	InitialWindow int64
	MaxWindow     int64
	Logger        *log.Logger
	Metrics       *metrics.Metrics
}

// AudioProxy serves GET /audio/{trackID} from the audio cache or, failing that,
// by a bounded range fetch against the registered backing URL.
type AudioProxy struct {
	registry      *store.Registry
	cache         *store.AudioCache
	httpClient    *http.Client
	userAgent     string
	initialWindow int64
	maxWindow     int64
	logger        *log.Logger
	metrics       *metrics.Metrics
}

// NewAudioProxy creates an [AudioProxy].
func NewAudioProxy(opts ProxyOpts) *AudioProxy {
	p := &AudioProxy{
		registry:      opts.Registry,
		cache:         opts.Cache,
		httpClient:    opts.Client,
		userAgent:     opts.UserAgent,
		initialWindow: opts.InitialWindow,
		maxWindow:     opts.MaxWindow,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
	}
	if p.registry == nil {
		p.registry = store.NewRegistry()
	}
	if p.cache == nil {
		p.cache = store.NewAudioCache()
	}
	if p.httpClient == nil {
		p.httpClient = http.DefaultClient
	}
	if p.userAgent == "" {
		p.userAgent = defaultProxyAgent
	}
	if p.initialWindow <= 0 {
		p.initialWindow = defaultInitialWindow
	}
	if p.maxWindow <= 0 {
		p.maxWindow = defaultMaxWindow
	}
	if p.logger == nil {
		p.logger = shared.NewLogger(nil)
	}
	return p
}

// Routes returns the HTTP routes this handler serves.
func (p *AudioProxy) Routes() []string {
	return []string{"/audio/{trackID}"}
}

func (p *AudioProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET, OPTIONS")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := url.PathUnescape(chi.URLParam(r, "trackID"))
	if err != nil || !shared.ValidTrackID(id) {
		http.Error(w, "Invalid track id", http.StatusBadRequest)
		return
	}

	if data, ok := p.cache.Get(id); ok {
		p.metrics.IncCacheHits()
		p.serveCached(w, r, data)
		return
	}

	backing, ok := p.registry.Get(id)
	if !ok {
		http.Error(w, "No stream URL for video: "+id, http.StatusNotFound)
		return
	}

	p.serveUpstream(w, r, id, backing)
}

func (p *AudioProxy) serveCached(w http.ResponseWriter, r *http.Request, data []byte) {
	total := int64(len(data))
	h := w.Header()
	h.Set("Content-Type", defaultAudioType)
	h.Set("Accept-Ranges", "bytes")

	rng, ok := ParseRange(r.Header.Get("Range"))
	if !ok {
		h.Set("Content-Length", strconv.FormatInt(total, 10))
		w.WriteHeader(http.StatusOK)
		w.Write(data)
		return
	}

	if rng.Start >= total {
		h.Set("Content-Range", fmt.Sprintf("bytes */%d", total))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	end := rng.End
	if end < 0 || end >= total {
		end = total - 1
	}

	h.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.Start, end, total))
	h.Set("Content-Length", strconv.FormatInt(end-rng.Start+1, 10))
	w.WriteHeader(http.StatusPartialContent)
	w.Write(data[rng.Start : end+1])
}

func (p *AudioProxy) serveUpstream(w http.ResponseWriter, r *http.Request, id, backing string) {
	p.metrics.IncUpstreamFetches()

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, backing, nil)
	if err != nil {
		p.logger.Error("bad backing url", "track", id, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	inbound, hasRange := ParseRange(r.Header.Get("Range"))
	req.Header.Set("Range", UpstreamWindow(inbound, hasRange, p.initialWindow, p.maxWindow))
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.metrics.IncUpstreamFailures()
		p.logger.Warn("upstream fetch failed", "track", id, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	h := w.Header()
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = defaultAudioType
	}
	h.Set("Content-Type", ct)
	h.Set("Accept-Ranges", "bytes")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.metrics.IncUpstreamFailures()
		p.logger.Warn("upstream rejected range", "track", id, "status", resp.StatusCode)
	}

	if v := resp.Header.Get("Content-Length"); v != "" {
		h.Set("Content-Length", v)
	}
	if v := resp.Header.Get("Content-Range"); v != "" {
		h.Set("Content-Range", v)
	}

	w.WriteHeader(http.StatusPartialContent)
	if _, err := io.Copy(w, resp.Body); err != nil {
		p.logger.Debug("client stream interrupted", "track", id, "error", err)
	}
}
