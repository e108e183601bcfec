package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/desertthunder/vyra/internal/services"
	"github.com/desertthunder/vyra/internal/shared"
	"github.com/desertthunder/vyra/internal/tasks"
)

// Resolver turns a track id into a playable proxy URL.
type Resolver interface {
	Resolve(ctx context.Context, id string) (string, error)
}

// Materializer fills and inspects the audio cache.
type Materializer interface {
	Materialize(ctx context.Context, id string) error
	IsCached(id string) bool
	Clear()
}

// Downloader saves a track to disk.
type Downloader interface {
	Download(ctx context.Context, req tasks.DownloadRequest, progress chan<- tasks.ProgressUpdate) (*tasks.DownloadResult, error)
}

// ControlHandler exposes resolution, caching and downloads over JSON for
// collaborators that cannot call into the process directly.
type ControlHandler struct {
	resolver     Resolver
	materializer Materializer
	downloader   Downloader
	logger       *log.Logger
}

// NewControlHandler creates a [ControlHandler]. A nil downloader disables /api/download.
func NewControlHandler(resolver Resolver, materializer Materializer, downloader Downloader, logger *log.Logger) *ControlHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ControlHandler{
		resolver:     resolver,
		materializer: materializer,
		downloader:   downloader,
		logger:       logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (c *ControlHandler) Routes() []string {
	return []string{
		"/api/resolve/{trackID}",
		"/api/cache/clear",
		"/api/cache/{trackID}",
		"/api/download",
	}
}

func (c *ControlHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var pattern string
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		pattern = rctx.RoutePattern()
	}

	switch {
	case pattern == "/api/resolve/{trackID}" && r.Method == http.MethodPost:
		c.handleResolve(w, r)
	case pattern == "/api/cache/clear" && r.Method == http.MethodPost:
		c.materializer.Clear()
		writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
	case pattern == "/api/cache/{trackID}" && r.Method == http.MethodPost:
		c.handleCacheAdd(w, r)
	case pattern == "/api/cache/{trackID}" && r.Method == http.MethodGet:
		c.handleCacheStatus(w, r)
	case pattern == "/api/download" && r.Method == http.MethodPost:
		c.handleDownload(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	}
}

func (c *ControlHandler) handleResolve(w http.ResponseWriter, r *http.Request) {
	id, ok := trackParam(w, r)
	if !ok {
		return
	}

	proxyURL, err := c.resolver.Resolve(r.Context(), id)
	if err != nil {
		c.logger.Warn("resolve failed", "track", id, "error", err)
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": proxyURL})
}

func (c *ControlHandler) handleCacheAdd(w http.ResponseWriter, r *http.Request) {
	id, ok := trackParam(w, r)
	if !ok {
		return
	}

	if err := c.materializer.Materialize(r.Context(), id); err != nil {
		c.logger.Warn("materialize failed", "track", id, "error", err)
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"cached": true})
}

func (c *ControlHandler) handleCacheStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := trackParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cached": c.materializer.IsCached(id)})
}

func (c *ControlHandler) handleDownload(w http.ResponseWriter, r *http.Request) {
	if c.downloader == nil {
		writeError(w, http.StatusNotImplemented, shared.ErrNotImplemented)
		return
	}

	var body struct {
		TrackID string `json:"track_id"`
		Title   string `json:"title"`
		Artist  string `json:"artist"`
		Dir     string `json:"dir"`
		Quality string `json:"quality"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, shared.ErrInvalidInput)
		return
	}

	if !shared.ValidTrackID(body.TrackID) {
		writeError(w, http.StatusBadRequest, shared.ErrInvalidTrackID)
		return
	}

	quality, err := services.ParseQuality(body.Quality)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := c.downloader.Download(r.Context(), tasks.DownloadRequest{
		TrackID: body.TrackID,
		Title:   body.Title,
		Artist:  body.Artist,
		Dir:     body.Dir,
		Quality: quality,
	}, nil)
	if err != nil {
		c.logger.Warn("download failed", "track", body.TrackID, "error", err)
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func trackParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := url.PathUnescape(chi.URLParam(r, "trackID"))
	if err != nil || !shared.ValidTrackID(id) {
		writeError(w, http.StatusBadRequest, shared.ErrInvalidTrackID)
		return "", false
	}
	return id, true
}

// statusFor maps sentinel errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrInvalidTrackID),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrStreamNotFound), errors.Is(err, shared.ErrNoStreamURL):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrTransport),
		errors.Is(err, shared.ErrUpstreamRejected),
		errors.Is(err, shared.ErrDownloadFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
