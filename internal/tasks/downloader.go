// package tasks implements long-running track operations such as download-to-disk.
package tasks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/vyra/internal/services"
	"github.com/desertthunder/vyra/internal/shared"
	"github.com/desertthunder/vyra/internal/store"
)

const (
	defaultSubdir    = "VYRA"
	defaultUserAgent = "com.google.android.apps.youtube.music/6.42.52"
	unknownArtist    = "Unknown Artist"
)

// Locator finds a backing stream for a track at a quality tier.
type Locator interface {
	Locate(ctx context.Context, id string, q services.Quality) (*services.Located, error)
}

// Recorder persists completed downloads. Implemented by repositories.DownloadRecorder.
type Recorder interface {
	RecordDownload(ctx context.Context, res *DownloadResult) error
}

// DownloadRequest describes one track to write to disk.
type DownloadRequest struct {
	TrackID string           `json:"trackId"`
	Title   string           `json:"title,omitempty"`
	Artist  string           `json:"artist,omitempty"`
	Dir     string           `json:"dir,omitempty"`
	Quality services.Quality `json:"-"`
}

// DownloadResult is a finished download.
type DownloadResult struct {
	TrackID  string `json:"trackId"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Path     string `json:"path"`
	Bytes    int64  `json:"bytes"`
	MimeType string `json:"mimeType"`
	Source   string `json:"source"`
	Quality  string `json:"quality"`
}

// DownloaderOpts configures a [Downloader].
type DownloaderOpts struct {
	Registry  *store.Registry
	Locator   Locator
	Recorder  Recorder
	Client    *http.Client
	UserAgent string
	// BaseDir is used when a request has no Dir. Empty means $HOME/Music.
	BaseDir string
	Subdir  string
	Logger  *log.Logger
}

// Downloader fetches full tracks and writes them to disk.
type Downloader struct {
	registry   *store.Registry
	locator    Locator
	recorder   Recorder
	httpClient *http.Client
	userAgent  string
	baseDir    string
	subdir     string
	logger     *log.Logger
}

// NewDownloader creates a [Downloader]. A nil Recorder disables history.
func NewDownloader(opts DownloaderOpts) *Downloader {
	d := &Downloader{
		registry:   opts.Registry,
		locator:    opts.Locator,
		recorder:   opts.Recorder,
		httpClient: opts.Client,
		userAgent:  opts.UserAgent,
		baseDir:    opts.BaseDir,
		subdir:     opts.Subdir,
		logger:     opts.Logger,
	}
	if d.registry == nil {
		d.registry = store.NewRegistry()
	}
	if d.httpClient == nil {
		d.httpClient = http.DefaultClient
	}
	if d.userAgent == "" {
		d.userAgent = defaultUserAgent
	}
	if d.subdir == "" {
		d.subdir = defaultSubdir
	}
	if d.logger == nil {
		d.logger = shared.NewLogger(nil)
	}
	return d
}

// Download writes the audio of req.TrackID to "{dir}/{subdir}/{artist} - {title}.{ext}".
//
// A URL already in the registry is reused. Otherwise the track is located at
// req.Quality without touching the registry.
func (d *Downloader) Download(ctx context.Context, req DownloadRequest, progress chan<- ProgressUpdate) (*DownloadResult, error) {
	if !shared.ValidTrackID(req.TrackID) {
		return nil, fmt.Errorf("%w: %q", shared.ErrInvalidTrackID, req.TrackID)
	}

	res := &DownloadResult{
		TrackID: req.TrackID,
		Title:   req.Title,
		Artist:  req.Artist,
		Quality: req.Quality.String(),
		Source:  "registry",
	}

	backing, ok := d.registry.Get(req.TrackID)
	sendProgress(progress, resolveUpdate(req.TrackID, ok))
	if !ok {
		if d.locator == nil {
			return nil, fmt.Errorf("%w: %s", shared.ErrNoStreamURL, req.TrackID)
		}

		loc, err := d.locator.Locate(ctx, req.TrackID, req.Quality)
		if err != nil {
			return nil, err
		}

		backing = loc.URL
		res.Source = loc.Source
		res.MimeType = loc.MimeType
		if res.Title == "" {
			res.Title = loc.Title
		}
		if res.Artist == "" {
			res.Artist = loc.Author
		}
	}

	if res.Title == "" {
		res.Title = req.TrackID
	}
	if res.Artist == "" {
		res.Artist = unknownArtist
	}

	sendProgress(progress, fetchUpdate(req.TrackID, res.Source))
	body, mime, err := d.open(ctx, backing)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	if res.MimeType == "" {
		res.MimeType = mime
	}

	dir, err := d.targetDir(req.Dir)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("%s - %s.%s", shared.SanitizeFilename(res.Artist), shared.SanitizeFilename(res.Title), services.ExtensionFor(res.MimeType))
	res.Path = filepath.Join(dir, name)

	n, err := writeFile(res.Path, body)
	if err != nil {
		return nil, err
	}
	res.Bytes = n
	sendProgress(progress, writeUpdate(res.Path, n))

	if d.recorder != nil {
		if err := d.recorder.RecordDownload(ctx, res); err != nil {
			d.logger.Warn("failed to record download", "track", res.TrackID, "error", err)
		} else {
			sendProgress(progress, recordUpdate(res))
		}
	}

	d.logger.Info("downloaded track", "track", res.TrackID, "path", res.Path, "bytes", n)
	return res, nil
}

func (d *Downloader) open(ctx context.Context, backing string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, backing, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", shared.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, "", fmt.Errorf("%w: upstream returned status %d", shared.ErrDownloadFailed, resp.StatusCode)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

func (d *Downloader) targetDir(requested string) (string, error) {
	base := strings.TrimSpace(requested)
	if base == "" {
		base = d.baseDir
	}
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine home directory: %w", err)
		}
		base = filepath.Join(home, "Music")
	}

	dir := filepath.Join(base, d.subdir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	return dir, nil
}

// writeFile streams r into path through a temporary file in the same directory.
func writeFile(path string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".vyra-*.part")
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("%w: %v", shared.ErrDownloadFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("failed to write file: %w", err)
	}
	return n, nil
}
