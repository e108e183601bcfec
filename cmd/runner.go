package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"

	"github.com/desertthunder/vyra/internal/metrics"
	"github.com/desertthunder/vyra/internal/repositories"
	"github.com/desertthunder/vyra/internal/services"
	"github.com/desertthunder/vyra/internal/shared"
	"github.com/desertthunder/vyra/internal/store"
	"github.com/desertthunder/vyra/internal/tasks"
	"github.com/desertthunder/vyra/internal/ui"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The registry, audio cache and visitor token are owned here and shared by every
// component built from them, so a serve process has exactly one of each.
type Runner struct {
	config       *shared.Config
	configPath   string
	registry     *store.Registry
	cache        *store.AudioCache
	visitor      *store.VisitorData
	metrics      *metrics.Metrics
	youtube      *services.YouTubeService
	resolver     *services.StreamResolver
	materializer *services.Materializer
	api          *services.APIService
	httpClient   *http.Client
	logger       *log.Logger
	output       io.Writer
	palette      *ui.Palette
	openDB       func(shared.DatabaseConfig) (*sql.DB, error)
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	YouTube    *services.YouTubeService
	Sources    []services.Source
	API        *services.APIService
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration.
//
// Components not supplied in opts are built from the config.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	cfg := opts.Config
	r := &Runner{
		config:     cfg,
		configPath: opts.ConfigPath,
		registry:   store.NewRegistry(),
		cache:      store.NewAudioCache(),
		visitor:    store.NewVisitorData(),
		metrics:    metrics.New(),
		api:        opts.API,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		palette:    ui.Styles,
		openDB:     shared.OpenDatabase,
	}

	r.youtube = opts.YouTube
	if r.youtube == nil {
		r.youtube = services.NewYouTubeService(services.YouTubeOpts{
			BaseURL:  cfg.YouTube.BaseURL,
			APIKey:   cfg.YouTube.APIKey,
			Language: cfg.YouTube.Language,
			Region:   cfg.YouTube.Region,
			Client:   r.clientWithTimeout(cfg.YouTube.TimeoutSeconds, 30*time.Second),
			Limiter:  newLimiter(cfg.YouTube.RateLimit, cfg.YouTube.RateBurst),
			Visitor:  r.visitor,
			Logger:   shared.WithLogger(r.logger, "component", "innertube"),
		})
	}

	sources := opts.Sources
	if sources == nil {
		sources = services.DefaultSources(
			r.youtube,
			services.DefaultPersonas,
			cfg.Fallback.Instances,
			r.httpClient,
			shared.Seconds(cfg.YouTube.TimeoutSeconds, 30*time.Second),
			shared.Seconds(cfg.Fallback.TimeoutSeconds, 10*time.Second),
		)
	}

	r.resolver = services.NewStreamResolver(services.ResolverOpts{
		Sources:  sources,
		Registry: r.registry,
		BaseURL:  cfg.ProxyBaseURL(),
		Logger:   shared.WithLogger(r.logger, "component", "resolver"),
		Metrics:  r.metrics,
	})

	r.materializer = services.NewMaterializer(services.MaterializerOpts{
		Registry:  r.registry,
		Cache:     r.cache,
		Client:    r.clientWithTimeout(cfg.Proxy.TimeoutSeconds, 30*time.Second),
		UserAgent: cfg.Downloads.UserAgent,
		Logger:    shared.WithLogger(r.logger, "component", "materializer"),
		Metrics:   r.metrics,
	})

	if r.api == nil {
		r.api = services.NewAPIService(cfg.ProxyBaseURL(), r.httpClient)
	}

	return r
}

func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// clientWithTimeout copies the runner's client with a per-request timeout.
func (r *Runner) clientWithTimeout(seconds int, fallback time.Duration) *http.Client {
	c := *r.httpClient
	c.Timeout = shared.Seconds(seconds, fallback)
	return &c
}

// newDownloader builds a downloader sharing the runner's registry. A nil recorder
// disables history.
func (r *Runner) newDownloader(recorder tasks.Recorder) *tasks.Downloader {
	return tasks.NewDownloader(tasks.DownloaderOpts{
		Registry:  r.registry,
		Locator:   r.resolver,
		Recorder:  recorder,
		Client:    r.httpClient,
		UserAgent: r.config.Downloads.UserAgent,
		BaseDir:   r.config.Downloads.Dir,
		Subdir:    r.config.Downloads.Subdir,
		Logger:    shared.WithLogger(r.logger, "component", "downloader"),
	})
}

// history opens the download database. Callers close the returned db.
func (r *Runner) history() (*sql.DB, *repositories.DownloadRepository, error) {
	db, err := r.openDB(r.config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open download history: %w", err)
	}
	return db, repositories.NewDownloadRepository(db), nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, resolveCommand, searchCommand, downloadCommand, downloadsCommand, cacheCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

// writeRaw echoes an upstream JSON document, re-indenting it when pretty is set.
func (r *Runner) writeRaw(raw json.RawMessage, pretty bool) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return r.writeJSON(v, pretty)
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", r.palette.Title(title))
	r.writePlain("═══════════════════════════════════════\n")
}

// printProgress renders updates until the channel is closed, then signals done.
func (r *Runner) printProgress(progress <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	defer close(done)
	for u := range progress {
		if u.Total > 0 {
			r.writePlain("%s\n", r.palette.Step(u.Step, u.Total, u.Message))
		} else {
			r.writePlain("→ %s\n", u.Message)
		}
	}
}
