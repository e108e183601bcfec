package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/vyra/internal/metrics"
	"github.com/desertthunder/vyra/internal/repositories"
	"github.com/desertthunder/vyra/internal/server"
	"github.com/desertthunder/vyra/internal/services"
	"github.com/desertthunder/vyra/internal/shared"
	"github.com/desertthunder/vyra/internal/tasks"
)

// Serve runs the audio proxy until SIGINT or SIGTERM.
//
// The listener starts after server.startup_delay_ms so a host application can
// finish its own initialization first.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	host := r.config.Server.Host
	if h := cmd.String("host"); h != "" {
		host = h
	}
	port := r.config.Server.Port
	if p := int(cmd.Int("port")); p > 0 {
		port = p
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var recorder tasks.Recorder
	if !cmd.Bool("no-history") {
		db, repo, err := r.history()
		if err != nil {
			r.logger.Warn("download history disabled", "error", err)
		} else {
			defer db.Close()
			recorder = repositories.NewDownloadRecorder(repo)
		}
	}

	router := r.proxyRouter(fmt.Sprintf("http://127.0.0.1:%d", port), recorder)
	srv := server.NewProxyServer(net.JoinHostPort(host, strconv.Itoa(port)), router, shared.WithLogger(r.logger, "component", "proxy"))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if delay := r.config.StartupDelay(); delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil
			}
		}
		return srv.Serve(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		r.logger.Info("shutting down", "cached_tracks", r.cache.Len(), "registered_tracks", r.registry.Len())
		return nil
	})

	return g.Wait()
}

// proxyRouter wires the audio proxy, control API and /metrics behind the shared
// middleware stack. baseURL is the origin handed out in resolved URLs.
func (r *Runner) proxyRouter(baseURL string, recorder tasks.Recorder) *server.BasicRouter {
	resolver := services.NewStreamResolver(services.ResolverOpts{
		Sources:  r.resolver.Sources(),
		Registry: r.registry,
		BaseURL:  baseURL,
		Logger:   shared.WithLogger(r.logger, "component", "resolver"),
		Metrics:  r.metrics,
	})

	proxy := server.NewAudioProxy(server.ProxyOpts{
		Registry:      r.registry,
		Cache:         r.cache,
		Client:        r.clientWithTimeout(r.config.Proxy.TimeoutSeconds, 30*time.Second),
		UserAgent:     r.config.Proxy.UserAgent,
		InitialWindow: r.config.Proxy.InitialWindow,
		MaxWindow:     r.config.Proxy.MaxWindow,
		Logger:        shared.WithLogger(r.logger, "component", "proxy"),
		Metrics:       r.metrics,
	})

	control := server.NewControlHandler(resolver, r.materializer, r.newDownloader(recorder), shared.WithLogger(r.logger, "component", "control"))

	router := server.NewBasicRouter()
	router.Use(
		server.RequestLogger(shared.WithLogger(r.logger, "component", "http")),
		server.CORS(),
		metrics.RequestMiddleware(r.metrics),
	)
	router.Handler(proxy)
	router.Handler(control)
	router.Handle(http.MethodGet, "/metrics", r.metrics.Handler(func() {
		r.metrics.SetCache(r.cache.Len(), r.cache.Bytes())
	}))

	return router
}
