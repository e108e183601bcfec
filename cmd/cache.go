package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/vyra/internal/shared"
)

// CacheAdd resolves a track on the running server and loads its full audio into
// the server's cache.
func (r *Runner) CacheAdd(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	r.logger.Info("caching track on server", "track", id)

	proxyURL, err := r.api.Resolve(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", id, err)
	}

	if err := r.api.CacheAdd(ctx, id); err != nil {
		return fmt.Errorf("failed to cache %s: %w", id, err)
	}

	r.writePlain("%s\n", r.palette.OK("Cached "+id))
	r.writePlain("  %s\n", proxyURL)
	return nil
}

// CacheStatus reports whether the running server holds a track in its cache.
func (r *Runner) CacheStatus(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	cached, err := r.api.CacheStatus(ctx, id)
	if err != nil {
		return err
	}

	if cached {
		r.writePlain("%s\n", r.palette.OK(id+" is cached"))
	} else {
		r.writePlain("%s\n", r.palette.Warn(id+" is not cached"))
	}
	return nil
}

// CacheClear empties the running server's audio cache.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	if err := r.api.CacheClear(ctx); err != nil {
		return err
	}
	r.writePlain("%s\n", r.palette.OK("Cache cleared"))
	return nil
}
