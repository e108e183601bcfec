package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/vyra/internal/services"
	"github.com/desertthunder/vyra/internal/shared"
)

// Resolve finds a playable stream for a track.
//
// By default the persona chain runs in this process and the chosen stream is
// printed. With --remote a running server resolves it and the proxy URL is printed.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if cmd.Bool("remote") {
		proxyURL, err := r.api.Resolve(ctx, id)
		if err != nil {
			return fmt.Errorf("remote resolve failed: %w", err)
		}
		if useJSON {
			return r.writeJSON(map[string]string{"trackId": id, "url": proxyURL}, pretty)
		}
		r.writePlain("%s\n", proxyURL)
		return nil
	}

	quality, err := services.ParseQuality(cmd.String("quality"))
	if err != nil {
		return err
	}

	r.logger.Info("resolving stream", "track", id, "quality", quality)

	loc, err := r.resolver.Locate(ctx, id, quality)
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(map[string]any{
			"trackId":  id,
			"title":    loc.Title,
			"artist":   loc.Author,
			"source":   loc.Source,
			"mimeType": loc.MimeType,
			"bitrate":  loc.Bitrate,
			"url":      r.resolver.ProxyURL(id),
		}, pretty)
	}

	r.writePlain("%s\n\n", r.palette.OK("Stream found"))
	if loc.Title != "" {
		r.writePlain("Title: %s\n", loc.Title)
	}
	if loc.Author != "" {
		r.writePlain("Artist: %s\n", loc.Author)
	}
	r.writePlain("Source: %s\n", loc.Source)
	r.writePlain("Format: %s\n", loc.MimeType)
	if loc.Bitrate > 0 {
		r.writePlain("Bitrate: %d kbps\n", loc.Bitrate/1000)
	}
	r.writePlain("Proxy URL: %s\n", r.resolver.ProxyURL(id))

	return nil
}

// Search queries YouTube Music and prints the track ids found in the response.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")
	limit := int(cmd.Int("limit"))

	if cmd.Bool("suggest") {
		r.logger.Info("fetching suggestions", "input", query)
		raw, err := r.youtube.Suggestions(ctx, query)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
		if useJSON {
			return r.writeRaw(raw, pretty)
		}
		for _, s := range services.SuggestionTexts(raw) {
			r.writePlain("%s\n", s)
		}
		return nil
	}

	var (
		raw   []byte
		err   error
		title string
	)
	switch {
	case cmd.Bool("browse"):
		r.logger.Info("browsing", "browse_id", query)
		raw, err = r.youtube.Browse(ctx, query, cmd.String("params"))
		title = "Tracks in " + query
	case cmd.Bool("next"):
		r.logger.Info("fetching radio queue", "track", query)
		raw, err = r.youtube.Next(ctx, query)
		title = "Up next after " + query
	default:
		r.logger.Info("searching youtube music", "query", query)
		raw, err = r.youtube.Search(ctx, query, cmd.String("params"))
		title = "Results for " + query
	}
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if useJSON {
		return r.writeRaw(raw, pretty)
	}

	ids := services.CollectVideoIDs(raw)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	if len(ids) == 0 {
		r.writePlain("%s\n", r.palette.Warn("No tracks found"))
		return nil
	}

	r.writePlainHeader(title)
	for i, id := range ids {
		r.writePlain("%2d. %s\n", i+1, id)
	}
	r.writePlainln("%s", r.palette.Help("Play one with: vyra resolve <id>"))

	return nil
}
