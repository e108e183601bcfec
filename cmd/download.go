package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/vyra/internal/formatter"
	"github.com/desertthunder/vyra/internal/repositories"
	"github.com/desertthunder/vyra/internal/services"
	"github.com/desertthunder/vyra/internal/shared"
	"github.com/desertthunder/vyra/internal/tasks"
)

// Download writes one or more tracks to disk and records them in history.
func (r *Runner) Download(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one track id", shared.ErrMissingArgument)
	}

	quality, err := services.ParseQuality(cmd.String("quality"))
	if err != nil {
		return err
	}

	title, artist := cmd.String("title"), cmd.String("artist")
	if len(ids) > 1 && (title != "" || artist != "") {
		return fmt.Errorf("%w: --title and --artist apply to a single track", shared.ErrInvalidFlag)
	}

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

	downloader := r.newDownloader(recorder)
	reqs := make([]tasks.DownloadRequest, len(ids))
	for i, id := range ids {
		reqs[i] = tasks.DownloadRequest{
			TrackID: id,
			Title:   title,
			Artist:  artist,
			Dir:     cmd.String("dir"),
			Quality: quality,
		}
	}

	useJSON := cmd.Bool("json")
	progress := make(chan tasks.ProgressUpdate, 32)
	done := make(chan struct{})
	if useJSON {
		go func() {
			for range progress {
			}
			close(done)
		}()
	} else {
		go r.printProgress(progress, done)
	}

	if len(reqs) == 1 {
		res, err := downloader.Download(ctx, reqs[0], progress)
		close(progress)
		<-done
		if err != nil {
			return err
		}
		if useJSON {
			return r.writeJSON(res, true)
		}
		r.writePlainln("%s", r.palette.OK(fmt.Sprintf("Saved %s - %s", res.Artist, res.Title)))
		r.writePlain("  %s (%s)\n", res.Path, formatter.FormatBytes(res.Bytes))
		return nil
	}

	workers := int(cmd.Int("workers"))
	if workers <= 0 {
		workers = r.config.Downloads.Workers
	}

	batch := downloader.DownloadMany(ctx, reqs, tasks.BatchOpts{
		Workers:   workers,
		RateLimit: r.config.Downloads.RateLimit,
	}, progress)
	close(progress)
	<-done

	if useJSON {
		return r.writeJSON(batch, true)
	}

	r.writePlainHeader(fmt.Sprintf("Downloaded %d of %d tracks", batch.Succeeded, len(reqs)))
	for _, item := range batch.Items {
		if item.Err != nil {
			r.writePlain("%s\n", r.palette.Err(fmt.Sprintf("%s: %v", item.Request.TrackID, item.Err)))
			continue
		}
		r.writePlain("%s\n", r.palette.OK(item.Result.Path))
	}

	if batch.Failed > 0 {
		return fmt.Errorf("%w: %d of %d tracks failed", shared.ErrDownloadFailed, batch.Failed, len(reqs))
	}
	return nil
}

// DownloadsList prints the download history in the requested format.
func (r *Runner) DownloadsList(ctx context.Context, cmd *cli.Command) error {
	db, repo, err := r.history()
	if err != nil {
		return err
	}
	defer db.Close()

	downloads, err := repo.List(map[string]any{
		"track_id": cmd.String("track"),
		"limit":    int(cmd.Int("limit")),
	})
	if err != nil {
		return err
	}

	format := cmd.String("format")
	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteExport(downloads, format, path); err != nil {
			return err
		}
		r.writePlain("%s\n", r.palette.OK(fmt.Sprintf("Wrote %d downloads to %s", len(downloads), path)))
		return nil
	}

	data, err := formatter.Export(downloads, format)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

// DownloadsDelete removes one history entry. The audio file is left in place.
func (r *Runner) DownloadsDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: download id", shared.ErrMissingArgument)
	}

	db, repo, err := r.history()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repo.Delete(id); err != nil {
		return err
	}

	r.writePlain("%s\n", r.palette.OK("Removed "+id))
	return nil
}
