package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/vyra/internal/models"
	"github.com/desertthunder/vyra/internal/tasks"
)

var _ tasks.Recorder = (*DownloadRecorder)(nil)

// DownloadRecorder implements tasks.Recorder using DownloadRepository.
//
// Every finished download is appended to the history, so a track saved twice has
// two rows and GetByTrackID returns the newest.
type DownloadRecorder struct {
	repo *DownloadRepository
}

// NewDownloadRecorder creates a new DownloadRecorder with the given repository
func NewDownloadRecorder(repo *DownloadRepository) *DownloadRecorder {
	return &DownloadRecorder{repo: repo}
}

// RecordDownload persists res. A cancelled context skips the write.
func (a *DownloadRecorder) RecordDownload(ctx context.Context, res *tasks.DownloadResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d := models.NewDownload(0, res.TrackID, res.Title, res.Artist, res.Quality, res.Path, res.Bytes, res.Source)
	if err := a.repo.Create(d); err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}

	return nil
}
