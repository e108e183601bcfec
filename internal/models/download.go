package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/vyra/internal/shared"
)

// Download is a track saved to disk, as recorded in the download history.
type Download struct {
	id        string
	sequence  int
	trackID   string
	title     string
	artist    string
	quality   string
	path      string
	sizeBytes int64
	source    string
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewDownload creates a [Download] with creation and update times set to now.
// The ID is assigned by the repository on insert.
func NewDownload(sequence int, trackID, title, artist, quality, path string, sizeBytes int64, source string) *Download {
	now := time.Now()
	return &Download{
		sequence:  sequence,
		trackID:   trackID,
		title:     title,
		artist:    artist,
		quality:   quality,
		path:      path,
		sizeBytes: sizeBytes,
		source:    source,
		createdAt: now,
		updatedAt: now,
	}
}

func (d *Download) ID() string                { return d.id }
func (d *Download) Sequence() int             { return d.sequence }
func (d *Download) TrackID() string           { return d.trackID }
func (d *Download) Title() string             { return d.title }
func (d *Download) Artist() string            { return d.artist }
func (d *Download) Quality() string           { return d.quality }
func (d *Download) Path() string              { return d.path }
func (d *Download) SizeBytes() int64          { return d.sizeBytes }
func (d *Download) Source() string            { return d.source }
func (d *Download) CreatedAt() time.Time      { return d.createdAt }
func (d *Download) UpdatedAt() time.Time      { return d.updatedAt }
func (d *Download) DeletedAt() *time.Time     { return d.deletedAt }
func (d *Download) SetID(id string)           { d.id = id }
func (d *Download) SetSequence(n int)         { d.sequence = n }
func (d *Download) SetCreatedAt(t time.Time)  { d.createdAt = t }
func (d *Download) SetUpdatedAt(t time.Time)  { d.updatedAt = t }
func (d *Download) SetDeletedAt(t *time.Time) { d.deletedAt = t }

// Validate checks that the record can be written to the history table.
func (d *Download) Validate() error {
	if d.id == "" {
		return fmt.Errorf("%w: download id is required", shared.ErrInvalidInput)
	}
	if !shared.ValidTrackID(d.trackID) {
		return fmt.Errorf("%w: %q", shared.ErrInvalidTrackID, d.trackID)
	}
	if d.path == "" {
		return fmt.Errorf("%w: download path is required", shared.ErrInvalidInput)
	}
	if d.sizeBytes < 0 {
		return fmt.Errorf("%w: negative size %d", shared.ErrInvalidInput, d.sizeBytes)
	}
	return nil
}
