package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/vyra/internal/models"
	"github.com/desertthunder/vyra/internal/shared"
)

const downloadColumns = `id, sequence, track_id, title, artist, quality, path, size_bytes, source, created_at, updated_at, deleted_at`

var _ models.Repository[*models.Download] = (*DownloadRepository)(nil)

// DownloadRepository implements models.Repository[*models.Download] for the download history.
//
// Deletes are soft; deleted rows are excluded from every query.
type DownloadRepository struct {
	db *sql.DB
}

// NewDownloadRepository creates a new DownloadRepository with the given database connection
func NewDownloadRepository(db *sql.DB) *DownloadRepository {
	return &DownloadRepository{db: db}
}

// Create inserts a new [models.Download] with a generated ID and sequence
func (r *DownloadRepository) Create(d *models.Download) error {
	sequence, err := NextSequence(r.db, "downloads")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	d.SetID(shared.GenerateID())
	d.SetSequence(sequence)

	if err := d.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO downloads (id, sequence, track_id, title, artist, quality, path, size_bytes, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		d.ID(),
		d.Sequence(),
		d.TrackID(),
		d.Title(),
		d.Artist(),
		d.Quality(),
		d.Path(),
		d.SizeBytes(),
		d.Source(),
		d.CreatedAt(),
		d.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert download: %w", err)
	}

	return nil
}

// Get retrieves a download by ID, excluding soft-deleted rows
func (r *DownloadRepository) Get(id string) (*models.Download, error) {
	query := `SELECT ` + downloadColumns + ` FROM downloads WHERE id = ? AND deleted_at IS NULL`
	return scanDownload(r.db.QueryRow(query, id))
}

// GetByTrackID retrieves the most recent download of a track
func (r *DownloadRepository) GetByTrackID(trackID string) (*models.Download, error) {
	query := `
		SELECT ` + downloadColumns + `
		FROM downloads
		WHERE track_id = ? AND deleted_at IS NULL
		ORDER BY sequence DESC
		LIMIT 1
	`
	return scanDownload(r.db.QueryRow(query, trackID))
}

// Delete soft-deletes a download by ID
func (r *DownloadRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE downloads SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete download: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: download %s", shared.ErrRecordNotFound, id)
	}

	return nil
}

// List retrieves downloads in sequence order, excluding soft-deleted rows.
//
// Supported criteria: "track_id" (string), "artist" (string), "limit" (int).
func (r *DownloadRepository) List(criteria map[string]any) ([]*models.Download, error) {
	query := `SELECT ` + downloadColumns + ` FROM downloads WHERE deleted_at IS NULL`
	args := []any{}

	if trackID, ok := criteria["track_id"].(string); ok && trackID != "" {
		query += " AND track_id = ?"
		args = append(args, trackID)
	}

	if artist, ok := criteria["artist"].(string); ok && artist != "" {
		query += " AND artist = ?"
		args = append(args, artist)
	}

	query += " ORDER BY sequence ASC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query downloads: %w", err)
	}
	defer rows.Close()

	var downloads []*models.Download
	for rows.Next() {
		d, err := scanDownload(rows)
		if err != nil {
			return nil, err
		}
		downloads = append(downloads, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return downloads, nil
}

// scanner is satisfied by both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

func scanDownload(s scanner) (*models.Download, error) {
	var (
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
		deletedAt sql.NullTime
	)

	err := s.Scan(&id, &sequence, &trackID, &title, &artist, &quality, &path, &sizeBytes, &source, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: download", shared.ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan download: %w", err)
	}

	d := models.NewDownload(sequence, trackID, title, artist, quality, path, sizeBytes, source)
	d.SetID(id)
	d.SetCreatedAt(createdAt)
	d.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		d.SetDeletedAt(&deletedAt.Time)
	}

	return d, nil
}
