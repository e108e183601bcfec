package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/desertthunder/vyra/internal/models"
	"github.com/desertthunder/vyra/internal/shared"
	"github.com/desertthunder/vyra/internal/tasks"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func newDownload(trackID string) *models.Download {
	return models.NewDownload(0, trackID, "Song "+trackID, "Artist", "high", "/music/VYRA/"+trackID+".webm", 1024, "ANDROID_MUSIC")
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "downloads")
		if err != nil {
			t.Fatalf("failed to get sequence: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for table without sequence")
	}
}

func TestDownloadRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDownloadRepository(db)
		d := newDownload("abc")

		if err := repo.Create(d); err != nil {
			t.Fatalf("failed to create download: %v", err)
		}

		if d.ID() == "" {
			t.Error("download ID should be set after creation")
		}
		if d.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", d.Sequence())
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDownloadRepository(db)
		d := newDownload("abc")
		if err := repo.Create(d); err != nil {
			t.Fatalf("failed to create download: %v", err)
		}

		got, err := repo.Get(d.ID())
		if err != nil {
			t.Fatalf("failed to get download: %v", err)
		}

		if got.TrackID() != "abc" {
			t.Errorf("expected track abc, got %s", got.TrackID())
		}
		if got.Path() != d.Path() {
			t.Errorf("expected path %s, got %s", d.Path(), got.Path())
		}
		if got.SizeBytes() != 1024 {
			t.Errorf("expected 1024 bytes, got %d", got.SizeBytes())
		}
		if got.Source() != "ANDROID_MUSIC" {
			t.Errorf("expected source ANDROID_MUSIC, got %s", got.Source())
		}
		if got.DeletedAt() != nil {
			t.Error("expected no deleted_at")
		}
	})

	t.Run("GetByTrackID returns newest", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDownloadRepository(db)
		first := newDownload("abc")
		second := newDownload("abc")
		for _, d := range []*models.Download{first, second} {
			if err := repo.Create(d); err != nil {
				t.Fatalf("failed to create download: %v", err)
			}
		}

		got, err := repo.GetByTrackID("abc")
		if err != nil {
			t.Fatalf("failed to get download: %v", err)
		}
		if got.ID() != second.ID() {
			t.Errorf("expected newest download %s, got %s", second.ID(), got.ID())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDownloadRepository(db)
		d := newDownload("abc")
		if err := repo.Create(d); err != nil {
			t.Fatalf("failed to create download: %v", err)
		}

		if err := repo.Delete(d.ID()); err != nil {
			t.Fatalf("failed to delete download: %v", err)
		}

		if _, err := repo.Get(d.ID()); !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound, got %v", err)
		}

		if err := repo.Delete(d.ID()); !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound on second delete, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDownloadRepository(db)
		for _, id := range []string{"a1", "b2", "a1", "c3"} {
			if err := repo.Create(newDownload(id)); err != nil {
				t.Fatalf("failed to create download: %v", err)
			}
		}

		all, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list downloads: %v", err)
		}
		if len(all) != 4 {
			t.Fatalf("expected 4 downloads, got %d", len(all))
		}
		for i, d := range all {
			if d.Sequence() != i+1 {
				t.Errorf("expected sequence order, got %d at %d", d.Sequence(), i)
			}
		}

		filtered, err := repo.List(map[string]any{"track_id": "a1"})
		if err != nil {
			t.Fatalf("failed to list downloads: %v", err)
		}
		if len(filtered) != 2 {
			t.Errorf("expected 2 downloads of a1, got %d", len(filtered))
		}

		limited, err := repo.List(map[string]any{"limit": 1})
		if err != nil {
			t.Fatalf("failed to list downloads: %v", err)
		}
		if len(limited) != 1 {
			t.Errorf("expected 1 download, got %d", len(limited))
		}
	})
}

func TestDownloadRepositoryErrors(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		tests := []struct {
			name string
			d    *models.Download
		}{
			{name: "invalid track id", d: models.NewDownload(0, "a/b", "t", "a", "high", "/x.webm", 1, "s")},
			{name: "missing path", d: models.NewDownload(0, "abc", "t", "a", "high", "", 1, "s")},
			{name: "negative size", d: models.NewDownload(0, "abc", "t", "a", "high", "/x.webm", -1, "s")},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				db := setupTestDB(t)
				defer db.Close()

				if err := NewDownloadRepository(db).Create(tt.d); err == nil {
					t.Fatal("expected validation error")
				}
			})
		}
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			if _, err := NewDownloadRepository(db).Get("nonexistent-id"); !errors.Is(err, shared.ErrRecordNotFound) {
				t.Fatalf("expected ErrRecordNotFound, got %v", err)
			}
		})
	})

	t.Run("ClosedDatabase", func(t *testing.T) {
		db := setupTestDB(t)
		db.Close()

		repo := NewDownloadRepository(db)
		if err := repo.Create(newDownload("abc")); err == nil {
			t.Error("expected error on closed database")
		}
		if _, err := repo.List(nil); err == nil {
			t.Error("expected error on closed database")
		}
	})
}

func TestDownloadRecorder(t *testing.T) {
	t.Run("records result", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDownloadRepository(db)
		recorder := NewDownloadRecorder(repo)

		res := &tasks.DownloadResult{
			TrackID: "abc",
			Title:   "Song",
			Artist:  "Band",
			Path:    "/music/VYRA/Band - Song.webm",
			Bytes:   2048,
			Source:  "piped:https://pipedapi.kavin.rocks",
			Quality: "very_high",
		}
		if err := recorder.RecordDownload(context.Background(), res); err != nil {
			t.Fatalf("failed to record download: %v", err)
		}

		got, err := repo.GetByTrackID("abc")
		if err != nil {
			t.Fatalf("failed to get download: %v", err)
		}
		if got.Artist() != "Band" || got.Quality() != "very_high" || got.SizeBytes() != 2048 {
			t.Errorf("unexpected record %+v", got)
		}
	})

	t.Run("cancelled context skips write", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDownloadRepository(db)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := NewDownloadRecorder(repo).RecordDownload(ctx, &tasks.DownloadResult{TrackID: "abc", Path: "/x"})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}

		all, _ := repo.List(nil)
		if len(all) != 0 {
			t.Errorf("expected no rows, got %d", len(all))
		}
	})
}
