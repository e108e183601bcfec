// Package repositories implements SQLite persistence for the download history.
//
// [DownloadRepository] handles CRUD operations with atomic sequence generation for
// stable ordering. Deletes are soft via deleted_at timestamps, and deleted rows are
// excluded from queries.
//
// [DownloadRecorder] adapts the repository to the recorder interface used by the
// downloader, so every finished download is written to history.
//
// The [NextSequence] function atomically increments per-table sequence counters in
// dedicated sequence tables.
package repositories
