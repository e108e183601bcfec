// Package tasks runs long-running track operations with progress reporting.
//
// # Downloads
//
// [Downloader.Download] writes one track to disk. The backing URL comes from the
// registry when the track was already resolved for playback, otherwise from a
// [Locator] at the requested quality. Files land in "{dir}/VYRA" named
// "{artist} - {title}.{ext}" with unsafe characters replaced by underscores.
//
// [Downloader.DownloadMany] runs a bounded worker pool behind a rate limiter and
// collects per-item results in request order.
//
// # Progress Reporting
//
// Operations accept an optional channel of [ProgressUpdate]. Sends never block;
// updates are dropped when the channel is full.
//
// # History
//
// The optional [Recorder] persists each finished download. Record failures are
// logged and do not fail the download.
package tasks
