package tasks

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// BatchOpts contains configuration for bulk downloads.
type BatchOpts struct {
	Workers   int     // Concurrent workers (default: 3, max: 8)
	RateLimit float64 // Downloads started per second (default: 2)
}

// BatchItem is the outcome of one request in a batch.
type BatchItem struct {
	Request DownloadRequest
	Result  *DownloadResult
	Err     error
}

// BatchResult summarizes a bulk download.
type BatchResult struct {
	Items     []BatchItem
	Succeeded int
	Failed    int
}

// DownloadMany downloads reqs with a worker pool, starting at most opts.RateLimit
// downloads per second. Items are returned in request order; a failed item does
// not stop the batch.
func (d *Downloader) DownloadMany(ctx context.Context, reqs []DownloadRequest, opts BatchOpts, progress chan<- ProgressUpdate) *BatchResult {
	if opts.Workers <= 0 {
		opts.Workers = 3
	}
	if opts.Workers > 8 {
		opts.Workers = 8
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2.0
	}

	type job struct {
		index int
		req   DownloadRequest
	}

	items := make([]BatchItem, len(reqs))
	jobs := make(chan job)
	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
	)

	finish := func(i int, item BatchItem) {
		mu.Lock()
		items[i] = item
		completed++
		step := completed
		mu.Unlock()
		sendProgress(progress, batchCompletedUpdate(step, len(reqs), item))
	}

	for range opts.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				res, err := d.Download(ctx, j.req, nil)
				finish(j.index, BatchItem{Request: j.req, Result: res, Err: err})
			}
		}()
	}

	for i, req := range reqs {
		if err := limiter.Wait(ctx); err != nil {
			for k := i; k < len(reqs); k++ {
				finish(k, BatchItem{Request: reqs[k], Err: err})
			}
			break
		}
		jobs <- job{index: i, req: req}
	}
	close(jobs)
	wg.Wait()

	result := &BatchResult{Items: items}
	for _, item := range items {
		if item.Err != nil {
			result.Failed++
		} else {
			result.Succeeded++
		}
	}
	return result
}
