package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Resolve Phase = iota
	Fetch
	Write
	Record
	Batch
)

func (p Phase) String() string {
	switch p {
	case Resolve:
		return "resolve"
	case Fetch:
		return "fetch"
	case Write:
		return "write"
	case Record:
		return "record"
	case Batch:
		return "batch"
	default:
		return ""
	}
}

// sendProgress sends an update without blocking; updates are dropped when the
// channel is full.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func resolveUpdate(id string, fromRegistry bool) ProgressUpdate {
	msg := fmt.Sprintf("Resolving stream for %s...", id)
	if fromRegistry {
		msg = fmt.Sprintf("Using resolved stream for %s", id)
	}
	return ProgressUpdate{Phase: Resolve, Step: 1, Total: 4, Message: msg}
}

func fetchUpdate(id, source string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Fetch,
		Step:    2,
		Total:   4,
		Message: fmt.Sprintf("Downloading %s (%s)...", id, source),
	}
}

func writeUpdate(path string, n int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Write,
		Step:    3,
		Total:   4,
		Message: fmt.Sprintf("Wrote %d bytes to %s", n, path),
	}
}

func recordUpdate(res *DownloadResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Record,
		Step:    4,
		Total:   4,
		Message: fmt.Sprintf("Recorded %s - %s", res.Artist, res.Title),
		Data:    res,
	}
}

func batchCompletedUpdate(step, total int, item BatchItem) ProgressUpdate {
	if item.Err != nil {
		return ProgressUpdate{
			Phase:   Batch,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, item.Request.TrackID, item.Err),
			Data:    item,
		}
	}
	return ProgressUpdate{
		Phase:   Batch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, item.Result.Path),
		Data:    item,
	}
}
