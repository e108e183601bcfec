package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Resolution errors
	ErrTransport        = fmt.Errorf("upstream transport failure")
	ErrUpstreamRejected = fmt.Errorf("upstream rejected request")
	ErrStreamNotFound   = fmt.Errorf("no stream available")
	ErrNoStreamURL      = fmt.Errorf("no stream url")

	// Cache and download errors
	ErrCacheMiss      = fmt.Errorf("audio not cached")
	ErrDownloadFailed = fmt.Errorf("download failed")

	// Persistence errors
	ErrRecordNotFound = fmt.Errorf("record not found")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// Input validation errors
	ErrInvalidTrackID  = fmt.Errorf("invalid track id")
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
