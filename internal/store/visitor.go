package store

import "sync"

// VisitorData is the opaque visitor token echoed back to the primary API.
//
// It starts empty and is replaced by whichever response carried a token last.
type VisitorData struct {
	mu    sync.RWMutex
	value string
}

func NewVisitorData() *VisitorData {
	return &VisitorData{}
}

func (v *VisitorData) Get() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Set replaces the token. Empty values are ignored.
func (v *VisitorData) Set(value string) {
	if value == "" {
		return
	}
	v.mu.Lock()
	v.value = value
	v.mu.Unlock()
}
