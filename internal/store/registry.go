package store

import "sync"

// Registry maps a track id to the backing URL it was last resolved to.
//
// Entries are overwritten on every resolution and live until [Registry.Clear] or
// process exit.
type Registry struct {
	mu   sync.RWMutex
	urls map[string]string
}

// NewRegistry creates an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{urls: make(map[string]string)}
}

// Set records url as the backing URL of id, replacing any previous entry.
func (r *Registry) Set(id, url string) {
	r.mu.Lock()
	r.urls[id] = url
	r.mu.Unlock()
}

// Get returns the backing URL of id.
func (r *Registry) Get(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	url, ok := r.urls[id]
	return url, ok
}

func (r *Registry) Delete(id string) {
	r.mu.Lock()
	delete(r.urls, id)
	r.mu.Unlock()
}

// Clear removes every entry.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.urls = make(map[string]string)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.urls)
}
