package store

import "sync"

// AudioCache holds fully downloaded audio by track id.
//
// Presence of an entry means the complete content is available. Entries are never
// modified after the first [AudioCache.Put] and the returned slices must be treated
// as read-only.
type AudioCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
	size    int64
}

// NewAudioCache creates an empty [AudioCache].
func NewAudioCache() *AudioCache {
	return &AudioCache{entries: make(map[string][]byte)}
}

// Get returns the cached bytes of id.
func (c *AudioCache) Get(id string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.entries[id]
	return data, ok
}

// Put stores data for id. It reports false and leaves the cache unchanged when id
// is already present.
func (c *AudioCache) Put(id string, data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[id]; ok {
		return false
	}
	c.entries[id] = data
	c.size += int64(len(data))
	return true
}

func (c *AudioCache) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[id]
	return ok
}

// Clear drops every entry at once.
func (c *AudioCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string][]byte)
	c.size = 0
	c.mu.Unlock()
}

func (c *AudioCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Bytes is the total size of all cached audio.
func (c *AudioCache) Bytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.size
}
