// Package store holds the process-wide state shared by the stream resolver and the
// audio proxy: the track URL registry, the in-memory audio cache and the upstream
// visitor token.
//
// Each store is an owned value created by its constructor and injected into the
// components that use it. Locks are held only for map access, never across I/O.
package store
