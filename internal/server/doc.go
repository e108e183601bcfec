// Package server is the local HTTP surface of vyra: a range-capable audio proxy
// and a small JSON control API, both served from one loopback listener.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter]
// implements it on a chi mux, so path parameters are read with chi.URLParam.
//
// [Middleware] wraps handlers in reverse order (last added executes first). Handlers
// registered through [BasicRouter.Handler] receive every method so that [CORS] can
// answer preflight requests before a handler rejects the method.
//
// # Audio Proxy
//
// [AudioProxy] serves GET /audio/{trackID}. A materialized track is answered from
// the in-memory cache with full Range support. Otherwise the registered backing URL
// is fetched in a bounded window (see [UpstreamWindow]) and streamed back as 206.
//
// # Control API
//
// [ControlHandler] lets out-of-process collaborators resolve tracks, fill or clear
// the cache and trigger downloads. Errors are JSON objects with an "error" field.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler
// interface and adds routes, keeping route definitions within the implementation.
package server
