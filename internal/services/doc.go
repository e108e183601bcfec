// Package services resolves playable audio for YouTube Music track ids.
//
// # Resolution chain
//
// [StreamResolver] walks an ordered list of [Source] strategies. The default chain
// built by [DefaultSources] is one [PersonaSource] per entry of [DefaultPersonas]
// followed by one [PipedSource] per secondary mirror. A source that fails in
// transport, is rejected, or offers no audio is skipped without retry.
//
// A successful [StreamResolver.Resolve] writes the backing URL into the registry
// and returns the local proxy URL. [StreamResolver.Locate] performs the same walk
// with a caller-chosen [Quality] and leaves the registry alone.
//
// # Innertube client
//
// [YouTubeService] posts to the youtubei/v1 endpoints. Player calls carry the
// persona headers and a signature timestamp in days since the epoch. Search,
// suggestions, next and browse return raw JSON; [CollectVideoIDs] turns those into
// track ids.
//
// # Caching
//
// [Materializer] downloads the full audio of a resolved track into the in-memory
// cache.
//
// # Error Handling
//
// Errors wrap sentinels from the shared package:
//   - [shared.ErrTransport] : network failure talking to a provider
//   - [shared.ErrUpstreamRejected] : non-2xx status or not playable
//   - [shared.ErrStreamNotFound] : every source exhausted
//   - [shared.ErrNoStreamURL] : materialize called before resolve
//
// [APIService] is a small client for the control API of a running server.
package services
