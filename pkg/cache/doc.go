// Package cache provides named response stores for the offline worker.
//
// A Storage is the host capability that owns stores by name; a Store maps a
// request identity (method and URL) to a response snapshot. Only GET requests
// are ever stored or matched.
//
// # Backends
//
//   - MemoryStorage keeps everything in process memory
//   - RedisStorage keeps store names in a sorted set ordered by creation time
//     and each store as one hash; bodies above 1 KiB are zstd compressed
//
// # Basic Usage
//
//	storage := cache.NewRedis(redis.NewClient(&redis.Options{Addr: "localhost:6379"}))
//
//	store, err := storage.Open(ctx, "dynamic-cache-v1")
//	if err != nil {
//		return err
//	}
//
//	entry, err := store.Match(ctx, req)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from network
//	}
//
// # Response Snapshots
//
// A response body can only be read once. ResponseToEntry reads it, hands the
// response a fresh reader and returns an entry owning its own copy of the
// bytes, so the response can be returned to a caller while the entry is
// written in the background:
//
//	entry, err := cache.ResponseToEntry(req, resp)
//	go store.Put(context.WithoutCancel(ctx), req, entry)
//	return resp
//
// # Metrics
//
//   - offline_cache_hits_total{store}
//   - offline_cache_misses_total{store}
//   - offline_cache_writes_total{store}
//   - offline_cache_stored_bytes_total{store}
//   - offline_cache_errors_total{operation}
//
// Eviction is per store only: a version bump replaces the whole store.
package cache
