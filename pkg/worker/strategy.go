package worker

import (
	"context"
	"errors"
	"net/http"

	"github.com/Sternrassler/offline-cache/pkg/cache"
	"github.com/Sternrassler/offline-cache/pkg/fetch"
	"github.com/rs/zerolog"
)

// handler answers one intercepted request.
type handler interface {
	Strategy() Strategy
	Handle(ctx context.Context, req *http.Request) (*http.Response, error)
}

func newHandler(s Strategy, store cache.Store, fetcher fetch.Fetcher, fallback *Fallback, keepAlive *KeepAlive, logger zerolog.Logger) handler {
	base := strategyBase{
		store:    store,
		fetcher:  fetcher,
		fallback: fallback,
		logger:   logger.With().Str("strategy", string(s)).Str("store", store.Name()).Logger(),
	}
	if s == StrategyCacheFirst {
		return &cacheFirst{strategyBase: base, keepAlive: keepAlive}
	}
	return &cacheOnly{strategyBase: base}
}

type strategyBase struct {
	store    cache.Store
	fetcher  fetch.Fetcher
	fallback *Fallback
	logger   zerolog.Logger
}

// lookup returns the cached response for req, or nil on a miss.
// Store errors other than a miss are logged and treated as a miss.
func (b *strategyBase) lookup(ctx context.Context, req *http.Request) *http.Response {
	entry, err := b.store.Match(ctx, req)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			b.logger.Warn().Err(err).Str("url", req.URL.String()).Msg("Cache lookup failed")
		}
		return nil
	}
	return cache.EntryToResponse(entry, req)
}

// recover serves the fallback document or reports ErrNoResponse.
func (b *strategyBase) recover(ctx context.Context, s Strategy, req *http.Request, cause error) (*http.Response, error) {
	resp, err := b.fallback.Resolve(ctx, req, cause)
	if err != nil {
		workerResponsesTotal.WithLabelValues(string(s), sourceNone).Inc()
		b.logger.Error().Err(cause).Str("url", req.URL.String()).Msg("Cache and network both failed")
		return nil, err
	}
	workerResponsesTotal.WithLabelValues(string(s), sourceFallback).Inc()
	return resp, nil
}

// cacheOnly serves from the store; the network is a last resort for entries
// that should have been precached.
type cacheOnly struct {
	strategyBase
}

func (c *cacheOnly) Strategy() Strategy {
	return StrategyCacheOnly
}

func (c *cacheOnly) Handle(ctx context.Context, req *http.Request) (*http.Response, error) {
	if resp := c.lookup(ctx, req); resp != nil {
		c.logger.Debug().Str("url", req.URL.String()).Msg("Serving from cache")
		workerResponsesTotal.WithLabelValues(string(StrategyCacheOnly), sourceCache).Inc()
		return resp, nil
	}

	c.logger.Warn().Str("url", req.URL.String()).Msg("Precached entry missing, trying network")

	resp, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		return c.recover(ctx, StrategyCacheOnly, req, err)
	}
	if resp == nil {
		workerResponsesTotal.WithLabelValues(string(StrategyCacheOnly), sourceNone).Inc()
		return nil, ErrNoResponse
	}

	workerResponsesTotal.WithLabelValues(string(StrategyCacheOnly), sourceNetwork).Inc()
	return resp, nil
}

// cacheFirst serves from the store, otherwise fetches and stores a copy of
// valid responses in the background.
type cacheFirst struct {
	strategyBase
	keepAlive *KeepAlive
}

func (c *cacheFirst) Strategy() Strategy {
	return StrategyCacheFirst
}

func (c *cacheFirst) Handle(ctx context.Context, req *http.Request) (*http.Response, error) {
	if resp := c.lookup(ctx, req); resp != nil {
		c.logger.Debug().Str("url", req.URL.String()).Msg("Serving from cache")
		workerResponsesTotal.WithLabelValues(string(StrategyCacheFirst), sourceCache).Inc()
		return resp, nil
	}

	c.logger.Debug().Str("url", req.URL.String()).Msg("Cache miss, fetching from network")

	resp, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		return c.recover(ctx, StrategyCacheFirst, req, err)
	}

	if resp == nil {
		workerResponsesTotal.WithLabelValues(string(StrategyCacheFirst), sourceNone).Inc()
		return nil, ErrNoResponse
	}

	if !Cacheable(resp) {
		c.logger.Warn().
			Str("url", req.URL.String()).
			Int("status_code", resp.StatusCode).
			Msg("Invalid network response, not caching")
		workerResponsesTotal.WithLabelValues(string(StrategyCacheFirst), sourceNetwork).Inc()
		return resp, nil
	}

	// The entry owns its own copy of the body; resp gets a fresh reader.
	entry, err := cache.ResponseToEntry(req, resp)
	if err != nil {
		return c.recover(ctx, StrategyCacheFirst, req, err)
	}

	c.storeInBackground(ctx, entry)

	workerResponsesTotal.WithLabelValues(string(StrategyCacheFirst), sourceNetwork).Inc()
	return resp, nil
}

// storeInBackground writes entry without blocking the response. The write is
// detached from ctx cancellation and tracked by the keep-alive group.
func (c *cacheFirst) storeInBackground(ctx context.Context, entry *cache.Entry) {
	writeCtx := context.WithoutCancel(ctx)
	c.keepAlive.Go(func() {
		if err := c.store.PutAll(writeCtx, []*cache.Entry{entry}); err != nil {
			workerBackgroundWritesTotal.WithLabelValues("error").Inc()
			c.logger.Warn().Err(err).Str("url", entry.URL).Msg("Failed to cache response")
			return
		}
		workerBackgroundWritesTotal.WithLabelValues("ok").Inc()
		c.logger.Info().Str("url", entry.URL).Int("bytes", entry.Size()).Msg("Cached response")
	})
}

// Cacheable reports whether a network response may be stored: it must
// exist, have status 200 and not be a network-error typed response.
func Cacheable(resp *http.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusOK && !fetch.IsErrorResponse(resp)
}
