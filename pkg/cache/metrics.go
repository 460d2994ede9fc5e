package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks lookups answered by a store
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_hits_total",
			Help: "Total number of store lookups that found an entry",
		},
		[]string{"store"},
	)

	// CacheMisses tracks lookups that found nothing
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_misses_total",
			Help: "Total number of store lookups that found no entry",
		},
		[]string{"store"},
	)

	// CacheWrites tracks entries written into a store
	CacheWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_writes_total",
			Help: "Total number of entries written to a store",
		},
		[]string{"store"},
	)

	// CacheStoredBytes tracks body bytes written into a store
	CacheStoredBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_stored_bytes_total",
			Help: "Total response body bytes written to a store",
		},
		[]string{"store"},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "open", "match", "put", "keys", "delete"
	)
)

func recordWrite(store string, entries ...*Entry) {
	for _, e := range entries {
		CacheWrites.WithLabelValues(store).Inc()
		CacheStoredBytes.WithLabelValues(store).Add(float64(e.Size()))
	}
}
