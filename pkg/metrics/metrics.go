// Package metrics provides the Prometheus registry and HTTP exposition for
// the offline cache. Component metrics are defined in their own packages
// (cache, fetch, worker) via promauto and land in the same registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the offline cache.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// ProxyRequests counts requests handled by the offline proxy by outcome
// (intercepted, passthrough, unavailable, error).
var ProxyRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "offline_proxy_requests_total",
		Help: "Requests handled by the offline proxy by outcome",
	},
	[]string{"outcome"},
)

// Handler serves the default gatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - offline_cache_hits_total{store} (Counter): Entries served from a store
//   - offline_cache_misses_total{store} (Counter): Lookups without an entry
//   - offline_cache_writes_total{store} (Counter): Entries written
//   - offline_cache_stored_bytes_total{store} (Counter): Body bytes written
//   - offline_cache_errors_total{operation} (Counter): Storage backend errors
//
// Fetch Metrics (pkg/fetch):
//   - offline_fetch_requests_total{status} (Counter): Network fetches by status
//   - offline_fetch_duration_seconds{host} (Histogram): Fetch duration by host
//   - offline_fetch_errors_total{class} (Counter): Errors by class (client, server, network, timeout, canceled)
//
// Worker Metrics (pkg/worker):
//   - offline_worker_responses_total{strategy, source} (Counter): Responses by source (cache, network, fallback, none)
//   - offline_worker_fallbacks_total{document} (Counter): Offline documents served
//   - offline_worker_background_writes_total{result} (Counter): Detached writes by result
//   - offline_worker_stale_stores_deleted_total (Counter): Stores purged on activation
//   - offline_worker_lifecycle_total{phase, result} (Counter): install, activate and claim outcomes
//
// Proxy Metrics (pkg/metrics):
//   - offline_proxy_requests_total{outcome} (Counter): Proxy requests by outcome
//
// Example Prometheus Queries:
//
//   # Dynamic cache hit rate
//   sum(rate(offline_cache_hits_total{store=~"dynamic.*"}[5m])) /
//   (sum(rate(offline_cache_hits_total{store=~"dynamic.*"}[5m])) + sum(rate(offline_cache_misses_total{store=~"dynamic.*"}[5m])))
//
//   # Share of requests answered offline
//   sum(rate(offline_worker_responses_total{source="fallback"}[5m])) /
//   sum(rate(offline_worker_responses_total[5m]))
//
//   # Failed background writes
//   rate(offline_worker_background_writes_total{result="error"}[5m])
//
//   # P95 fetch latency
//   histogram_quantile(0.95, rate(offline_fetch_duration_seconds_bucket[5m]))
