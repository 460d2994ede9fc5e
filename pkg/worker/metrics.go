package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Response sources.
const (
	sourceCache    = "cache"
	sourceNetwork  = "network"
	sourceFallback = "fallback"
	sourceNone     = "none"
)

// Prometheus metrics for worker operations.
var (
	workerResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offline_worker_responses_total",
		Help: "Intercepted requests by strategy and response source",
	}, []string{"strategy", "source"})

	workerFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offline_worker_fallbacks_total",
		Help: "Offline fallback documents served",
	}, []string{"document"})

	workerBackgroundWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offline_worker_background_writes_total",
		Help: "Detached store writes by result",
	}, []string{"result"})

	workerStaleStoresDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offline_worker_stale_stores_deleted_total",
		Help: "Stale stores deleted during activation",
	})

	workerLifecycleTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offline_worker_lifecycle_total",
		Help: "Lifecycle phases by result",
	}, []string{"phase", "result"})
)
