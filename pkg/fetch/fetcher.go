// Package fetch provides the network capability used by the offline worker.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/offline-cache/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for network fetches.
var (
	fetchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offline_fetch_requests_total",
		Help: "Total network fetches by response status",
	}, []string{"status"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "offline_fetch_duration_seconds",
		Help:    "Network fetch duration in seconds by host",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"host"})

	fetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offline_fetch_errors_total",
		Help: "Total network fetch errors by class",
	}, []string{"class"})
)

// Fetcher performs a network request.
// A returned error means no response was obtained at all.
type Fetcher interface {
	Fetch(ctx context.Context, req *http.Request) (*http.Response, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, req *http.Request) (*http.Response, error)

// Fetch calls f(ctx, req).
func (f FetcherFunc) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	return f(ctx, req)
}

// Config holds the fetcher configuration.
type Config struct {
	// HTTPClient performs the requests. Its timeout is the only one applied.
	HTTPClient *http.Client

	// UserAgent is set on outgoing requests that carry none.
	UserAgent string
}

// DefaultConfig returns a default fetcher configuration.
func DefaultConfig() Config {
	return Config{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		UserAgent: "offline-cache/0.1.0",
	}
}

// HTTPFetcher fetches over net/http.
type HTTPFetcher struct {
	httpClient *http.Client
	userAgent  string
	logger     zerolog.Logger
}

var _ Fetcher = (*HTTPFetcher)(nil)

// New creates a new HTTPFetcher.
func New(cfg Config) *HTTPFetcher {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = DefaultConfig().HTTPClient
	}

	return &HTTPFetcher{
		httpClient: httpClient,
		userAgent:  cfg.UserAgent,
		logger:     logging.NewLogger(logging.ComponentFetch),
	}
}

// Fetch sends req with ctx. The request is cloned, so server-side requests
// received by a proxy can be passed straight through.
func (f *HTTPFetcher) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req == nil || req.URL == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}

	out := req.Clone(ctx)
	out.RequestURI = ""
	if out.Header.Get("User-Agent") == "" && f.userAgent != "" {
		out.Header.Set("User-Agent", f.userAgent)
	}

	startTime := time.Now()
	defer func() {
		fetchDuration.WithLabelValues(out.URL.Host).Observe(time.Since(startTime).Seconds())
	}()

	f.logger.Debug().
		Str("url", out.URL.String()).
		Str("method", out.Method).
		Msg("Fetching from network")

	resp, err := f.httpClient.Do(out)
	if err != nil {
		class := ClassifyError(err)
		fetchErrorsTotal.WithLabelValues(string(class)).Inc()
		fetchRequestsTotal.WithLabelValues("network_error").Inc()
		f.logger.Warn().
			Err(err).
			Str("url", out.URL.String()).
			Str("error_class", string(class)).
			Msg("Network fetch failed")
		return nil, &FetchError{URL: out.URL.String(), ErrorClass: class, Err: err}
	}

	fetchRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	if class := ClassifyStatus(resp.StatusCode); class != "" {
		fetchErrorsTotal.WithLabelValues(string(class)).Inc()
		f.logger.Debug().
			Str("url", out.URL.String()).
			Int("status_code", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Network fetch returned error status")
	}

	return resp, nil
}
