package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/Sternrassler/offline-cache/pkg/cache"
	"github.com/Sternrassler/offline-cache/pkg/fetch"
	"github.com/Sternrassler/offline-cache/pkg/logging"
	"github.com/Sternrassler/offline-cache/pkg/metrics"
	"github.com/Sternrassler/offline-cache/pkg/worker"
	"github.com/rs/zerolog"
)

// proxy hosts the active worker version. It is the worker's Controller: a
// version that claims clients receives every request from then on.
// Replaced versions are kept until their background writes finish.
type proxy struct {
	active  atomic.Pointer[worker.Worker]
	fetcher fetch.Fetcher
	logger  zerolog.Logger

	mu      sync.Mutex
	retired []*worker.Worker
}

var _ worker.Controller = (*proxy)(nil)

func newProxy(fetcher fetch.Fetcher) *proxy {
	return &proxy{
		fetcher: fetcher,
		logger:  logging.NewLogger(logging.ComponentProxy),
	}
}

// Claim makes w the active version.
func (p *proxy) Claim(ctx context.Context, w *worker.Worker) error {
	prev := p.active.Swap(w)
	if prev != nil {
		p.retire(prev)
	}
	event := p.logger.Info().
		Str("shell_cache", w.Config().ShellCache).
		Str("dynamic_cache", w.Config().DynamicCache)
	if prev != nil {
		event = event.Str("previous_shell_cache", prev.Config().ShellCache)
	}
	event.Msg("Worker version claimed clients")
	return nil
}

func (p *proxy) retire(w *worker.Worker) {
	p.mu.Lock()
	defer p.mu.Unlock()

	kept := p.retired[:0]
	for _, r := range p.retired {
		if r.KeepAlive().Pending() > 0 {
			kept = append(kept, r)
		}
	}
	p.retired = append(kept, w)
}

// versions returns the retired versions followed by the active one.
func (p *proxy) versions() []*worker.Worker {
	p.mu.Lock()
	out := append([]*worker.Worker(nil), p.retired...)
	p.mu.Unlock()
	if w := p.active.Load(); w != nil {
		out = append(out, w)
	}
	return out
}

// Drain waits for the background writes of every version, retired ones
// included, or until ctx is done.
func (p *proxy) Drain(ctx context.Context) error {
	for _, w := range p.versions() {
		if err := w.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Pending returns the number of background writes still running.
func (p *proxy) Pending() int {
	n := 0
	for _, w := range p.versions() {
		n += w.KeepAlive().Pending()
	}
	return n
}

// Active returns the version in control, or nil.
func (p *proxy) Active() *worker.Worker {
	return p.active.Load()
}

func (p *proxy) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	w := p.active.Load()
	if w == nil {
		metrics.ProxyRequests.WithLabelValues("unavailable").Inc()
		http.Error(rw, "offline cache is not active", http.StatusServiceUnavailable)
		return
	}

	resp, err := w.HandleFetch(ctx, r)
	outcome := "intercepted"
	if errors.Is(err, worker.ErrNotIntercepted) {
		outcome = "passthrough"
		resp, err = p.passthrough(ctx, w, r)
	}

	if err != nil {
		outcome = "error"
		if errors.Is(err, worker.ErrNoResponse) {
			outcome = "unavailable"
		}
		metrics.ProxyRequests.WithLabelValues(outcome).Inc()
		p.logger.Warn().Err(err).Str("method", r.Method).Str("url", r.URL.String()).Msg("Request failed")
		http.Error(rw, fmt.Sprintf("request failed: %v", err), http.StatusBadGateway)
		return
	}

	metrics.ProxyRequests.WithLabelValues(outcome).Inc()
	p.writeResponse(rw, resp)
}

// passthrough forwards a request the worker does not handle.
func (p *proxy) passthrough(ctx context.Context, w *worker.Worker, r *http.Request) (*http.Response, error) {
	out := r.Clone(ctx)
	out.URL = w.ResolveURL(r)
	out.Host = ""
	out.RequestURI = ""
	worker.RemoveHopHeaders(out.Header)

	resp, err := p.fetcher.Fetch(ctx, out)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, worker.ErrNoResponse
	}
	return resp, nil
}

func (p *proxy) writeResponse(rw http.ResponseWriter, resp *http.Response) {
	defer resp.Body.Close()

	if fetch.IsErrorResponse(resp) {
		http.Error(rw, "network error", http.StatusBadGateway)
		return
	}

	header := rw.Header()
	for key, values := range resp.Header {
		for _, value := range values {
			header.Add(key, value)
		}
	}
	worker.RemoveHopHeaders(header)

	rw.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(rw, resp.Body); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to write response")
	}
}

// installVersion installs and activates a worker version. On failure the
// version in control, if any, stays in control.
func installVersion(ctx context.Context, cfg worker.Config, storage cache.Storage, fetcher fetch.Fetcher, p *proxy) (*worker.Worker, error) {
	w, err := worker.New(cfg, storage, fetcher)
	if err != nil {
		return nil, err
	}
	if err := w.Install(ctx); err != nil {
		return nil, err
	}
	if err := w.Activate(ctx, p); err != nil {
		return nil, err
	}
	return w, nil
}
