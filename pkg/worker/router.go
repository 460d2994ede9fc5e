package worker

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Sternrassler/offline-cache/pkg/manifest"
)

// HandleFetch routes one intercepted request to exactly one strategy.
//
// ErrNotIntercepted is returned for non-GET requests, requests matching no
// manifest class and any request before activation; the host then applies
// its default network handling. ErrNoResponse means the request failed
// with no substitute document.
func (w *Worker) HandleFetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req == nil || req.URL == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}
	if req.Method != http.MethodGet {
		return nil, ErrNotIntercepted
	}

	w.mu.RLock()
	routes := w.routes
	w.mu.RUnlock()
	if routes == nil {
		return nil, ErrNotIntercepted
	}

	target := w.ResolveURL(req)
	class := w.config.Manifest.Classify(target, w.origin)
	h, ok := routes[class]
	if !ok {
		return nil, ErrNotIntercepted
	}

	return h.Handle(ctx, withURL(ctx, req, target))
}

// Classify returns the manifest class of req.
func (w *Worker) Classify(req *http.Request) manifest.Class {
	if req == nil || req.URL == nil || req.Method != http.MethodGet {
		return manifest.ClassNone
	}
	return w.config.Manifest.Classify(w.ResolveURL(req), w.origin)
}

// ResolveURL returns the absolute URL of req. Origin-form requests received
// by a reverse proxy are resolved against the configured origin, or else the
// Host header.
func (w *Worker) ResolveURL(req *http.Request) *url.URL {
	if req.URL.IsAbs() {
		return req.URL
	}
	if w.origin != nil {
		return w.origin.ResolveReference(req.URL)
	}

	u := *req.URL
	u.Scheme = "http"
	if req.TLS != nil {
		u.Scheme = "https"
	}
	u.Host = req.Host
	return &u
}

// withURL returns a client-side copy of req addressed to target.
func withURL(ctx context.Context, req *http.Request, target *url.URL) *http.Request {
	out := req.Clone(ctx)
	u := *target
	out.URL = &u
	out.Host = ""
	out.RequestURI = ""
	RemoveHopHeaders(out.Header)
	return out
}

// hopHeaders are connection-scoped and never forwarded.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// RemoveHopHeaders deletes hop-by-hop headers from h, including those
// named by its Connection header.
func RemoveHopHeaders(h http.Header) {
	for _, v := range h.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				h.Del(name)
			}
		}
	}
	for _, key := range hopHeaders {
		h.Del(key)
	}
}
