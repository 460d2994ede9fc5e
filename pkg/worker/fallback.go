package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Sternrassler/offline-cache/pkg/cache"
	"github.com/rs/zerolog"
)

// Fallback resolves the placeholder document for failed navigations.
// The document is chosen once at configuration time: a dedicated offline
// page, or the main document as a degraded fallback.
type Fallback struct {
	store    cache.Store
	document string
	url      *url.URL
	logger   zerolog.Logger
}

// NewFallback creates a resolver serving document from store.
// An empty document disables the fallback.
func NewFallback(store cache.Store, origin *url.URL, document string, logger zerolog.Logger) (*Fallback, error) {
	f := &Fallback{store: store, document: document, logger: logger}
	if document == "" {
		return f, nil
	}

	u, err := url.Parse(document)
	if err != nil {
		return nil, fmt.Errorf("parse fallback document: %w", err)
	}
	if origin != nil {
		u = origin.ResolveReference(u)
	}
	f.url = u
	return f, nil
}

// Document returns the configured document path.
func (f *Fallback) Document() string {
	return f.document
}

// AcceptsHTML reports whether req signals it accepts an HTML document.
func AcceptsHTML(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "text/html")
}

// Resolve returns the fallback document for req after cause,
// or ErrNoResponse wrapping cause.
func (f *Fallback) Resolve(ctx context.Context, req *http.Request, cause error) (*http.Response, error) {
	if f == nil || f.url == nil || !AcceptsHTML(req) {
		return nil, fmt.Errorf("%w: %w", ErrNoResponse, cause)
	}

	docReq, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoResponse, cause)
	}

	entry, err := f.store.Match(ctx, docReq)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			f.logger.Warn().Err(err).Str("document", f.document).Msg("Fallback lookup failed")
		} else {
			f.logger.Warn().Str("document", f.document).Msg("Fallback document not cached")
		}
		return nil, fmt.Errorf("%w: %w", ErrNoResponse, cause)
	}

	f.logger.Info().
		Str("url", req.URL.String()).
		Str("document", f.document).
		Msg("Serving offline fallback")
	workerFallbacksTotal.WithLabelValues(f.document).Inc()

	return cache.EntryToResponse(entry, req), nil
}
