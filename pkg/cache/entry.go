package cache

import (
	"net/http"
	"time"
)

// Entry represents a cached response snapshot keyed by its request identity.
type Entry struct {
	// Method is the request method (always GET for stored entries)
	Method string `json:"method"`

	// URL is the absolute request URL
	URL string `json:"url"`

	// StatusCode is the HTTP status code of the cached response
	StatusCode int `json:"status_code"`

	// Headers are the response headers
	Headers http.Header `json:"headers"`

	// Data is the response body
	Data []byte `json:"data"`

	// CachedAt is when we cached this response
	CachedAt time.Time `json:"cached_at"`
}

// Key returns the request identity of the entry.
func (e *Entry) Key() RequestKey {
	return RequestKey{Method: e.Method, URL: e.URL}
}

// Age returns how long ago the entry was cached.
func (e *Entry) Age() time.Duration {
	if e.CachedAt.IsZero() {
		return 0
	}
	return time.Since(e.CachedAt)
}

// Size returns the body size in bytes.
func (e *Entry) Size() int {
	return len(e.Data)
}
