package cache

import (
	"net/http"
	"net/url"
	"strings"
)

// RequestKey identifies a cached response by request method and URL.
type RequestKey struct {
	// Method is the HTTP method (e.g., "GET")
	Method string

	// URL is the absolute request URL without fragment
	URL string
}

// NewRequestKey builds the identity of req.
// The URL fragment and a default port are never part of the identity.
func NewRequestKey(req *http.Request) RequestKey {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	return RequestKey{
		Method: strings.ToUpper(method),
		URL:    normalizeURL(req.URL),
	}
}

// String generates a deterministic cache key string.
// Format: METHOD URL
//
// Example:
//
//	GET https://cdn.jsdelivr.net/npm/bootstrap@5.3.2/dist/css/bootstrap.min.css
func (k RequestKey) String() string {
	method := strings.ToUpper(k.Method)
	if method == "" {
		method = http.MethodGet
	}
	return method + " " + k.URL
}

// Cacheable reports whether entries may be stored or matched under this key.
func (k RequestKey) Cacheable() bool {
	return strings.EqualFold(k.Method, http.MethodGet) || k.Method == ""
}

func normalizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	if isDefaultPort(c.Scheme, c.Port()) {
		host := c.Hostname()
		if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}
		c.Host = host
	}
	return c.String()
}

func isDefaultPort(scheme, port string) bool {
	switch strings.ToLower(scheme) {
	case "http":
		return port == "80"
	case "https":
		return port == "443"
	}
	return false
}
