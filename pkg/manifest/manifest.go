// Package manifest defines the asset manifest: which URLs belong to the
// application shell and which third-party URLs are cached at runtime.
package manifest

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Class is the resource class a request belongs to.
type Class string

const (
	// ClassNone is not intercepted.
	ClassNone Class = ""

	// ClassShell is a same-origin application shell asset.
	ClassShell Class = "shell"

	// ClassDynamic is a third-party asset cached after its first fetch.
	ClassDynamic Class = "dynamic"
)

// Manifest lists the shell and dynamic assets.
type Manifest struct {
	// Shell are same-origin paths precached on install, in order.
	// A request matches when its URL ends with the entry.
	Shell []string `yaml:"shell"`

	// Dynamic are absolute URL prefixes eligible for runtime caching.
	Dynamic []string `yaml:"dynamic"`

	// DynamicHosts makes every URL on these hosts dynamic (blanket CDN caching).
	DynamicHosts []string `yaml:"dynamic_hosts"`
}

// Default returns the manifest of the calendar application.
func Default() Manifest {
	return Manifest{
		Shell: []string{
			"/",
			"/index.html",
			"/calendar.html",
			"/form.html",
			"/main.js",
			"/offline.html",
		},
		Dynamic: []string{
			"https://cdn.jsdelivr.net/npm/bootstrap@5.3.2/dist/css/bootstrap.min.css",
			"https://cdn.jsdelivr.net/npm/bootstrap@5.3.2/dist/js/bootstrap.bundle.min.js",
			"https://cdn.jsdelivr.net/npm/fullcalendar@6.1.10/index.global.min.js",
			"https://cdn.jsdelivr.net/npm/select2@4.1.0-rc.0/dist/css/select2.min.css",
			"https://cdn.jsdelivr.net/npm/select2@4.1.0-rc.0/dist/js/select2.min.js",
			"https://code.jquery.com/jquery-3.7.1.min.js",
		},
	}
}

// Validate checks that entries are well formed.
func (m Manifest) Validate() error {
	var errs []error
	for _, entry := range m.Shell {
		if entry == "" {
			errs = append(errs, errors.New("shell: empty entry"))
			continue
		}
		if !strings.HasPrefix(entry, "/") {
			errs = append(errs, fmt.Errorf("shell: %q must be an absolute path", entry))
		}
	}
	for _, prefix := range m.Dynamic {
		u, err := url.Parse(prefix)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("dynamic: %q must be an absolute URL", prefix))
		}
	}
	for _, host := range m.DynamicHosts {
		if host == "" || strings.ContainsAny(host, "/:") {
			errs = append(errs, fmt.Errorf("dynamic_hosts: %q must be a bare host name", host))
		}
	}
	return errors.Join(errs...)
}

// Classify returns the class of u. Shell is checked before dynamic.
// When origin is non-nil, shell matches are limited to that origin.
func (m Manifest) Classify(u, origin *url.URL) Class {
	if u == nil {
		return ClassNone
	}
	if m.IsShell(u, origin) {
		return ClassShell
	}
	if m.IsDynamic(u) {
		return ClassDynamic
	}
	return ClassNone
}

// IsShell reports whether u matches a shell entry.
func (m Manifest) IsShell(u, origin *url.URL) bool {
	if origin != nil && !SameOrigin(u, origin) {
		return false
	}
	s := withoutFragment(u)
	for _, entry := range m.Shell {
		if entry != "" && strings.HasSuffix(s, entry) {
			return true
		}
	}
	return false
}

// IsDynamic reports whether u matches a dynamic prefix or host.
func (m Manifest) IsDynamic(u *url.URL) bool {
	s := withoutFragment(u)
	for _, prefix := range m.Dynamic {
		if prefix != "" && strings.HasPrefix(s, prefix) {
			return true
		}
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range m.DynamicHosts {
		if host != "" && strings.EqualFold(h, host) {
			return true
		}
	}
	return false
}

// ShellURLs resolves every shell entry against origin, in manifest order.
func (m Manifest) ShellURLs(origin *url.URL) ([]*url.URL, error) {
	urls := make([]*url.URL, 0, len(m.Shell))
	for _, entry := range m.Shell {
		u, err := Resolve(origin, entry)
		if err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, nil
}

// Resolve resolves ref against origin. A nil origin requires ref to be absolute.
func Resolve(origin *url.URL, ref string) (*url.URL, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", ref, err)
	}
	if origin == nil {
		if !r.IsAbs() {
			return nil, fmt.Errorf("resolve %q: no origin configured", ref)
		}
		return r, nil
	}
	return origin.ResolveReference(r), nil
}

// SameOrigin reports whether a and b share scheme, host and port.
// An explicit default port equals an omitted one.
func SameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) &&
		strings.EqualFold(a.Hostname(), b.Hostname()) &&
		effectivePort(a) == effectivePort(b)
}

func effectivePort(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	return defaultPort(u.Scheme)
}

func defaultPort(scheme string) string {
	switch strings.ToLower(scheme) {
	case "http", "ws":
		return "80"
	case "https", "wss":
		return "443"
	}
	return ""
}

// withoutFragment returns u without fragment and without a default port.
func withoutFragment(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	if p := c.Port(); p != "" && p == defaultPort(c.Scheme) {
		host := c.Hostname()
		if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}
		c.Host = host
	}
	return c.String()
}
