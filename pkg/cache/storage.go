package cache

import (
	"context"
	"errors"
	"net/http"
)

var (
	// ErrCacheMiss indicates the requested key was not found in the store
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")

	// ErrNotCacheable indicates the request method can never be stored or matched
	ErrNotCacheable = errors.New("request not cacheable")

	errNilEntry = errors.New("cache entry cannot be nil")
)

// Storage is the set of named stores known to the host.
type Storage interface {
	// Open returns the store with the given name, creating it if absent.
	Open(ctx context.Context, name string) (Store, error)

	// Has reports whether a store with the given name exists.
	Has(ctx context.Context, name string) (bool, error)

	// Keys lists store names in creation order.
	Keys(ctx context.Context) ([]string, error)

	// Delete removes the named store and all its entries.
	// It reports whether the store existed.
	Delete(ctx context.Context, name string) (bool, error)
}

// Store maps request identities to response snapshots.
// Writes through a handle whose store was deleted recreate the store.
type Store interface {
	Name() string

	// Match returns the entry for req or ErrCacheMiss.
	Match(ctx context.Context, req *http.Request) (*Entry, error)

	// Put stores entry under the identity of req.
	Put(ctx context.Context, req *http.Request, entry *Entry) error

	// PutAll stores all entries under their own identities as one batch.
	PutAll(ctx context.Context, entries []*Entry) error
}

// keyForRequest returns the identity of req or ErrNotCacheable.
func keyForRequest(req *http.Request) (RequestKey, error) {
	if req == nil || req.URL == nil {
		return RequestKey{}, ErrNotCacheable
	}
	key := NewRequestKey(req)
	if !key.Cacheable() {
		return RequestKey{}, ErrNotCacheable
	}
	return key, nil
}

// keyForEntry validates entry and returns its identity.
func keyForEntry(entry *Entry) (RequestKey, error) {
	if entry == nil {
		return RequestKey{}, errNilEntry
	}
	key := entry.Key()
	if key.URL == "" {
		return RequestKey{}, ErrInvalidEntry
	}
	if !key.Cacheable() {
		return RequestKey{}, ErrNotCacheable
	}
	if key.Method == "" {
		key.Method = http.MethodGet
	}
	return key, nil
}

// bindEntry returns a copy of entry carrying the identity of key.
func bindEntry(entry *Entry, key RequestKey) *Entry {
	c := cloneEntry(entry)
	c.Method = key.Method
	c.URL = key.URL
	return c
}

func cloneEntry(entry *Entry) *Entry {
	c := *entry
	c.Headers = entry.Headers.Clone()
	c.Data = append([]byte(nil), entry.Data...)
	return &c
}
