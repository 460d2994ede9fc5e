package cache

import (
	"context"
	"net/http"
	"sync"
)

// MemoryStorage keeps stores in process memory.
// It is the default backend when no Redis is configured, and the test double
// for worker tests.
type MemoryStorage struct {
	mu     sync.RWMutex
	order  []string
	stores map[string]map[string]*Entry
}

var _ Storage = (*MemoryStorage)(nil)

// NewMemory creates an empty in-memory storage.
func NewMemory() *MemoryStorage {
	return &MemoryStorage{
		stores: make(map[string]map[string]*Entry),
	}
}

// Open returns the named store, creating it if absent.
func (m *MemoryStorage) Open(ctx context.Context, name string) (Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.ensure(name)
	m.mu.Unlock()
	return &memoryStore{parent: m, name: name}, nil
}

// Has reports whether the named store exists.
func (m *MemoryStorage) Has(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.stores[name]
	return ok, nil
}

// Keys lists store names in creation order.
func (m *MemoryStorage) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...), nil
}

// Delete removes the named store.
func (m *MemoryStorage) Delete(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.stores[name]; !ok {
		return false, nil
	}
	delete(m.stores, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// Len returns the number of entries in the named store.
func (m *MemoryStorage) Len(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.stores[name])
}

// ensure must be called with mu held.
func (m *MemoryStorage) ensure(name string) map[string]*Entry {
	entries, ok := m.stores[name]
	if !ok {
		entries = make(map[string]*Entry)
		m.stores[name] = entries
		m.order = append(m.order, name)
	}
	return entries
}

type memoryStore struct {
	parent *MemoryStorage
	name   string
}

func (s *memoryStore) Name() string {
	return s.name
}

func (s *memoryStore) Match(ctx context.Context, req *http.Request) (*Entry, error) {
	key, err := keyForRequest(req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.parent.mu.RLock()
	entry, ok := s.parent.stores[s.name][key.String()]
	s.parent.mu.RUnlock()

	if !ok {
		CacheMisses.WithLabelValues(s.name).Inc()
		return nil, ErrCacheMiss
	}
	CacheHits.WithLabelValues(s.name).Inc()
	return cloneEntry(entry), nil
}

func (s *memoryStore) Put(ctx context.Context, req *http.Request, entry *Entry) error {
	key, err := keyForRequest(req)
	if err != nil {
		return err
	}
	if entry == nil {
		return errNilEntry
	}
	return s.putAll(ctx, []*Entry{bindEntry(entry, key)})
}

func (s *memoryStore) PutAll(ctx context.Context, entries []*Entry) error {
	bound := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		key, err := keyForEntry(e)
		if err != nil {
			return err
		}
		bound = append(bound, bindEntry(e, key))
	}
	return s.putAll(ctx, bound)
}

func (s *memoryStore) putAll(ctx context.Context, entries []*Entry) error {
	if err := ctx.Err(); err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		return err
	}

	s.parent.mu.Lock()
	store := s.parent.ensure(s.name)
	for _, e := range entries {
		store[e.Key().String()] = e
	}
	s.parent.mu.Unlock()

	recordWrite(s.name, entries...)
	return nil
}
