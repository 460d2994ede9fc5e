// Package worker implements the offline caching agent: install and activate
// lifecycle, request routing, and the cache-only and cache-first strategies.
package worker

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/Sternrassler/offline-cache/pkg/cache"
	"github.com/Sternrassler/offline-cache/pkg/fetch"
	"github.com/Sternrassler/offline-cache/pkg/logging"
	"github.com/Sternrassler/offline-cache/pkg/manifest"
	"github.com/rs/zerolog"
)

// State is the lifecycle state of a worker version.
type State int32

// Lifecycle states, in order. A failed install makes the version redundant.
const (
	StateParsed State = iota
	StateInstalling
	StateInstalled
	StateActivating
	StateActivated
	StateRedundant
)

func (s State) String() string {
	switch s {
	case StateParsed:
		return "parsed"
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateActivating:
		return "activating"
	case StateActivated:
		return "activated"
	case StateRedundant:
		return "redundant"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Controller is the host signal used by Activate to take control of open
// clients immediately.
type Controller interface {
	Claim(ctx context.Context, w *Worker) error
}

// ControllerFunc adapts a function to the Controller interface.
type ControllerFunc func(ctx context.Context, w *Worker) error

// Claim calls f(ctx, w).
func (f ControllerFunc) Claim(ctx context.Context, w *Worker) error {
	return f(ctx, w)
}

// Worker is one version of the offline agent, identified by its cache names.
type Worker struct {
	config    Config
	origin    *url.URL
	storage   cache.Storage
	fetcher   fetch.Fetcher
	keepAlive *KeepAlive
	logger    zerolog.Logger

	mu       sync.RWMutex
	state    State
	routes   map[manifest.Class]handler
	fallback *Fallback
}

// New creates a worker version. It performs no I/O.
func New(cfg Config, storage cache.Storage, fetcher fetch.Fetcher) (*Worker, error) {
	if storage == nil {
		return nil, fmt.Errorf("cache storage is required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	origin, err := cfg.originURL()
	if err != nil {
		return nil, fmt.Errorf("parse origin: %w", err)
	}

	return &Worker{
		config:    cfg,
		origin:    origin,
		storage:   storage,
		fetcher:   fetcher,
		keepAlive: &KeepAlive{},
		logger: logging.NewLogger(logging.ComponentWorker).With().
			Str("shell_cache", cfg.ShellCache).
			Str("dynamic_cache", cfg.DynamicCache).
			Logger(),
		state: StateParsed,
	}, nil
}

// Config returns the worker configuration.
func (w *Worker) Config() Config {
	return w.config
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// KeepAlive returns the tracker of detached background writes.
func (w *Worker) KeepAlive() *KeepAlive {
	return w.keepAlive
}

// Wait blocks until all background writes have finished or ctx is done.
func (w *Worker) Wait(ctx context.Context) error {
	return w.keepAlive.Wait(ctx)
}
