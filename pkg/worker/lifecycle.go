package worker

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/Sternrassler/offline-cache/pkg/cache"
	"github.com/Sternrassler/offline-cache/pkg/fetch"
	"github.com/Sternrassler/offline-cache/pkg/manifest"
	"golang.org/x/sync/errgroup"
)

// staleDeleteLimit bounds concurrent store deletions during activation.
const staleDeleteLimit = 8

// Install precaches every shell asset into the shell store.
//
// All assets are fetched first; the batch is written only when every fetch
// returned a 2xx response. Any failure aborts the install with
// ErrInstallFailed and leaves the store untouched. Installing the same
// version again rewrites identical entries.
func (w *Worker) Install(ctx context.Context) error {
	prev := w.State()
	if prev != StateActivated {
		w.setState(StateInstalling)
	}

	start := time.Now()
	w.logger.Info().Int("assets", len(w.config.Manifest.Shell)).Msg("Installing")

	if err := w.precache(ctx); err != nil {
		workerLifecycleTotal.WithLabelValues("install", "error").Inc()
		if prev != StateActivated {
			w.setState(StateRedundant)
		}
		w.logger.Error().Err(err).Msg("Install failed")
		return fmt.Errorf("%w: %w", ErrInstallFailed, err)
	}

	if prev != StateActivated {
		w.setState(StateInstalled)
	}
	workerLifecycleTotal.WithLabelValues("install", "ok").Inc()
	w.logger.Info().Dur("duration", time.Since(start)).Msg("Shell precached")
	return nil
}

func (w *Worker) precache(ctx context.Context) error {
	store, err := w.storage.Open(ctx, w.config.ShellCache)
	if err != nil {
		return fmt.Errorf("open shell store: %w", err)
	}

	urls, err := w.config.Manifest.ShellURLs(w.origin)
	if err != nil {
		return err
	}

	entries := make([]*cache.Entry, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range urls {
		g.Go(func() error {
			entry, err := w.fetchShellAsset(gctx, u)
			if err != nil {
				return err
			}
			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := store.PutAll(ctx, entries); err != nil {
		return fmt.Errorf("store shell assets: %w", err)
	}
	return nil
}

func (w *Worker) fetchShellAsset(ctx context.Context, u *url.URL) (*cache.Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", u, err)
	}

	resp, err := w.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("precache %s: %w", u, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("precache %s: no response", u)
	}
	defer resp.Body.Close()

	if fetch.IsErrorResponse(resp) || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("precache %s: unexpected status %d", u, resp.StatusCode)
	}

	entry, err := cache.ResponseToEntry(req, resp)
	if err != nil {
		return nil, fmt.Errorf("precache %s: %w", u, err)
	}

	w.logger.Debug().Str("url", u.String()).Int("bytes", entry.Size()).Msg("Precached shell asset")
	return entry, nil
}

// Activate deletes every store that is not one of the current two, makes
// sure both current stores exist, starts routing and claims open clients
// through controller (which may be nil).
//
// Stale store deletions are independent: failures are logged and do not
// block the others or the activation.
func (w *Worker) Activate(ctx context.Context, controller Controller) error {
	prev := w.State()
	if prev != StateInstalled && prev != StateActivated {
		return fmt.Errorf("%w (state %s)", ErrNotInstalled, prev)
	}
	w.setState(StateActivating)
	w.logger.Info().Msg("Activating")

	if err := w.activate(ctx); err != nil {
		w.setState(prev)
		workerLifecycleTotal.WithLabelValues("activate", "error").Inc()
		w.logger.Error().Err(err).Msg("Activation failed")
		return err
	}

	w.setState(StateActivated)
	workerLifecycleTotal.WithLabelValues("activate", "ok").Inc()
	w.logger.Info().Msg("Activated")

	if controller != nil {
		if err := controller.Claim(ctx, w); err != nil {
			workerLifecycleTotal.WithLabelValues("claim", "error").Inc()
			return fmt.Errorf("claim clients: %w", err)
		}
		workerLifecycleTotal.WithLabelValues("claim", "ok").Inc()
		w.logger.Info().Msg("Claimed clients")
	}
	return nil
}

func (w *Worker) activate(ctx context.Context) error {
	if _, err := w.Purge(ctx); err != nil {
		return err
	}

	shell, err := w.storage.Open(ctx, w.config.ShellCache)
	if err != nil {
		return fmt.Errorf("open shell store: %w", err)
	}
	dynamic, err := w.storage.Open(ctx, w.config.DynamicCache)
	if err != nil {
		return fmt.Errorf("open dynamic store: %w", err)
	}

	fallback, err := NewFallback(shell, w.origin, w.config.Fallback, w.logger)
	if err != nil {
		return err
	}

	routes := map[manifest.Class]handler{
		manifest.ClassShell:   newHandler(w.config.Strategies.Shell, shell, w.fetcher, fallback, w.keepAlive, w.logger),
		manifest.ClassDynamic: newHandler(w.config.Strategies.Dynamic, dynamic, w.fetcher, fallback, w.keepAlive, w.logger),
	}

	w.mu.Lock()
	w.routes = routes
	w.fallback = fallback
	w.mu.Unlock()
	return nil
}

// Purge deletes every store that is not one of the current two and returns
// the names it removed. It is the teardown step of Activate on its own.
func (w *Worker) Purge(ctx context.Context) ([]string, error) {
	names, err := w.storage.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	return w.deleteStale(ctx, names), nil
}

func (w *Worker) deleteStale(ctx context.Context, names []string) []string {
	var (
		mu      sync.Mutex
		deleted []string
		g       errgroup.Group
	)
	g.SetLimit(staleDeleteLimit)

	for _, name := range names {
		if name == w.config.ShellCache || name == w.config.DynamicCache {
			continue
		}
		g.Go(func() error {
			ok, err := w.storage.Delete(ctx, name)
			if err != nil {
				w.logger.Warn().Err(err).Str("store", name).Msg("Failed to delete stale store")
				return nil
			}
			if ok {
				workerStaleStoresDeletedTotal.Inc()
				w.logger.Info().Str("store", name).Msg("Deleted stale store")
				mu.Lock()
				deleted = append(deleted, name)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	slices.Sort(deleted)
	return deleted
}
