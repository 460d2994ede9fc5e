package worker

import (
	"context"
	"sync"
	"sync/atomic"
)

// KeepAlive tracks detached background tasks so the host can wait for them
// before shutting down.
type KeepAlive struct {
	wg      sync.WaitGroup
	pending atomic.Int64
}

// Go runs fn in a tracked goroutine.
func (k *KeepAlive) Go(fn func()) {
	k.wg.Add(1)
	k.pending.Add(1)
	go func() {
		defer k.wg.Done()
		defer k.pending.Add(-1)
		fn()
	}()
}

// Pending returns the number of tasks still running.
func (k *KeepAlive) Pending() int {
	return int(k.pending.Load())
}

// Wait blocks until all tracked tasks finish or ctx is done.
func (k *KeepAlive) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		k.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
