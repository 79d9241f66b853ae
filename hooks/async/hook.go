// Package asynchook moves hook delivery off the caller's goroutine.
//
// Cache hooks run under the cache lock when the cache is synchronized, so a
// slow sink (network exporter, chatty logger) would stall the frame loop.
// Wrap it:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{SharedEvery: 100})
//	hooks := asynchook.New(raw, 1, 1024) // 1 worker; queue 1024 events
//	defer hooks.Close()
//
//	cache, _ := bakecache.New(bakecache.Options[P, R]{Allocator: alloc, Hooks: hooks})
//
// Events are dropped, never blocked on, when the queue is full.
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/bakecache"
	"github.com/unkn0wn-root/bakecache/pool"
)

type Hooks struct {
	inner   bakecache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards sends against Close
	closed  bool
	dropped atomic.Uint64
}

var _ bakecache.Hooks = (*Hooks)(nil)

func New(inner bakecache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close delivers queued events and stops the workers. Later events are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped counts events discarded because the queue was full or closed.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) EntryCreated(k bakecache.Key)   { h.try(func() { h.inner.EntryCreated(k) }) }
func (h *Hooks) EntryDestroyed(k bakecache.Key) { h.try(func() { h.inner.EntryDestroyed(k) }) }
func (h *Hooks) ReleaseUnknown(k bakecache.Key) { h.try(func() { h.inner.ReleaseUnknown(k) }) }
func (h *Hooks) PoolReuse(s pool.Size)          { h.try(func() { h.inner.PoolReuse(s) }) }
func (h *Hooks) PoolEvicted(s pool.Size)        { h.try(func() { h.inner.PoolEvicted(s) }) }

func (h *Hooks) EntryShared(k bakecache.Key, refs int) {
	h.try(func() { h.inner.EntryShared(k, refs) })
}

func (h *Hooks) AllocationFailed(k bakecache.Key, err error) {
	h.try(func() { h.inner.AllocationFailed(k, err) })
}
