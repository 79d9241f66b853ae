package bakecache

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type entry[R any] struct {
	res  R
	refs int
}

type cache[P, R any] struct {
	mu      sync.Locker
	entries map[Key]*entry[R]
	alloc   Allocator[P, R]
	log     Logger
	hooks   Hooks
	closed  bool

	hits, misses        uint64
	allocs, allocFails  uint64
	frees, unknownFrees uint64
}

func newCache[P, R any](opts Options[P, R]) (*cache[P, R], error) {
	if opts.Allocator == nil {
		return nil, fmt.Errorf("bakecache: allocator is required")
	}

	c := &cache[P, R]{
		mu:      newLocker(opts.Synchronized),
		entries: make(map[Key]*entry[R]),
		alloc:   opts.Allocator,
	}

	// defaults
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})

	return c, nil
}

func (c *cache[P, R]) Get(key Key, params P) (R, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero R
	if c.closed {
		return zero, ErrClosed
	}

	if e, ok := c.entries[key]; ok {
		e.refs++
		c.hits++
		c.hooks.EntryShared(key, e.refs)
		return e.res, nil
	}

	c.misses++
	res, err := c.alloc.Allocate(key, params)
	if err != nil {
		c.allocFails++
		c.hooks.AllocationFailed(key, err)
		c.log.Error("allocation failed", Fields{"key": key, "err": err})
		return zero, &AllocationError{Key: key, Err: err}
	}
	c.allocs++
	c.entries[key] = &entry[R]{res: res, refs: 1}
	c.hooks.EntryCreated(key)
	c.log.Debug("entry created", Fields{"key": key, "live": len(c.entries)})
	return res, nil
}

func (c *cache[P, R]) Release(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		// double release, or a key that was never acquired
		c.unknownFrees++
		c.hooks.ReleaseUnknown(key)
		c.log.Debug("release of unknown key ignored", Fields{"key": key})
		return
	}
	e.refs--
	if e.refs > 0 {
		return
	}
	c.destroy(key, e)
}

// destroy must be called with mu held.
func (c *cache[P, R]) destroy(key Key, e *entry[R]) {
	delete(c.entries, key)
	c.alloc.Free(key, e.res)
	c.frees++
	c.hooks.EntryDestroyed(key)
	c.log.Debug("entry destroyed", Fields{"key": key, "live": len(c.entries)})
}

func (c *cache[P, R]) Refs(key Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.refs
	}
	return 0
}

func (c *cache[P, R]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *cache[P, R]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	refs := 0
	for _, e := range c.entries {
		refs += e.refs
	}
	return Stats{
		Hits:               c.hits,
		Misses:             c.misses,
		Allocations:        c.allocs,
		AllocationFailures: c.allocFails,
		Frees:              c.frees,
		UnknownReleases:    c.unknownFrees,
		Live:               len(c.entries),
		References:         refs,
	}
}

func (c *cache[P, R]) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	if n := len(c.entries); n > 0 {
		c.log.Warn("closing cache with live entries", Fields{"live": n})
	}
	// deterministic teardown order
	keys := make([]Key, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		c.destroy(k, c.entries[k])
	}

	if cl, ok := c.alloc.(interface{ Close(context.Context) error }); ok {
		return cl.Close(ctx)
	}
	return nil
}
