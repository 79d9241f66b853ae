// Package sloghooks reports cache events through log/slog.
package sloghooks

import (
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/bakecache"
	"github.com/unkn0wn-root/bakecache/pool"
)

type Options struct {
	// Sampling for per-frame events; 0/1 = log all.
	SharedEvery uint64
	ReuseEvery  uint64
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	sharedCtr atomic.Uint64
	reuseCtr  atomic.Uint64
}

var _ bakecache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) EntryCreated(key bakecache.Key) {
	if h.l == nil {
		return
	}
	h.l.Debug("bakecache.entry_created", "key", key.String())
}

func (h *Hooks) EntryShared(key bakecache.Key, refs int) {
	if h.l == nil || !sample(h.opts.SharedEvery, &h.sharedCtr) {
		return
	}
	h.l.Debug("bakecache.entry_shared",
		"key", key.String(),
		"refs", refs)
}

func (h *Hooks) EntryDestroyed(key bakecache.Key) {
	if h.l == nil {
		return
	}
	h.l.Debug("bakecache.entry_destroyed", "key", key.String())
}

// ReleaseUnknown usually means a client released twice.
func (h *Hooks) ReleaseUnknown(key bakecache.Key) {
	if h.l == nil {
		return
	}
	h.l.Warn("bakecache.release_unknown", "key", key.String())
}

func (h *Hooks) AllocationFailed(key bakecache.Key, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("bakecache.allocation_failed",
		"key", key.String(),
		"err", err)
}

func (h *Hooks) PoolReuse(size pool.Size) {
	if h.l == nil || !sample(h.opts.ReuseEvery, &h.reuseCtr) {
		return
	}
	h.l.Debug("bakecache.pool_reuse", "size", size.String())
}

func (h *Hooks) PoolEvicted(size pool.Size) {
	if h.l == nil {
		return
	}
	h.l.Info("bakecache.pool_evicted", "size", size.String())
}
