package bakecache

import "github.com/unkn0wn-root/bakecache/pool"

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them from inside Get/Release, under its lock when synchronized.
type Hooks interface {
	// A miss allocated a new entry.
	EntryCreated(key Key)
	// A hit added a reference; refs is the count after the increment.
	EntryShared(key Key, refs int)
	// The last reference was dropped (or the cache closed) and the resource freed.
	EntryDestroyed(key Key)
	// Release was called for a key with no live entry.
	ReleaseUnknown(key Key)
	// The allocator failed; nothing was inserted.
	AllocationFailed(key Key, err error)

	// A pooled resource was claimed instead of allocating.
	PoolReuse(size pool.Size)
	// A pooled resource was evicted and freed to make room.
	PoolEvicted(size pool.Size)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) EntryCreated(Key)            {}
func (NopHooks) EntryShared(Key, int)        {}
func (NopHooks) EntryDestroyed(Key)          {}
func (NopHooks) ReleaseUnknown(Key)          {}
func (NopHooks) AllocationFailed(Key, error) {}
func (NopHooks) PoolReuse(pool.Size)         {}
func (NopHooks) PoolEvicted(pool.Size)       {}
