package bakecache

import (
	"context"
	"fmt"
)

// Key identifies a derived resource. It is a hash of the parameters the
// resource is derived from, so two distinct parameter sets may collide.
type Key uint64

func (k Key) String() string { return fmt.Sprintf("%016x", uint64(k)) }

// Cache is a keyed, reference-counted cache of derived resources.
// P is the parameter set used to allocate a resource on a miss, R the resource.
type Cache[P, R any] interface {
	// Get returns the resource for key, allocating it from params on a miss.
	// Every successful Get must be matched by exactly one Release.
	Get(key Key, params P) (R, error)
	// Release drops one reference to key. Unknown keys are ignored.
	Release(key Key)

	Refs(key Key) int
	Len() int
	Stats() Stats

	// Close frees every live resource regardless of outstanding references.
	Close(ctx context.Context) error
}

// Allocator creates and destroys the resources owned by a Cache.
// Free is called exactly once per successful Allocate, when the last
// reference is released or the cache is closed.
type Allocator[P, R any] interface {
	Allocate(key Key, params P) (R, error)
	Free(key Key, res R)
}

// AllocatorFuncs adapts a pair of functions to Allocator.
type AllocatorFuncs[P, R any] struct {
	AllocateFunc func(key Key, params P) (R, error)
	FreeFunc     func(key Key, res R)
}

func (a AllocatorFuncs[P, R]) Allocate(key Key, params P) (R, error) {
	return a.AllocateFunc(key, params)
}

func (a AllocatorFuncs[P, R]) Free(key Key, res R) {
	if a.FreeFunc != nil {
		a.FreeFunc(key, res)
	}
}

// Options configure a Cache. Only Allocator is required.
type Options[P, R any] struct {
	Allocator Allocator[P, R]

	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks

	// Synchronized serializes every operation behind one mutex. Leave it off
	// when the cache is only touched from a single goroutine (e.g. the frame loop).
	Synchronized bool
}

func New[P, R any](opts Options[P, R]) (Cache[P, R], error) {
	c, err := newCache[P, R](opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}
