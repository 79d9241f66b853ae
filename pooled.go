package bakecache

import (
	"context"
	"fmt"

	"github.com/unkn0wn-root/bakecache/pool"
)

// SizedAllocator is an Allocator backed by a size-bucketed reuse pool.
// Allocate claims a pooled resource of the requested size when one exists and
// only calls New otherwise; Free offers the resource back to the pool.
type SizedAllocator[P, R any] struct {
	SizeOf   func(P) pool.Size
	ResSize  func(R) pool.Size
	New      func(pool.Size) (R, error)
	Destroy  func(R)
	MaxSlots int   // reuse pool capacity; 0 => 1
	Hooks    Hooks // nil => NopHooks

	pool *pool.Pool[R]
}

// NewSizedAllocator validates a and builds its pool.
func NewSizedAllocator[P, R any](a SizedAllocator[P, R]) (*SizedAllocator[P, R], error) {
	if a.SizeOf == nil || a.ResSize == nil || a.New == nil || a.Destroy == nil {
		return nil, fmt.Errorf("bakecache: SizeOf, ResSize, New and Destroy are required")
	}
	hooks := coalesce[Hooks](a.Hooks, NopHooks{})
	a.pool = pool.New(pool.Options[R]{
		MaxSlots: a.MaxSlots,
		Free:     a.Destroy,
		OnReuse:  hooks.PoolReuse,
		OnEvict:  hooks.PoolEvicted,
	})
	return &a, nil
}

func (a *SizedAllocator[P, R]) Allocate(_ Key, params P) (R, error) {
	size := a.SizeOf(params)
	if r, ok := a.pool.Take(size); ok {
		return r, nil
	}
	return a.New(size)
}

func (a *SizedAllocator[P, R]) Free(_ Key, res R) {
	a.pool.Offer(a.ResSize(res), res)
}

// Pooled reports how many resources sit in the reuse pool.
func (a *SizedAllocator[P, R]) Pooled() int { return a.pool.Len() }

// Close destroys every pooled resource. The owning cache calls it on Close.
func (a *SizedAllocator[P, R]) Close(context.Context) error {
	a.pool.Drain()
	return nil
}
