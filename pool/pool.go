// Package pool implements a small size-bucketed reuse pool for heavy resources
// (textures, buffers) that are expensive to allocate but cheap to keep around.
//
// A freed resource is offered to the pool under its Size. A later allocation of
// the same Size claims it with Take instead of allocating. The pool holds at most
// one resource per Size and at most MaxSlots resources overall; offering to a
// full pool evicts (and frees) the least recently offered occupant.
//
// Pool is not safe for concurrent use. Guard it with the same lock as its owner.
package pool

import "fmt"

// Size is the bucket key: the dimensions a resource was allocated with.
type Size struct {
	Width  int
	Height int
	Depth  int // array slices / layers; 0 and 1 are distinct sizes
}

func (s Size) String() string { return fmt.Sprintf("%dx%dx%d", s.Width, s.Height, s.Depth) }

type Options[R any] struct {
	MaxSlots int     // 0 => 1
	Free     func(R) // required; releases an evicted or drained resource

	OnReuse func(Size) // optional
	OnEvict func(Size) // optional
}

type slot[R any] struct {
	size Size
	res  R
}

type Pool[R any] struct {
	slots   []slot[R] // oldest offer first
	max     int
	free    func(R)
	onReuse func(Size)
	onEvict func(Size)
}

func New[R any](opts Options[R]) *Pool[R] {
	if opts.Free == nil {
		panic("pool: Free is required")
	}
	max := opts.MaxSlots
	if max <= 0 {
		max = 1
	}
	return &Pool[R]{
		slots:   make([]slot[R], 0, max),
		max:     max,
		free:    opts.Free,
		onReuse: opts.OnReuse,
		onEvict: opts.OnEvict,
	}
}

// Take claims the pooled resource of exactly size s, if any.
func (p *Pool[R]) Take(s Size) (R, bool) {
	for i := range p.slots {
		if p.slots[i].size != s {
			continue
		}
		r := p.slots[i].res
		p.remove(i)
		if p.onReuse != nil {
			p.onReuse(s)
		}
		return r, true
	}
	var zero R
	return zero, false
}

// Offer hands r to the pool. A previous occupant of the same size, or the oldest
// occupant when the pool is full, is freed.
func (p *Pool[R]) Offer(s Size, r R) {
	for i := range p.slots {
		if p.slots[i].size == s {
			p.evict(i)
			break
		}
	}
	if len(p.slots) >= p.max {
		p.evict(0)
	}
	p.slots = append(p.slots, slot[R]{size: s, res: r})
}

func (p *Pool[R]) Len() int { return len(p.slots) }

// Sizes lists pooled sizes, oldest offer first.
func (p *Pool[R]) Sizes() []Size {
	out := make([]Size, len(p.slots))
	for i, s := range p.slots {
		out[i] = s.size
	}
	return out
}

// Drain frees every pooled resource.
func (p *Pool[R]) Drain() {
	for len(p.slots) > 0 {
		p.evict(0)
	}
}

func (p *Pool[R]) evict(i int) {
	s := p.slots[i]
	p.remove(i)
	p.free(s.res)
	if p.onEvict != nil {
		p.onEvict(s.size)
	}
}

func (p *Pool[R]) remove(i int) {
	copy(p.slots[i:], p.slots[i+1:])
	var zero slot[R]
	p.slots[len(p.slots)-1] = zero
	p.slots = p.slots[:len(p.slots)-1]
}
