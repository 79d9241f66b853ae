package asynchook

import (
	"errors"
	"sync"
	"testing"

	"github.com/unkn0wn-root/bakecache"
	"github.com/unkn0wn-root/bakecache/pool"
)

type countingHooks struct {
	bakecache.NopHooks
	mu      sync.Mutex
	created []bakecache.Key
	failed  int
	block   chan struct{}
}

func (c *countingHooks) EntryCreated(k bakecache.Key) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	c.created = append(c.created, k)
	c.mu.Unlock()
}

func (c *countingHooks) AllocationFailed(bakecache.Key, error) {
	c.mu.Lock()
	c.failed++
	c.mu.Unlock()
}

func TestHooks_DeliversBeforeClose(t *testing.T) {
	inner := &countingHooks{}
	h := New(inner, 1, 16)
	for i := 0; i < 5; i++ {
		h.EntryCreated(bakecache.Key(i))
	}
	h.AllocationFailed(9, errors.New("oom"))
	h.PoolReuse(pool.Size{Width: 1, Height: 1, Depth: 1})
	h.Close()

	if len(inner.created) != 5 || inner.failed != 1 {
		t.Fatalf("created=%v failed=%d", inner.created, inner.failed)
	}
	for i, k := range inner.created {
		if k != bakecache.Key(i) {
			t.Fatalf("single worker must preserve order: %v", inner.created)
		}
	}
}

func TestHooks_DropsWhenFull(t *testing.T) {
	inner := &countingHooks{block: make(chan struct{})}
	h := New(inner, 1, 1)

	// the worker blocks on the first event; one more fits the queue
	for i := 0; i < 10; i++ {
		h.EntryCreated(bakecache.Key(i))
	}
	close(inner.block)
	h.Close()

	if h.Dropped() == 0 {
		t.Fatalf("expected drops with a full queue")
	}
	if got := uint64(len(inner.created)) + h.Dropped(); got != 10 {
		t.Fatalf("delivered+dropped=%d want 10", got)
	}
}

func TestHooks_AfterClose(t *testing.T) {
	h := New(bakecache.NopHooks{}, 2, 4)
	h.Close()
	h.Close()
	h.EntryDestroyed(1)
	if h.Dropped() != 1 {
		t.Fatalf("Dropped=%d want 1", h.Dropped())
	}
}
