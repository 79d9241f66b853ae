package bakecache

import (
	"context"
	"errors"
	"testing"
)

func TestHandleRekeyReleasesPrevious(t *testing.T) {
	ctx := context.Background()
	dev := newFakeDevice()
	cc, _ := newTestCache(t, dev, nil)
	defer cc.Close(ctx)

	h1 := NewHandle(cc)
	h2 := NewHandle(cc)

	r1, changed, err := h1.Update(10, dims(64))
	if err != nil || !changed {
		t.Fatalf("first Update: changed=%v err=%v", changed, err)
	}
	r2, _, err := h2.Update(10, dims(64))
	if err != nil || r2 != r1 {
		t.Fatalf("second handle should share the entry")
	}
	if cc.Refs(10) != 2 {
		t.Fatalf("refs=%d want 2", cc.Refs(10))
	}

	// same key again: no new reference
	if _, changed, _ := h1.Update(10, dims(64)); changed {
		t.Fatalf("Update with the held key should not re-acquire")
	}
	if cc.Refs(10) != 2 {
		t.Fatalf("refs=%d want 2 after same-key Update", cc.Refs(10))
	}

	// h1 moves to a new key; 10 stays alive for h2
	if _, changed, err := h1.Update(20, dims(32)); err != nil || !changed {
		t.Fatalf("rekey: changed=%v err=%v", changed, err)
	}
	if cc.Refs(10) != 1 || cc.Refs(20) != 1 {
		t.Fatalf("after rekey refs(10)=%d refs(20)=%d", cc.Refs(10), cc.Refs(20))
	}
	if k, ok := h1.Key(); !ok || k != 20 {
		t.Fatalf("h1 key=%d ok=%v", k, ok)
	}

	h2.Close()
	h2.Close()
	if cc.Refs(10) != 0 {
		t.Fatalf("key 10 should be gone after h2.Close")
	}
	if st := cc.Stats(); st.UnknownReleases != 0 {
		t.Fatalf("repeated Close must not release twice, stats=%+v", st)
	}
}

func TestHandleZeroKeyIsAcquired(t *testing.T) {
	ctx := context.Background()
	dev := newFakeDevice()
	cc, _ := newTestCache(t, dev, nil)
	defer cc.Close(ctx)

	h := NewHandle(cc)
	if _, changed, err := h.Update(0, dims(8)); err != nil || !changed {
		t.Fatalf("Update(0): changed=%v err=%v", changed, err)
	}
	if cc.Refs(0) != 1 {
		t.Fatalf("key 0 must be a real key, refs=%d", cc.Refs(0))
	}
	h.Close()
	if cc.Len() != 0 {
		t.Fatalf("len=%d after Close", cc.Len())
	}
}

func TestHandleEmptyAfterFailedUpdate(t *testing.T) {
	ctx := context.Background()
	dev := newFakeDevice()
	dev.failFor[dims(1024)] = errors.New("no memory")
	cc, _ := newTestCache(t, dev, nil)
	defer cc.Close(ctx)

	h := NewHandle(cc)
	if _, _, err := h.Update(1, dims(64)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, _, err := h.Update(2, dims(1024)); !errors.Is(err, ErrAllocation) {
		t.Fatalf("expected ErrAllocation, got %v", err)
	}
	if _, ok := h.Resource(); ok {
		t.Fatalf("handle should hold nothing after failed Update")
	}
	if cc.Len() != 0 {
		t.Fatalf("old key should have been released, len=%d", cc.Len())
	}

	h.Close()
}
