package bigcache

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestRoundTripAndMissingDelete(t *testing.T) {
	ctx := context.Background()
	p, err := New(ctx, Config{LifeWindow: time.Minute, Shards: 16, MaxEntrySize: 1024})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close(ctx)

	if _, ok, err := p.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("miss expected, ok=%v err=%v", ok, err)
	}
	val := []byte{1, 2, 3, 4}
	if ok, err := p.Set(ctx, "k", val, 0, 0); !ok || err != nil {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	got, ok, err := p.Get(ctx, "k")
	if !ok || err != nil || !bytes.Equal(got, val) {
		t.Fatalf("Get: ok=%v err=%v got=%v", ok, err, got)
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatalf("Del of missing key should be nil, got %v", err)
	}
}

func TestLifeWindowRequired(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error without LifeWindow")
	}
}
