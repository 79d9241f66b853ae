package genstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisGenStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	s := NewRedisGenStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "sky", time.Minute)
	t.Cleanup(func() { _ = s.Close(ctx) })

	if g, err := s.Snapshot(ctx, "k"); err != nil || g != 0 {
		t.Fatalf("Snapshot missing: g=%d err=%v", g, err)
	}
	if g, err := s.Bump(ctx, "k"); err != nil || g != 1 {
		t.Fatalf("Bump: g=%d err=%v", g, err)
	}
	if g, err := s.Snapshot(ctx, "k"); err != nil || g != 1 {
		t.Fatalf("Snapshot: g=%d err=%v", g, err)
	}
	if ttl := mr.TTL("bakegen:sky:k"); ttl != time.Minute {
		t.Fatalf("ttl=%v want 1m", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if g, _ := s.Snapshot(ctx, "k"); g != 0 {
		t.Fatalf("expired generation should read 0, got %d", g)
	}
}
