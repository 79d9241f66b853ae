package redis

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newTestProvider(t *testing.T, maxValue int) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	p, err := New(Config{
		Client:        goredis.NewClient(&goredis.Options{Addr: mr.Addr()}),
		CloseClient:   true,
		MaxValueBytes: maxValue,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p, mr
}

func TestRedisRoundTripAndTTL(t *testing.T) {
	ctx := context.Background()
	p, mr := newTestProvider(t, 0)

	val := []byte{0, 1, 2, 0xFF}
	if ok, err := p.Set(ctx, "bake:sky:a", val, 0, time.Minute); !ok || err != nil {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	got, ok, err := p.Get(ctx, "bake:sky:a")
	if !ok || err != nil || !bytes.Equal(got, val) {
		t.Fatalf("Get: ok=%v err=%v got=%v", ok, err, got)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, err := p.Get(ctx, "bake:sky:a"); ok || err != nil {
		t.Fatalf("expired key should miss, ok=%v err=%v", ok, err)
	}
}

func TestRedisRejectsOversized(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t, 4)

	ok, err := p.Set(ctx, "big", []byte("12345"), 0, 0)
	if ok || err != nil {
		t.Fatalf("oversized Set: ok=%v err=%v", ok, err)
	}
}

func TestNilClient(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrNilClient) {
		t.Fatalf("expected ErrNilClient, got %v", err)
	}
}
