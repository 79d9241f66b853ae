package bakestore

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/unkn0wn-root/bakecache"
	"github.com/unkn0wn-root/bakecache/gpu"
	"github.com/unkn0wn-root/bakecache/internal/wire"
	pr "github.com/unkn0wn-root/bakecache/provider"
)

type memProvider struct {
	m map[string][]byte
}

var _ pr.Provider = (*memProvider)(nil)

func newMemProvider() *memProvider { return &memProvider{m: make(map[string][]byte)} }

func (p *memProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.m[key]
	return v, ok, nil
}

func (p *memProvider) Set(_ context.Context, key string, value []byte, _ int64, _ time.Duration) (bool, error) {
	p.m[key] = value
	return true, nil
}

func (p *memProvider) Del(_ context.Context, key string) error { delete(p.m, key); return nil }
func (p *memProvider) Close(_ context.Context) error           { return nil }

var cloudDesc = gpu.TextureDesc{Width: 4, Height: 2, Slices: 2, Format: gpu.R16G16SFloat, Dimension: gpu.Tex2DArray}

func texels() []byte {
	b := make([]byte, cloudDesc.Bytes())
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func newTestStore(t *testing.T, p pr.Provider, optsOpt func(*Options)) *Store {
	t.Helper()
	opts := Options{Namespace: "sky", Provider: p}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

// TestPutGetInvalidateFlow verifies CAS write, read, invalidation, and stale write skip.
func TestPutGetInvalidateFlow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newMemProvider(), nil)
	k := bakecache.Key(0xC10D)

	if _, ok, err := s.Get(ctx, k, cloudDesc); ok || err != nil {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}

	obs := s.SnapshotGen(ctx, k)
	if err := s.Put(ctx, k, cloudDesc, texels(), obs); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := s.Get(ctx, k, cloudDesc)
	if err != nil || !ok || !bytes.Equal(got, texels()) {
		t.Fatalf("Get after Put: ok=%v err=%v", ok, err)
	}

	if err := s.Invalidate(ctx, k); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, ok, _ := s.Get(ctx, k, cloudDesc); ok {
		t.Fatalf("Get after Invalidate should miss")
	}

	// stale observed generation: skipped
	if err := s.Put(ctx, k, cloudDesc, texels(), obs); err != nil {
		t.Fatalf("stale Put: %v", err)
	}
	if _, ok, _ := s.Get(ctx, k, cloudDesc); ok {
		t.Fatalf("stale Put must not populate the store")
	}

	if err := s.Put(ctx, k, cloudDesc, texels(), s.SnapshotGen(ctx, k)); err != nil {
		t.Fatalf("fresh Put: %v", err)
	}
	if _, ok, _ := s.Get(ctx, k, cloudDesc); !ok {
		t.Fatalf("fresh Put should be readable")
	}
}

func TestGetSelfHeals(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	s := newTestStore(t, mp, nil)
	k := bakecache.Key(7)
	sk := s.storageKey(k)

	t.Run("corrupt", func(t *testing.T) {
		mp.m[sk] = []byte("not-a-frame")
		if _, ok, err := s.Get(ctx, k, cloudDesc); ok || err != nil {
			t.Fatalf("corrupt entry should miss, ok=%v err=%v", ok, err)
		}
		if _, ok := mp.m[sk]; ok {
			t.Fatalf("corrupt entry was not deleted")
		}
	})

	t.Run("gen_mismatch", func(t *testing.T) {
		frame, _ := wire.EncodeTexture(header(cloudDesc, 5), texels())
		mp.m[sk] = frame
		if _, ok, _ := s.Get(ctx, k, cloudDesc); ok {
			t.Fatalf("future-generation entry should miss")
		}
		if _, ok := mp.m[sk]; ok {
			t.Fatalf("gen-mismatch entry was not deleted")
		}
	})

	t.Run("shape_mismatch", func(t *testing.T) {
		if err := s.Put(ctx, k, cloudDesc, texels(), s.SnapshotGen(ctx, k)); err != nil {
			t.Fatalf("Put: %v", err)
		}
		other := cloudDesc
		other.Slices = 1
		if _, ok, _ := s.Get(ctx, k, other); ok {
			t.Fatalf("shape mismatch should miss")
		}
		if _, ok := mp.m[sk]; ok {
			t.Fatalf("shape-mismatch entry was not deleted")
		}
	})
}

func TestPutRejectsWrongLength(t *testing.T) {
	s := newTestStore(t, newMemProvider(), nil)
	if err := s.Put(context.Background(), 1, cloudDesc, []byte{1, 2, 3}, 0); err == nil {
		t.Fatalf("expected length error")
	}
}

type failingGenStore struct{ bumpErr error }

func (s *failingGenStore) Snapshot(context.Context, string) (uint64, error) { return 0, nil }
func (s *failingGenStore) Bump(context.Context, string) (uint64, error)     { return 0, s.bumpErr }
func (s *failingGenStore) Cleanup(time.Duration) int                        { return 0 }
func (s *failingGenStore) Close(context.Context) error                      { return nil }

type delErrProvider struct {
	*memProvider
	err error
}

func (p *delErrProvider) Del(context.Context, string) error { return p.err }

func TestInvalidateBothFailReturnsError(t *testing.T) {
	delErr := errors.New("del failed")
	bumpErr := errors.New("bump failed")
	s := newTestStore(t, &delErrProvider{memProvider: newMemProvider(), err: delErr}, func(o *Options) {
		o.GenStore = &failingGenStore{bumpErr: bumpErr}
	})

	err := s.Invalidate(context.Background(), 3)
	var ie *InvalidateError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InvalidateError, got %T: %v", err, err)
	}
	if !errors.Is(err, delErr) || !errors.Is(err, bumpErr) {
		t.Fatalf("InvalidateError should unwrap both causes")
	}
}

func TestInvalidateSingleFailureIsTolerated(t *testing.T) {
	ctx := context.Background()

	s1 := newTestStore(t, newMemProvider(), func(o *Options) {
		o.GenStore = &failingGenStore{bumpErr: errors.New("bump failed")}
	})
	if err := s1.Invalidate(ctx, 4); err != nil {
		t.Fatalf("bump failure alone should not error: %v", err)
	}

	s2 := newTestStore(t, &delErrProvider{memProvider: newMemProvider(), err: errors.New("del failed")}, nil)
	if err := s2.Invalidate(ctx, 4); err != nil {
		t.Fatalf("delete failure alone should not error: %v", err)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Options{Namespace: "x"}); err == nil {
		t.Fatalf("expected error without provider")
	}
	if _, err := New(Options{Provider: newMemProvider()}); err == nil {
		t.Fatalf("expected error without namespace")
	}
}
