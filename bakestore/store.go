// Package bakestore persists baked texture contents so a resource destroyed by
// the reference-counted cache can later be restored without re-baking.
//
// Writes are CAS-guarded by per-key generations:
//
//	obs := store.SnapshotGen(ctx, key)        // before baking
//	texels := bake(...)
//	_ = store.Put(ctx, key, desc, texels, obs) // written iff gen is still obs
//
// Invalidate bumps the generation, so bakes made from outdated sources are
// skipped on write and dropped on read.
package bakestore

import (
	"context"
	"fmt"
	"time"

	"github.com/unkn0wn-root/bakecache"
	gen "github.com/unkn0wn-root/bakecache/genstore"
	"github.com/unkn0wn-root/bakecache/gpu"
	"github.com/unkn0wn-root/bakecache/internal/wire"
	pr "github.com/unkn0wn-root/bakecache/provider"
)

const (
	defaultTTL          = time.Hour
	defaultGenRetention = 7 * 24 * time.Hour
)

type Options struct {
	Namespace string // required; e.g. "cloudlayer"
	Provider  pr.Provider

	GenStore gen.GenStore     // nil => in-process LocalGenStore
	TTL      time.Duration    // 0 => 1h
	Logger   bakecache.Logger // nil => NopLogger
}

type Store struct {
	ns       string
	provider pr.Provider
	gen      gen.GenStore
	ownGen   bool
	ttl      time.Duration
	log      bakecache.Logger
}

func New(opts Options) (*Store, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("bakestore: provider is required")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("bakestore: namespace is required")
	}
	s := &Store{
		ns:       opts.Namespace,
		provider: opts.Provider,
		gen:      opts.GenStore,
		ttl:      opts.TTL,
		log:      opts.Logger,
	}
	if s.gen == nil {
		s.gen = gen.NewLocalGenStore(gen.LocalOptions{CleanupInterval: time.Hour, Retention: defaultGenRetention})
		s.ownGen = true
	}
	if s.ttl <= 0 {
		s.ttl = defaultTTL
	}
	if s.log == nil {
		s.log = bakecache.NopLogger{}
	}
	return s, nil
}

func (s *Store) storageKey(key bakecache.Key) string {
	return fmt.Sprintf("bake:%s:%016x", s.ns, uint64(key))
}

// SnapshotGen returns the current generation for key. Errors read as 0, which
// makes a later Put skip (if the real gen is higher) and reads self-heal.
func (s *Store) SnapshotGen(ctx context.Context, key bakecache.Key) uint64 {
	return s.snapshotGen(ctx, s.storageKey(key))
}

func (s *Store) snapshotGen(ctx context.Context, sk string) uint64 {
	g, err := s.gen.Snapshot(ctx, sk)
	if err != nil {
		s.log.Warn("gen snapshot error", bakecache.Fields{"key": sk, "err": err})
		return 0
	}
	return g
}

// Put stores texels for key if the generation still equals observedGen.
// len(texels) must equal desc.Bytes().
func (s *Store) Put(ctx context.Context, key bakecache.Key, desc gpu.TextureDesc, texels []byte, observedGen uint64) error {
	if int64(len(texels)) != desc.Bytes() {
		return fmt.Errorf("bakestore: %d texel bytes for %dx%dx%d %v", len(texels), desc.Width, desc.Height, desc.Slices, desc.Format)
	}
	sk := s.storageKey(key)
	if s.snapshotGen(ctx, sk) != observedGen {
		s.log.Debug("bake put skipped (gen mismatch)", bakecache.Fields{"key": sk, "obs": observedGen})
		return nil
	}
	frame, err := wire.EncodeTexture(header(desc, observedGen), texels)
	if err != nil {
		return err
	}
	ok, err := s.provider.Set(ctx, sk, frame, int64(len(frame)), s.ttl)
	if err != nil {
		return err
	}
	if !ok {
		s.log.Debug("bake put rejected by provider (pressure)", bakecache.Fields{"key": sk, "bytes": len(frame)})
	}
	return nil
}

// Get returns the stored texels for key if they are current and shaped like desc.
// Corrupt, stale or mismatched entries are deleted and reported as a miss.
func (s *Store) Get(ctx context.Context, key bakecache.Key, desc gpu.TextureDesc) ([]byte, bool, error) {
	sk := s.storageKey(key)
	raw, ok, err := s.provider.Get(ctx, sk)
	if err != nil || !ok {
		return nil, false, err
	}
	h, texels, err := wire.DecodeTexture(raw)
	if err != nil {
		s.selfHeal(ctx, sk, "corrupt")
		return nil, false, nil
	}
	if h.Gen != s.snapshotGen(ctx, sk) {
		s.selfHeal(ctx, sk, "gen_mismatch")
		return nil, false, nil
	}
	want := header(desc, h.Gen)
	if h != want || int64(len(texels)) != desc.Bytes() {
		// same key, different shape: a hash collision or a format change
		s.selfHeal(ctx, sk, "shape_mismatch")
		return nil, false, nil
	}
	return texels, true, nil
}

func (s *Store) selfHeal(ctx context.Context, sk, reason string) {
	_ = s.provider.Del(ctx, sk)
	s.log.Debug("bake entry dropped", bakecache.Fields{"key": sk, "reason": reason})
}

// Invalidate bumps key's generation and deletes any stored bake. It fails only
// when both steps fail; either one alone is enough to stop stale reads.
func (s *Store) Invalidate(ctx context.Context, key bakecache.Key) error {
	sk := s.storageKey(key)
	newGen, bumpErr := s.gen.Bump(ctx, sk)
	delErr := s.provider.Del(ctx, sk)
	if bumpErr != nil && delErr != nil {
		s.log.Error("bake invalidate outage", bakecache.Fields{"key": sk, "bump_err": bumpErr, "del_err": delErr})
		return &InvalidateError{Key: key, BumpErr: bumpErr, DelErr: delErr}
	}
	if bumpErr != nil {
		s.log.Warn("bake invalidate: gen bump failed", bakecache.Fields{"key": sk, "err": bumpErr})
	}
	s.log.Debug("bake invalidated", bakecache.Fields{"key": sk, "newGen": newGen})
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	if s.ownGen {
		_ = s.gen.Close(ctx)
	}
	return s.provider.Close(ctx)
}

func header(desc gpu.TextureDesc, g uint64) wire.Header {
	return wire.Header{
		Gen:    g,
		Width:  uint32(desc.Width),
		Height: uint32(desc.Height),
		Slices: uint32(max(desc.Slices, 1)),
		Format: uint8(desc.Format),
	}
}
