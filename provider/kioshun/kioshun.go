// Package kioshun is an in-process bakestore provider on unkn0wn-root/kioshun,
// a sharded cache bounded by item count rather than bytes.
package kioshun

import (
	"context"
	"errors"
	"time"

	kc "github.com/unkn0wn-root/kioshun"

	pr "github.com/unkn0wn-root/bakecache/provider"
)

// Provider stores frames as []byte so Get returns exactly what Set was given.
type Provider struct {
	c *kc.InMemoryCache[string, []byte]
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	MaxItems        int64             // bakes kept; 0 = unlimited
	ShardCount      int               // 0 = auto
	Policy          kc.EvictionPolicy // zero value is kioshun's default
	CleanupInterval time.Duration     // expired-bake sweep; 0 disables it
	StatsEnabled    bool
}

func New(cfg Config) (*Provider, error) {
	if cfg.MaxItems < 0 || cfg.ShardCount < 0 || cfg.CleanupInterval < 0 {
		return nil, errors.New("kioshun: invalid config")
	}
	c := kc.New[string, []byte](kc.Config{
		MaxSize:         cfg.MaxItems,
		ShardCount:      cfg.ShardCount,
		CleanupInterval: cfg.CleanupInterval,
		DefaultTTL:      0, // bakestore passes a TTL on every Set
		EvictionPolicy:  cfg.Policy,
		StatsEnabled:    cfg.StatsEnabled,
	})
	return &Provider{c: c}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok || v == nil {
		return nil, false, nil
	}
	return v, true, nil
}

// Set ignores cost. ttl <= 0 stores without expiry. kioshun reports no
// admission result, so a new key that is absent right after Set was refused.
func (p *Provider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = kc.NoExpiration
	}
	if err := p.c.Set(key, value, ttl); err != nil {
		return false, err
	}
	return p.c.Exists(key), nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.c.Delete(key)
	return nil
}

func (p *Provider) Close(_ context.Context) error { return p.c.Close() }
