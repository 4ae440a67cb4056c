// Package cache provides byte caches used to memoize external series.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// Cache stores opaque values with a TTL. Get reports a miss with ok=false
// and a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}

// Config selects the cache backend.
type Config struct {
	Type          string // "memory", "redis" or "tiered"
	MaxEntries    int
	LocalTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// New creates the configured cache.
func New(cfg Config) (Cache, error) {
	switch cfg.Type {
	case "", "memory":
		return NewLRU(cfg.MaxEntries, clockwork.NewRealClock()), nil
	case "redis":
		return NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case "tiered":
		remote, err := NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return NewTiered(NewLRU(cfg.MaxEntries, clockwork.NewRealClock()), remote, cfg.LocalTTL), nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// Tiered checks a local cache before a remote one and fills the local cache
// on remote hits.
type Tiered struct {
	local    Cache
	remote   Cache
	localTTL time.Duration
}

// NewTiered layers local over remote. Local entries live at most localTTL.
func NewTiered(local, remote Cache, localTTL time.Duration) *Tiered {
	if localTTL <= 0 {
		localTTL = 5 * time.Minute
	}
	return &Tiered{local: local, remote: remote, localTTL: localTTL}
}

func (c *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if val, ok, err := c.local.Get(ctx, key); err != nil || ok {
		return val, ok, err
	}
	val, ok, err := c.remote.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = c.local.Set(ctx, key, val, c.localTTL)
	return val, true, nil
}

func (c *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.local.Set(ctx, key, value, min(ttl, c.localTTL)); err != nil {
		return err
	}
	return c.remote.Set(ctx, key, value, ttl)
}

func (c *Tiered) Ping(ctx context.Context) error {
	if err := c.local.Ping(ctx); err != nil {
		return fmt.Errorf("local cache: %w", err)
	}
	if err := c.remote.Ping(ctx); err != nil {
		return fmt.Errorf("remote cache: %w", err)
	}
	return nil
}

func (c *Tiered) Close() error {
	_ = c.local.Close()
	return c.remote.Close()
}
