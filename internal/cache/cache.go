package cache

import (
	"context"
	"log"
	"time"

	"ashare/internal/market"
)

// Cacher defines the cache operations used by the data stores. Values are
// best-effort: a miss or a cache failure must never fail the calling query.
type Cacher interface {
	// Sector constituents
	GetConstituents(ctx context.Context, sectorCode string) ([]string, error)
	SetConstituents(ctx context.Context, sectorCode string, symbols []string, expiration time.Duration) error

	// Stock profiles (shares outstanding, tags)
	GetProfile(ctx context.Context, symbol string) (*market.Profile, error)
	SetProfile(ctx context.Context, symbol string, profile *market.Profile, expiration time.Duration) error

	// Screener results, keyed by sector and as-of date
	GetSelection(ctx context.Context, sectorCode, asOfDate string) ([]string, error)
	SetSelection(ctx context.Context, sectorCode, asOfDate string, symbols []string, expiration time.Duration) error

	Close() error
}

// Config represents cache configuration
type Config struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// NewCacher creates a cache instance based on configuration. Redis is used
// when enabled and reachable; otherwise an in-memory cache is returned so a
// missing Redis never blocks a batch run.
func NewCacher(cfg *Config) Cacher {
	if cfg != nil && cfg.Enabled {
		c, err := NewRedisCache(cfg)
		if err == nil {
			return c
		}
		log.Printf("Redis unavailable, falling back to memory cache: %v", err)
	}
	return NewMemoryCache()
}

const (
	keyConstituents = "sector:constituents:"
	keyProfile      = "stock:profile:"
	keySelection    = "sector:selection:"
)
