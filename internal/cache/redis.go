package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "ashare/internal/errors"
	"ashare/internal/market"
)

// RedisCache represents the Redis cache implementation
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(cfg *Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

func (r *RedisCache) getJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return apperrors.New(apperrors.ErrCodeCacheMiss, "cache miss")
	}
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeCacheOperation, "redis get failed", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeCacheOperation, "failed to decode cached value", err)
	}
	return nil
}

func (r *RedisCache) setJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeCacheOperation, "failed to encode cache value", err)
	}
	if err := r.client.Set(ctx, key, data, expiration).Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeCacheOperation, "redis set failed", err)
	}
	return nil
}

// GetConstituents retrieves a cached constituent list
func (r *RedisCache) GetConstituents(ctx context.Context, sectorCode string) ([]string, error) {
	var symbols []string
	if err := r.getJSON(ctx, keyConstituents+sectorCode, &symbols); err != nil {
		return nil, err
	}
	return symbols, nil
}

// SetConstituents caches a constituent list
func (r *RedisCache) SetConstituents(ctx context.Context, sectorCode string, symbols []string, expiration time.Duration) error {
	return r.setJSON(ctx, keyConstituents+sectorCode, symbols, expiration)
}

// GetProfile retrieves a cached stock profile
func (r *RedisCache) GetProfile(ctx context.Context, symbol string) (*market.Profile, error) {
	var profile market.Profile
	if err := r.getJSON(ctx, keyProfile+symbol, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// SetProfile caches a stock profile
func (r *RedisCache) SetProfile(ctx context.Context, symbol string, profile *market.Profile, expiration time.Duration) error {
	return r.setJSON(ctx, keyProfile+symbol, profile, expiration)
}

// GetSelection retrieves a cached screener selection
func (r *RedisCache) GetSelection(ctx context.Context, sectorCode, asOfDate string) ([]string, error) {
	var symbols []string
	if err := r.getJSON(ctx, keySelection+sectorCode+":"+asOfDate, &symbols); err != nil {
		return nil, err
	}
	return symbols, nil
}

// SetSelection caches a screener selection
func (r *RedisCache) SetSelection(ctx context.Context, sectorCode, asOfDate string, symbols []string, expiration time.Duration) error {
	return r.setJSON(ctx, keySelection+sectorCode+":"+asOfDate, symbols, expiration)
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	return r.client.Close()
}
