package cache

import (
	"context"
	"sync"
	"time"

	apperrors "ashare/internal/errors"
	"ashare/internal/market"
)

// MemoryCache is a process-local cache used when Redis is disabled or
// unreachable. Entries expire lazily on read.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]memoryItem
}

type memoryItem struct {
	value     interface{}
	expiresAt time.Time
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]memoryItem)}
}

func (m *MemoryCache) get(key string) (interface{}, bool) {
	m.mu.RLock()
	item, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !item.expiresAt.IsZero() && time.Now().After(item.expiresAt) {
		m.mu.Lock()
		delete(m.items, key)
		m.mu.Unlock()
		return nil, false
	}
	return item.value, true
}

func (m *MemoryCache) set(key string, value interface{}, expiration time.Duration) {
	var expiresAt time.Time
	if expiration > 0 {
		expiresAt = time.Now().Add(expiration)
	}
	m.mu.Lock()
	m.items[key] = memoryItem{value: value, expiresAt: expiresAt}
	m.mu.Unlock()
}

// GetConstituents retrieves a cached constituent list
func (m *MemoryCache) GetConstituents(ctx context.Context, sectorCode string) ([]string, error) {
	if v, ok := m.get(keyConstituents + sectorCode); ok {
		return append([]string(nil), v.([]string)...), nil
	}
	return nil, apperrors.New(apperrors.ErrCodeCacheMiss, "cache miss")
}

// SetConstituents caches a constituent list
func (m *MemoryCache) SetConstituents(ctx context.Context, sectorCode string, symbols []string, expiration time.Duration) error {
	m.set(keyConstituents+sectorCode, append([]string(nil), symbols...), expiration)
	return nil
}

// GetProfile retrieves a cached stock profile
func (m *MemoryCache) GetProfile(ctx context.Context, symbol string) (*market.Profile, error) {
	if v, ok := m.get(keyProfile + symbol); ok {
		profile := v.(market.Profile)
		return &profile, nil
	}
	return nil, apperrors.New(apperrors.ErrCodeCacheMiss, "cache miss")
}

// SetProfile caches a stock profile
func (m *MemoryCache) SetProfile(ctx context.Context, symbol string, profile *market.Profile, expiration time.Duration) error {
	m.set(keyProfile+symbol, *profile, expiration)
	return nil
}

// GetSelection retrieves a cached screener selection
func (m *MemoryCache) GetSelection(ctx context.Context, sectorCode, asOfDate string) ([]string, error) {
	if v, ok := m.get(keySelection + sectorCode + ":" + asOfDate); ok {
		return append([]string(nil), v.([]string)...), nil
	}
	return nil, apperrors.New(apperrors.ErrCodeCacheMiss, "cache miss")
}

// SetSelection caches a screener selection
func (m *MemoryCache) SetSelection(ctx context.Context, sectorCode, asOfDate string, symbols []string, expiration time.Duration) error {
	m.set(keySelection+sectorCode+":"+asOfDate, append([]string(nil), symbols...), expiration)
	return nil
}

// Close is a no-op for the memory cache
func (m *MemoryCache) Close() error {
	return nil
}
