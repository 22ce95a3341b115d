// Package newsfeed supplies the NewsItem collection shown on the
// dashboard. Two backends exist: the built-in static catalog and an
// RSS-backed source assembled from configured feeds. Both guarantee
// stable item IDs so favorites and analysis state survive a refresh.
package newsfeed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/newspulse-ai/newspulse/internal/config"
	"github.com/newspulse-ai/newspulse/pkg/models"
)

// Source supplies the news collection.
type Source interface {
	// Name returns the human-readable name of this source.
	Name() string

	// Fetch returns the current collection. Item IDs are stable across
	// calls for items that persist.
	Fetch(ctx context.Context) ([]models.NewsItem, error)
}

// NewSourceFromConfig builds the configured news source.
func NewSourceFromConfig(cfg *config.Config) (Source, error) {
	switch cfg.News.Source {
	case "", "static":
		return NewStatic(), nil
	case "rss":
		feeds := make([]Feed, 0, len(cfg.News.Feeds))
		for _, f := range cfg.News.Feeds {
			feeds = append(feeds, Feed{Name: f.Name, URL: f.URL, Icon: f.Icon})
		}
		ttl := time.Duration(cfg.News.CacheTTLSec) * time.Second
		return NewRSS(feeds, ttl, cfg.News.DefaultHalal), nil
	default:
		return nil, fmt.Errorf("newsfeed: unknown source %q", cfg.News.Source)
	}
}

// --- Simple in-memory cache ---

// cacheEntry holds a cached value with expiration.
type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// Cache is a simple thread-safe in-memory cache with TTL.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

// NewCache creates a new cache with the given default TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// Get retrieves a value from the cache. Returns nil, false if not found or expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

// Set stores a value in the cache with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Invalidate removes a key from the cache.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// --- Rate limiter ---

// RateLimiter provides simple token-bucket rate limiting for polite
// fetching from upstream feeds.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	refillRate time.Duration
	lastRefill time.Time
}

// NewRateLimiter creates a rate limiter that allows maxTokens requests
// per refillRate duration.
func NewRateLimiter(maxTokens int, refillRate time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Wait blocks until a token is available or the context is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		rl.refill()
		if rl.tokens > 0 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
			// Check again after a short sleep.
		}
	}
}

// refill adds tokens based on elapsed time. Must be called with mu held.
func (rl *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill)
	if elapsed >= rl.refillRate {
		periods := int(elapsed / rl.refillRate)
		rl.tokens += periods
		if rl.tokens > rl.maxTokens {
			rl.tokens = rl.maxTokens
		}
		rl.lastRefill = rl.lastRefill.Add(time.Duration(periods) * rl.refillRate)
	}
}
