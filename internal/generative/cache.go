package generative

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ResultCache stores generated results by key
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache is a ResultCache backed by Redis. Keys are scoped under a prefix.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCacheFromClient creates a cache sharing an existing client
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, prefix: "lockscreenr:generated:"}
}

// Get retrieves a value; a missing key is not an error
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	result, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get key %s from Redis: %w", key, err)
	}
	return result, true, nil
}

// Set stores a value with ttl; zero ttl keeps it forever
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s in Redis: %w", key, err)
	}
	return nil
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryCache is the in-process ResultCache used when Redis is not configured
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty in-process cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get retrieves a value, dropping it if expired
func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expires.IsZero() && !m.now().Before(entry.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set stores a copy of value
func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expires = m.now().Add(ttl)
	}
	m.entries[key] = entry
	return nil
}

// Len returns the number of stored entries, expired or not
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// CachedGenerator serves repeated requests from a ResultCache. Cache errors
// are logged and the call falls through to the wrapped generator.
type CachedGenerator struct {
	next   Generator
	cache  ResultCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedGenerator wraps next
func NewCachedGenerator(next Generator, cache ResultCache, ttl time.Duration, logger *zap.Logger) *CachedGenerator {
	return &CachedGenerator{next: next, cache: cache, ttl: ttl, logger: logger}
}

// GenerateIcon returns a cached icon for the same description when present
func (g *CachedGenerator) GenerateIcon(ctx context.Context, req IconRequest) (IconResult, error) {
	var result IconResult
	key := cacheKey("icon", req.Description)
	if g.lookup(ctx, key, &result) {
		return result, nil
	}

	result, err := g.next.GenerateIcon(ctx, req)
	if err != nil {
		return IconResult{}, err
	}
	g.store(ctx, key, result)
	return result, nil
}

// GenerateHeatmap returns a cached overlay for the same photo when present
func (g *CachedGenerator) GenerateHeatmap(ctx context.Context, req HeatmapRequest) (HeatmapResult, error) {
	var result HeatmapResult
	key := cacheKey("heatmap", req.PhotoDataURI)
	if g.lookup(ctx, key, &result) {
		return result, nil
	}

	result, err := g.next.GenerateHeatmap(ctx, req)
	if err != nil {
		return HeatmapResult{}, err
	}
	g.store(ctx, key, result)
	return result, nil
}

func (g *CachedGenerator) lookup(ctx context.Context, key string, out interface{}) bool {
	data, found, err := g.cache.Get(ctx, key)
	if err != nil {
		g.logger.Warn("Generation cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		g.logger.Warn("Discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	g.logger.Debug("Generation cache hit", zap.String("key", key))
	return true
}

func (g *CachedGenerator) store(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := g.cache.Set(ctx, key, data, g.ttl); err != nil {
		g.logger.Warn("Generation cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func cacheKey(kind, input string) string {
	sum := sha256.Sum256([]byte(input))
	return kind + ":" + hex.EncodeToString(sum[:])
}
