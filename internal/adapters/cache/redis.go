package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jbctechsolutions/spendgate/internal/application/ports"
	"github.com/jbctechsolutions/spendgate/internal/domain/request"
)

var redisTracer = otel.Tracer("spendgate.cache.redis")

const redisKeyPrefix = "spendgate:cache:"

// RedisResponseCache implements ResponseCachePort on a Redis instance so
// multiple bot front-ends share one response cache. Entries are stored as
// JSON with a Redis-side TTL; Redis evicts expired keys itself, so Cleanup
// is a no-op here. A broken connection degrades to misses.
type RedisResponseCache struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time

	hitCount  int64
	missCount int64

	mu        sync.Mutex
	costSaved float64
}

// NewRedisResponseCache creates a Redis-backed response cache. A ttl of
// zero or less falls back to DefaultTTL.
func NewRedisResponseCache(rdb *redis.Client, ttl time.Duration) *RedisResponseCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisResponseCache{
		rdb: rdb,
		ttl: ttl,
		now: time.Now,
	}
}

func redisKey(key string, providerType request.ProviderType) string {
	return redisKeyPrefix + string(providerType) + ":" + key
}

// Get retrieves the entry for (key, providerType). A hit increments the
// stored hit count without resetting the key's TTL.
func (r *RedisResponseCache) Get(ctx context.Context, key string, providerType request.ProviderType) (*ports.CacheEntry, bool) {
	ctx, span := redisTracer.Start(ctx, "cache.redis.Get",
		trace.WithAttributes(attribute.String("cache.provider_type", string(providerType))))
	defer span.End()

	rk := redisKey(key, providerType)
	raw, err := r.rdb.Get(ctx, rk).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			span.RecordError(err)
		}
		atomic.AddInt64(&r.missCount, 1)
		return nil, false
	}

	var entry ports.CacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		span.RecordError(err)
		atomic.AddInt64(&r.missCount, 1)
		return nil, false
	}

	if entry.Expired(r.now()) {
		_ = r.rdb.Del(ctx, rk).Err()
		atomic.AddInt64(&r.missCount, 1)
		return nil, false
	}

	entry.HitCount++
	if updated, err := json.Marshal(&entry); err == nil {
		_ = r.rdb.Set(ctx, rk, updated, redis.KeepTTL).Err()
	}

	atomic.AddInt64(&r.hitCount, 1)
	r.mu.Lock()
	r.costSaved += entry.CostEstimate
	r.mu.Unlock()

	return &entry, true
}

// Put stores a response under a Redis TTL. The hit count starts at 1 for
// the originating call.
func (r *RedisResponseCache) Put(ctx context.Context, key string, providerType request.ProviderType, value string, tokenCount int, costEstimate float64) (*ports.CacheEntry, error) {
	ctx, span := redisTracer.Start(ctx, "cache.redis.Put",
		trace.WithAttributes(attribute.String("cache.provider_type", string(providerType))))
	defer span.End()

	now := r.now()
	entry := &ports.CacheEntry{
		Key:          key,
		ProviderType: providerType,
		Value:        value,
		TokenCount:   tokenCount,
		CostEstimate: costEstimate,
		HitCount:     1,
		CreatedAt:    now,
		ExpiresAt:    now.Add(r.ttl),
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	if err := r.rdb.Set(ctx, redisKey(key, providerType), raw, r.ttl).Err(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return entry, nil
}

// Delete removes the entry for (key, providerType).
func (r *RedisResponseCache) Delete(ctx context.Context, key string, providerType request.ProviderType) error {
	return r.rdb.Del(ctx, redisKey(key, providerType)).Err()
}

// Clear removes all entries under the cache prefix.
func (r *RedisResponseCache) Clear(ctx context.Context) error {
	ctx, span := redisTracer.Start(ctx, "cache.redis.Clear")
	defer span.End()

	iter := r.rdb.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			span.RecordError(err)
			return err
		}
	}
	return iter.Err()
}

// Cleanup is a no-op: Redis expires keys itself.
func (r *RedisResponseCache) Cleanup(ctx context.Context) (int64, error) {
	return 0, nil
}

// Stats returns cache statistics. Hit and miss counters cover the current
// process; the entry count comes from a prefix scan.
func (r *RedisResponseCache) Stats(ctx context.Context) (*ports.CacheStats, error) {
	ctx, span := redisTracer.Start(ctx, "cache.redis.Stats")
	defer span.End()

	var total int64
	iter := r.rdb.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		total++
	}
	if err := iter.Err(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	r.mu.Lock()
	saved := r.costSaved
	r.mu.Unlock()

	stats := &ports.CacheStats{
		TotalEntries: total,
		HitCount:     atomic.LoadInt64(&r.hitCount),
		MissCount:    atomic.LoadInt64(&r.missCount),
		CostSaved:    saved,
	}
	if sum := stats.HitCount + stats.MissCount; sum > 0 {
		stats.HitRate = float64(stats.HitCount) / float64(sum) * 100
	}
	return stats, nil
}

var _ ports.ResponseCachePort = (*RedisResponseCache)(nil)
