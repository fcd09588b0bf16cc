// Package cache provides the response cache and image dedup cache adapters.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jbctechsolutions/spendgate/internal/application/ports"
	"github.com/jbctechsolutions/spendgate/internal/domain/request"
)

// DefaultTTL is the response lifetime applied to every provider type.
const DefaultTTL = 24 * time.Hour

// MemoryResponseCache implements ResponseCachePort with an in-memory map.
// Expiry is lazy: an entry past its TTL reads as a miss even before the
// periodic sweep removes it.
type MemoryResponseCache struct {
	mu      sync.RWMutex
	entries map[string]*ports.CacheEntry
	ttl     time.Duration
	now     func() time.Time

	// Statistics
	hitCount     int64
	missCount    int64
	expiredCount int64
	costSaved    float64 // guarded by mu

	// Sweep
	sweepTicker *time.Ticker
	stopSweep   chan struct{}
	closeOnce   sync.Once
}

// MemoryOption configures a MemoryResponseCache.
type MemoryOption func(*MemoryResponseCache)

// WithClock replaces the cache's time source. Used in tests to simulate TTL
// expiry without sleeping.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryResponseCache) {
		m.now = now
	}
}

// NewMemoryResponseCache creates an in-memory response cache. A ttl of zero
// or less falls back to DefaultTTL. A positive sweepPeriod starts a
// background goroutine that removes expired entries; Close stops it.
func NewMemoryResponseCache(ttl, sweepPeriod time.Duration, opts ...MemoryOption) *MemoryResponseCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &MemoryResponseCache{
		entries:   make(map[string]*ports.CacheEntry),
		ttl:       ttl,
		now:       time.Now,
		stopSweep: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	if sweepPeriod > 0 {
		m.sweepTicker = time.NewTicker(sweepPeriod)
		go m.sweepLoop()
	}

	return m
}

// sweepLoop runs the periodic expired-entry sweep.
func (m *MemoryResponseCache) sweepLoop() {
	for {
		select {
		case <-m.sweepTicker.C:
			_, _ = m.Cleanup(context.Background())
		case <-m.stopSweep:
			m.sweepTicker.Stop()
			return
		}
	}
}

// Close stops the sweep goroutine.
func (m *MemoryResponseCache) Close() error {
	if m.sweepTicker != nil {
		m.closeOnce.Do(func() {
			close(m.stopSweep)
		})
	}
	return nil
}

// Get retrieves the entry for (key, providerType). A hit increments the
// entry's hit count.
func (m *MemoryResponseCache) Get(ctx context.Context, key string, providerType request.ProviderType) (*ports.CacheEntry, bool) {
	ck := compositeKey(key, providerType)

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.entries[ck]
	if !exists {
		atomic.AddInt64(&m.missCount, 1)
		return nil, false
	}

	if entry.Expired(m.now()) {
		delete(m.entries, ck)
		atomic.AddInt64(&m.missCount, 1)
		atomic.AddInt64(&m.expiredCount, 1)
		return nil, false
	}

	entry.HitCount++
	atomic.AddInt64(&m.hitCount, 1)
	m.costSaved += entry.CostEstimate

	out := *entry
	return &out, true
}

// Put stores a response, overwriting any entry for the same key and type.
// The hit count starts at 1 for the originating call.
func (m *MemoryResponseCache) Put(ctx context.Context, key string, providerType request.ProviderType, value string, tokenCount int, costEstimate float64) (*ports.CacheEntry, error) {
	now := m.now()
	entry := &ports.CacheEntry{
		Key:          key,
		ProviderType: providerType,
		Value:        value,
		TokenCount:   tokenCount,
		CostEstimate: costEstimate,
		HitCount:     1,
		CreatedAt:    now,
		ExpiresAt:    now.Add(m.ttl),
	}

	m.mu.Lock()
	m.entries[compositeKey(key, providerType)] = entry
	m.mu.Unlock()

	out := *entry
	return &out, nil
}

// Delete removes the entry for (key, providerType).
func (m *MemoryResponseCache) Delete(ctx context.Context, key string, providerType request.ProviderType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, compositeKey(key, providerType))
	return nil
}

// Clear removes all entries.
func (m *MemoryResponseCache) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*ports.CacheEntry)
	return nil
}

// Cleanup removes expired entries, returning the number removed.
func (m *MemoryResponseCache) Cleanup(ctx context.Context) (int64, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for ck, entry := range m.entries {
		if entry.Expired(now) {
			delete(m.entries, ck)
			removed++
		}
	}
	atomic.AddInt64(&m.expiredCount, removed)
	return removed, nil
}

// Stats returns cache statistics.
func (m *MemoryResponseCache) Stats(ctx context.Context) (*ports.CacheStats, error) {
	m.mu.RLock()
	total := int64(len(m.entries))
	saved := m.costSaved
	m.mu.RUnlock()

	hits := atomic.LoadInt64(&m.hitCount)
	misses := atomic.LoadInt64(&m.missCount)

	stats := &ports.CacheStats{
		TotalEntries: total,
		HitCount:     hits,
		MissCount:    misses,
		ExpiredCount: atomic.LoadInt64(&m.expiredCount),
		CostSaved:    saved,
	}
	if hits+misses > 0 {
		stats.HitRate = float64(hits) / float64(hits+misses) * 100
	}
	return stats, nil
}

func compositeKey(key string, providerType request.ProviderType) string {
	return string(providerType) + "\x00" + key
}

// Ensure MemoryResponseCache implements ResponseCachePort.
var _ ports.ResponseCachePort = (*MemoryResponseCache)(nil)
