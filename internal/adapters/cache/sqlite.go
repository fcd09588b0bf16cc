package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jbctechsolutions/spendgate/internal/application/ports"
	"github.com/jbctechsolutions/spendgate/internal/domain/request"
	"github.com/jbctechsolutions/spendgate/internal/infrastructure/storage"
)

// SQLiteResponseCache implements ResponseCachePort on top of the shared
// SQLite database so cached responses survive restarts. Store faults read
// as misses; the request path never fails because the cache is broken.
type SQLiteResponseCache struct {
	conn *storage.Connection
	ttl  time.Duration
	now  func() time.Time

	hitCount     int64
	missCount    int64
	expiredCount int64
}

// SQLiteOption configures a SQLiteResponseCache.
type SQLiteOption func(*SQLiteResponseCache)

// WithSQLiteClock replaces the cache's time source.
func WithSQLiteClock(now func() time.Time) SQLiteOption {
	return func(s *SQLiteResponseCache) {
		s.now = now
	}
}

// NewSQLiteResponseCache creates a persistent response cache over an open
// connection. A ttl of zero or less falls back to DefaultTTL.
func NewSQLiteResponseCache(conn *storage.Connection, ttl time.Duration, opts ...SQLiteOption) *SQLiteResponseCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &SQLiteResponseCache{
		conn: conn,
		ttl:  ttl,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get retrieves the entry for (key, providerType), incrementing its hit
// count. Expired rows read as misses and are deleted in passing.
func (s *SQLiteResponseCache) Get(ctx context.Context, key string, providerType request.ProviderType) (*ports.CacheEntry, bool) {
	db, err := s.conn.DB()
	if err != nil {
		atomic.AddInt64(&s.missCount, 1)
		return nil, false
	}

	now := s.now()
	entry := &ports.CacheEntry{Key: key, ProviderType: providerType}
	err = db.QueryRowContext(ctx, `
		SELECT response_content, token_count, cost_estimate, hit_count, created_at, expires_at
		FROM response_cache
		WHERE key = ? AND provider_type = ?
	`, key, string(providerType)).Scan(
		&entry.Value, &entry.TokenCount, &entry.CostEstimate,
		&entry.HitCount, &entry.CreatedAt, &entry.ExpiresAt,
	)
	if err != nil {
		// sql.ErrNoRows and store faults both degrade to a miss.
		atomic.AddInt64(&s.missCount, 1)
		return nil, false
	}

	if entry.Expired(now) {
		_, _ = db.ExecContext(ctx, `DELETE FROM response_cache WHERE key = ? AND provider_type = ?`, key, string(providerType))
		atomic.AddInt64(&s.missCount, 1)
		atomic.AddInt64(&s.expiredCount, 1)
		return nil, false
	}

	entry.HitCount++
	_, _ = db.ExecContext(ctx, `
		UPDATE response_cache
		SET hit_count = hit_count + 1, last_accessed_at = ?
		WHERE key = ? AND provider_type = ?
	`, now, key, string(providerType))

	atomic.AddInt64(&s.hitCount, 1)
	return entry, true
}

// Put stores a response, replacing any row for the same key and type. The
// hit count starts at 1 for the originating call.
func (s *SQLiteResponseCache) Put(ctx context.Context, key string, providerType request.ProviderType, value string, tokenCount int, costEstimate float64) (*ports.CacheEntry, error) {
	db, err := s.conn.DB()
	if err != nil {
		return nil, err
	}

	now := s.now()
	entry := &ports.CacheEntry{
		Key:          key,
		ProviderType: providerType,
		Value:        value,
		TokenCount:   tokenCount,
		CostEstimate: costEstimate,
		HitCount:     1,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
	}

	_, err = db.ExecContext(ctx, `
		INSERT OR REPLACE INTO response_cache
			(key, provider_type, response_content, token_count, cost_estimate, hit_count, created_at, expires_at, last_accessed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, key, string(providerType), value, tokenCount, costEstimate, entry.HitCount, entry.CreatedAt, entry.ExpiresAt, now)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Delete removes the entry for (key, providerType).
func (s *SQLiteResponseCache) Delete(ctx context.Context, key string, providerType request.ProviderType) error {
	db, err := s.conn.DB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `DELETE FROM response_cache WHERE key = ? AND provider_type = ?`, key, string(providerType))
	return err
}

// Clear removes all entries.
func (s *SQLiteResponseCache) Clear(ctx context.Context) error {
	db, err := s.conn.DB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `DELETE FROM response_cache`)
	return err
}

// Cleanup removes expired rows, returning the number removed.
func (s *SQLiteResponseCache) Cleanup(ctx context.Context) (int64, error) {
	db, err := s.conn.DB()
	if err != nil {
		return 0, err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM response_cache WHERE expires_at <= ?`, s.now())
	if err != nil {
		return 0, err
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	atomic.AddInt64(&s.expiredCount, removed)
	return removed, nil
}

// Stats returns cache statistics. Hit and miss counters cover the current
// process; entry counts and cost saved come from the table.
func (s *SQLiteResponseCache) Stats(ctx context.Context) (*ports.CacheStats, error) {
	db, err := s.conn.DB()
	if err != nil {
		return nil, err
	}

	stats := &ports.CacheStats{
		HitCount:     atomic.LoadInt64(&s.hitCount),
		MissCount:    atomic.LoadInt64(&s.missCount),
		ExpiredCount: atomic.LoadInt64(&s.expiredCount),
	}

	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(cost_estimate * (hit_count - 1)), 0)
		FROM response_cache
	`).Scan(&stats.TotalEntries, &stats.CostSaved)
	if err != nil {
		return nil, err
	}

	if total := stats.HitCount + stats.MissCount; total > 0 {
		stats.HitRate = float64(stats.HitCount) / float64(total) * 100
	}
	return stats, nil
}

var _ ports.ResponseCachePort = (*SQLiteResponseCache)(nil)
