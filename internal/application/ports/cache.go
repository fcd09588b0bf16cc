package ports

import (
	"context"
	"time"

	"github.com/jbctechsolutions/spendgate/internal/domain/request"
)

// CacheEntry is a cached provider response with accounting metadata.
type CacheEntry struct {
	Key          string                `json:"key"`
	ProviderType request.ProviderType  `json:"provider_type"`
	Value        string                `json:"value"`
	TokenCount   int                   `json:"token_count"`
	CostEstimate float64               `json:"cost_estimate"`
	HitCount     int64                 `json:"hit_count"`
	CreatedAt    time.Time             `json:"created_at"`
	ExpiresAt    time.Time             `json:"expires_at"`
}

// Expired reports whether the entry is past its expiry at the given instant.
func (e *CacheEntry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// CacheStats summarizes response cache effectiveness.
type CacheStats struct {
	TotalEntries int64   `json:"total_entries"`
	HitCount     int64   `json:"hit_count"`
	MissCount    int64   `json:"miss_count"`
	HitRate      float64 `json:"hit_rate"` // percentage
	ExpiredCount int64   `json:"expired_count"`
	CostSaved    float64 `json:"cost_saved"` // estimated USD saved by hits
}

// ResponseCachePort stores provider responses keyed by fingerprint and
// provider type. Entries expire after the cache's configured TTL; expired
// entries read as misses even if physically present. Implementations must
// treat store faults as misses on read and as no-ops on write so a broken
// cache never blocks the request path.
type ResponseCachePort interface {
	// Get returns the entry for (key, providerType) or a miss. A hit
	// increments the entry's hit count.
	Get(ctx context.Context, key string, providerType request.ProviderType) (*CacheEntry, bool)

	// Put stores a response, overwriting any existing entry for the same
	// (key, providerType). The stored hit count is 1: the originating call
	// counts as the first use.
	Put(ctx context.Context, key string, providerType request.ProviderType, value string, tokenCount int, costEstimate float64) (*CacheEntry, error)

	// Delete removes the entry for (key, providerType).
	Delete(ctx context.Context, key string, providerType request.ProviderType) error

	// Clear removes all entries.
	Clear(ctx context.Context) error

	// Cleanup sweeps expired entries, returning the number removed. Expiry
	// is already enforced lazily on read; the sweep only bounds memory.
	Cleanup(ctx context.Context) (int64, error)

	// Stats returns cache statistics.
	Stats(ctx context.Context) (*CacheStats, error)
}

// ImageCacheEntry is a cached image moderation verdict.
type ImageCacheEntry struct {
	Hash        string
	Verdict     ModerationResult
	InsertedAt  time.Time
	AccessCount int64
}

// ImageCacheStats summarizes the content-addressed image cache.
type ImageCacheStats struct {
	Size            int
	Capacity        int
	OldestTimestamp time.Time
}

// ImageCachePort is a fixed-capacity content-addressed store for moderation
// verdicts with least-recently-used eviction. A hashing or store fault reads
// as a miss: moderation must still run.
type ImageCachePort interface {
	// Put stores the verdict under the content digest of image. If the
	// digest is already present this is a hit: recency is refreshed, the
	// existing verdict is kept, and the digest is returned.
	Put(image []byte, verdict ModerationResult) (string, error)

	// Get returns the entry for hash or a miss. A hit refreshes recency and
	// increments the access count.
	Get(hash string) (*ImageCacheEntry, bool)

	// Hash returns the content digest Put would use for image.
	Hash(image []byte) string

	// Delete removes the entry for hash, reporting whether it was present.
	Delete(hash string) bool

	// Clear removes all entries.
	Clear()

	// Stats returns current occupancy.
	Stats() ImageCacheStats
}
