package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/jbctechsolutions/spendgate/internal/application/ports"
)

// DefaultImageCacheCapacity bounds the moderation verdict cache.
const DefaultImageCacheCapacity = 5000

// ImageDedupCache caches image moderation verdicts keyed by the sha256 of
// the image bytes. When full, the least recently used entry is evicted.
// Both Get and a duplicate Put count as a use.
type ImageDedupCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	recency  *list.List // front = most recently used
	now      func() time.Time
}

type imageNode struct {
	entry ports.ImageCacheEntry
}

// ImageOption configures an ImageDedupCache.
type ImageOption func(*ImageDedupCache)

// WithImageClock replaces the cache's time source.
func WithImageClock(now func() time.Time) ImageOption {
	return func(c *ImageDedupCache) {
		c.now = now
	}
}

// NewImageDedupCache creates a moderation verdict cache. A capacity of zero
// or less falls back to DefaultImageCacheCapacity.
func NewImageDedupCache(capacity int, opts ...ImageOption) *ImageDedupCache {
	if capacity <= 0 {
		capacity = DefaultImageCacheCapacity
	}
	c := &ImageDedupCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		recency:  list.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Hash returns the hex-encoded sha256 of the image bytes.
func (c *ImageDedupCache) Hash(image []byte) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached verdict for hash, marking it most recently used.
func (c *ImageDedupCache) Get(hash string) (*ports.ImageCacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, exists := c.entries[hash]
	if !exists {
		return nil, false
	}

	c.recency.MoveToFront(el)
	node := el.Value.(*imageNode)
	node.entry.AccessCount++

	out := node.entry
	return &out, true
}

// Put stores verdict under the content digest of image, returning the
// digest. A digest already present keeps its existing verdict and is only
// refreshed. Inserting into a full cache evicts the least recently used
// entry first.
func (c *ImageDedupCache) Put(image []byte, verdict ports.ModerationResult) (string, error) {
	hash := c.Hash(image)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, exists := c.entries[hash]; exists {
		c.recency.MoveToFront(el)
		el.Value.(*imageNode).entry.AccessCount++
		return hash, nil
	}

	if len(c.entries) >= c.capacity {
		c.evictOldest()
	}

	node := &imageNode{entry: ports.ImageCacheEntry{
		Hash:        hash,
		Verdict:     verdict,
		InsertedAt:  c.now(),
		AccessCount: 1,
	}}
	c.entries[hash] = c.recency.PushFront(node)
	return hash, nil
}

// evictOldest removes the back of the recency list. Called with mu held.
func (c *ImageDedupCache) evictOldest() {
	el := c.recency.Back()
	if el == nil {
		// An empty recency list with a non-empty index means the two
		// diverged; drop the index so the capacity bound still holds.
		c.entries = make(map[string]*list.Element)
		return
	}
	node := el.Value.(*imageNode)
	c.recency.Remove(el)
	delete(c.entries, node.entry.Hash)
}

// Delete removes the entry for hash, reporting whether it was present.
func (c *ImageDedupCache) Delete(hash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, exists := c.entries[hash]
	if !exists {
		return false
	}
	c.recency.Remove(el)
	delete(c.entries, hash)
	return true
}

// Clear removes all entries.
func (c *ImageDedupCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.recency.Init()
}

// Stats returns cache occupancy statistics.
func (c *ImageDedupCache) Stats() ports.ImageCacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := ports.ImageCacheStats{
		Size:     len(c.entries),
		Capacity: c.capacity,
	}
	if el := c.recency.Back(); el != nil {
		stats.OldestTimestamp = el.Value.(*imageNode).entry.InsertedAt
	}
	return stats
}

var _ ports.ImageCachePort = (*ImageDedupCache)(nil)
