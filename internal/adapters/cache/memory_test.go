package cache

import (
	"context"
	"testing"
	"time"

	"github.com/jbctechsolutions/spendgate/internal/domain/request"
)

func TestMemoryResponseCachePutAndGet(t *testing.T) {
	c := NewMemoryResponseCache(time.Hour, 0)
	defer c.Close()
	ctx := context.Background()

	stored, err := c.Put(ctx, "fp-1", request.ProviderText, "hello there", 12, 0.0005)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if stored.HitCount != 1 {
		t.Errorf("expected hit count 1 after put, got %d", stored.HitCount)
	}

	entry, ok := c.Get(ctx, "fp-1", request.ProviderText)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if entry.Value != "hello there" {
		t.Errorf("expected value 'hello there', got %q", entry.Value)
	}
	if entry.HitCount != 2 {
		t.Errorf("expected hit count 2 after first get, got %d", entry.HitCount)
	}
	if entry.TokenCount != 12 {
		t.Errorf("expected token count 12, got %d", entry.TokenCount)
	}
}

func TestMemoryResponseCacheMiss(t *testing.T) {
	c := NewMemoryResponseCache(time.Hour, 0)
	defer c.Close()

	if _, ok := c.Get(context.Background(), "absent", request.ProviderText); ok {
		t.Error("expected miss for absent key")
	}
}

func TestMemoryResponseCacheProviderTypeSeparatesKeys(t *testing.T) {
	c := NewMemoryResponseCache(time.Hour, 0)
	defer c.Close()
	ctx := context.Background()

	if _, err := c.Put(ctx, "same-key", request.ProviderText, "text response", 5, 0.001); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := c.Put(ctx, "same-key", request.ProviderTranscription, "transcript", 0, 0.006); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	text, ok := c.Get(ctx, "same-key", request.ProviderText)
	if !ok || text.Value != "text response" {
		t.Errorf("expected text entry, got ok=%v entry=%+v", ok, text)
	}
	tr, ok := c.Get(ctx, "same-key", request.ProviderTranscription)
	if !ok || tr.Value != "transcript" {
		t.Errorf("expected transcription entry, got ok=%v entry=%+v", ok, tr)
	}
}

func TestMemoryResponseCacheTTLExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	c := NewMemoryResponseCache(24*time.Hour, 0, WithClock(clock))
	defer c.Close()
	ctx := context.Background()

	if _, err := c.Put(ctx, "fp-ttl", request.ProviderText, "cached", 5, 0.001); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	now = now.Add(23 * time.Hour)
	if _, ok := c.Get(ctx, "fp-ttl", request.ProviderText); !ok {
		t.Error("entry should still be live before the TTL elapses")
	}

	now = now.Add(2 * time.Hour)
	if _, ok := c.Get(ctx, "fp-ttl", request.ProviderText); ok {
		t.Error("entry should have expired after 25 hours")
	}
}

func TestMemoryResponseCachePutOverwrites(t *testing.T) {
	c := NewMemoryResponseCache(time.Hour, 0)
	defer c.Close()
	ctx := context.Background()

	if _, err := c.Put(ctx, "fp-2", request.ProviderText, "old", 3, 0.001); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, ok := c.Get(ctx, "fp-2", request.ProviderText); !ok {
		t.Fatal("expected hit")
	}
	if _, err := c.Put(ctx, "fp-2", request.ProviderText, "new", 3, 0.001); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	entry, ok := c.Get(ctx, "fp-2", request.ProviderText)
	if !ok {
		t.Fatal("expected hit after overwrite")
	}
	if entry.Value != "new" {
		t.Errorf("expected overwritten value 'new', got %q", entry.Value)
	}
	if entry.HitCount != 2 {
		t.Errorf("overwrite should reset hit count, got %d", entry.HitCount)
	}
}

func TestMemoryResponseCacheDeleteAndClear(t *testing.T) {
	c := NewMemoryResponseCache(time.Hour, 0)
	defer c.Close()
	ctx := context.Background()

	_, _ = c.Put(ctx, "a", request.ProviderText, "1", 1, 0)
	_, _ = c.Put(ctx, "b", request.ProviderText, "2", 1, 0)

	if err := c.Delete(ctx, "a", request.ProviderText); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := c.Get(ctx, "a", request.ProviderText); ok {
		t.Error("deleted entry should miss")
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, ok := c.Get(ctx, "b", request.ProviderText); ok {
		t.Error("cleared entry should miss")
	}
}

func TestMemoryResponseCacheCleanup(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	c := NewMemoryResponseCache(time.Hour, 0, WithClock(clock))
	defer c.Close()
	ctx := context.Background()

	_, _ = c.Put(ctx, "old-1", request.ProviderText, "x", 1, 0)
	_, _ = c.Put(ctx, "old-2", request.ProviderText, "y", 1, 0)

	now = now.Add(2 * time.Hour)
	_, _ = c.Put(ctx, "fresh", request.ProviderText, "z", 1, 0)

	removed, err := c.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 expired entries removed, got %d", removed)
	}

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalEntries != 1 {
		t.Errorf("expected 1 live entry after cleanup, got %d", stats.TotalEntries)
	}
}

func TestMemoryResponseCacheStats(t *testing.T) {
	c := NewMemoryResponseCache(time.Hour, 0)
	defer c.Close()
	ctx := context.Background()

	_, _ = c.Put(ctx, "fp", request.ProviderText, "resp", 10, 0.002)

	_, _ = c.Get(ctx, "fp", request.ProviderText)
	_, _ = c.Get(ctx, "fp", request.ProviderText)
	_, _ = c.Get(ctx, "nothing", request.ProviderText)

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.HitCount != 2 {
		t.Errorf("expected 2 hits, got %d", stats.HitCount)
	}
	if stats.MissCount != 1 {
		t.Errorf("expected 1 miss, got %d", stats.MissCount)
	}
	if stats.HitRate < 66.0 || stats.HitRate > 67.0 {
		t.Errorf("expected hit rate near 66.7, got %f", stats.HitRate)
	}
	if stats.CostSaved < 0.0039 || stats.CostSaved > 0.0041 {
		t.Errorf("expected cost saved 0.004, got %f", stats.CostSaved)
	}
}
