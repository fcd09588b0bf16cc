package cache

import (
	"context"
	"testing"
	"time"

	"github.com/jbctechsolutions/spendgate/internal/domain/request"
	"github.com/jbctechsolutions/spendgate/internal/infrastructure/storage"
)

func openTestCache(t *testing.T, opts ...SQLiteOption) *SQLiteResponseCache {
	t.Helper()

	conn, err := storage.NewConnection(":memory:")
	if err != nil {
		t.Fatalf("NewConnection failed: %v", err)
	}
	if err := conn.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return NewSQLiteResponseCache(conn, time.Hour, opts...)
}

func TestSQLiteResponseCachePutAndGet(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	stored, err := c.Put(ctx, "fp-1", request.ProviderText, "response body", 20, 0.003)
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
	if entry.Value != "response body" {
		t.Errorf("expected stored value, got %q", entry.Value)
	}
	if entry.HitCount != 2 {
		t.Errorf("expected hit count 2 after first get, got %d", entry.HitCount)
	}

	// Hit count persists across reads.
	entry, ok = c.Get(ctx, "fp-1", request.ProviderText)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if entry.HitCount != 3 {
		t.Errorf("expected hit count 3 after second get, got %d", entry.HitCount)
	}
}

func TestSQLiteResponseCacheMiss(t *testing.T) {
	c := openTestCache(t)

	if _, ok := c.Get(context.Background(), "absent", request.ProviderVision); ok {
		t.Error("expected miss for absent key")
	}
}

func TestSQLiteResponseCacheProviderTypeSeparatesKeys(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	if _, err := c.Put(ctx, "k", request.ProviderText, "text", 1, 0); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := c.Put(ctx, "k", request.ProviderVision, "verdict", 0, 0); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	text, ok := c.Get(ctx, "k", request.ProviderText)
	if !ok || text.Value != "text" {
		t.Errorf("expected text entry, got ok=%v entry=%+v", ok, text)
	}
	vision, ok := c.Get(ctx, "k", request.ProviderVision)
	if !ok || vision.Value != "verdict" {
		t.Errorf("expected vision entry, got ok=%v entry=%+v", ok, vision)
	}
}

func TestSQLiteResponseCacheTTLExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	c := openTestCache(t, WithSQLiteClock(clock))
	ctx := context.Background()

	if _, err := c.Put(ctx, "fp-ttl", request.ProviderText, "cached", 5, 0.001); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, ok := c.Get(ctx, "fp-ttl", request.ProviderText); ok {
		t.Error("entry should have expired")
	}

	// The expired row was removed in passing.
	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalEntries != 0 {
		t.Errorf("expected expired row deleted, got %d entries", stats.TotalEntries)
	}
}

func TestSQLiteResponseCacheCleanup(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	c := openTestCache(t, WithSQLiteClock(clock))
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
		t.Errorf("expected 2 rows removed, got %d", removed)
	}
}

func TestSQLiteResponseCacheDeleteAndClear(t *testing.T) {
	c := openTestCache(t)
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
	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalEntries != 0 {
		t.Errorf("expected empty table after clear, got %d", stats.TotalEntries)
	}
}

func TestSQLiteResponseCacheStatsCostSaved(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	_, _ = c.Put(ctx, "fp", request.ProviderText, "resp", 10, 0.01)
	_, _ = c.Get(ctx, "fp", request.ProviderText)
	_, _ = c.Get(ctx, "fp", request.ProviderText)

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	// Two reads beyond the originating call avoided two provider charges.
	if stats.CostSaved < 0.019 || stats.CostSaved > 0.021 {
		t.Errorf("expected cost saved near 0.02, got %f", stats.CostSaved)
	}
	if stats.HitCount != 2 {
		t.Errorf("expected 2 hits, got %d", stats.HitCount)
	}
}
