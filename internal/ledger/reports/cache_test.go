package reports

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute, nil), mr
}

func TestCacheComputesOnceUntilInvalidated(t *testing.T) {
	cache, _ := newTestCache(t)
	tenant := uuid.New()
	key := cacheKey(tenant, "tb", "2024-03-31:false")

	calls := 0
	compute := func() (TrialBalance, error) {
		calls++
		return TrialBalance{TotalDebit: 100, TotalCredit: 100}, nil
	}

	ctx := context.Background()
	first, err := getOrCompute(ctx, cache, key, compute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := getOrCompute(ctx, cache, key, compute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one computation, got %d", calls)
	}
	if first.TotalDebit != second.TotalDebit {
		t.Fatal("cached value must match computed value")
	}

	cache.Invalidate(ctx, tenant)
	if _, err := getOrCompute(ctx, cache, key, compute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected recomputation after invalidation, got %d calls", calls)
	}
}

func TestInvalidateIsTenantScoped(t *testing.T) {
	cache, mr := newTestCache(t)
	tenantA := uuid.New()
	tenantB := uuid.New()
	ctx := context.Background()

	compute := func() (ledger.Money, error) { return 42, nil }
	if _, err := getOrCompute(ctx, cache, cacheKey(tenantA, "bs", "2024-03-31"), compute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := getOrCompute(ctx, cache, cacheKey(tenantB, "bs", "2024-03-31"), compute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cache.Invalidate(ctx, tenantA)
	if mr.Exists(cacheKey(tenantA, "bs", "2024-03-31")) {
		t.Fatal("tenant A key should be gone")
	}
	if !mr.Exists(cacheKey(tenantB, "bs", "2024-03-31")) {
		t.Fatal("tenant B key must survive")
	}
}

func TestCacheNilDegradesToCompute(t *testing.T) {
	value, err := getOrCompute(context.Background(), nil, "any", func() (int, error) { return 7, nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != 7 {
		t.Fatalf("expected 7, got %d", value)
	}
}
