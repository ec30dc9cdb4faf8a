package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"coindrift/internal/domain"
)

func newTestStore(t *testing.T) *StateStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewStateStore(rdb)
}

func TestStateStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	st := domain.DecisionState{
		LastAction:   domain.ActionBuy,
		LastBuyPrice: 21400.5,
		BuyStreak:    2,
		Iterations:   17,
		BuyCount:     3,
		SellCount:    2,
		LastDecided:  domain.ActionBuy,
	}
	if err := store.SaveState(ctx, "BTC-GBP", 3600, st); err != nil {
		t.Fatalf("save state: %v", err)
	}

	got, ok, err := store.LoadState(ctx, "BTC-GBP", 3600)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if !ok {
		t.Fatal("expected saved state to be found")
	}
	if got != st {
		t.Errorf("state round trip mismatch: got %+v, want %+v", got, st)
	}
}

func TestStateStoreMissing(t *testing.T) {
	store := newTestStore(t)

	_, ok, err := store.LoadState(context.Background(), "ETH-USD", 900)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if ok {
		t.Error("expected no state for unseen market")
	}
}

func TestStateStoreKeysIsolatedByGranularity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveState(ctx, "BTC-GBP", 3600, domain.DecisionState{Iterations: 1}); err != nil {
		t.Fatalf("save state: %v", err)
	}

	_, ok, err := store.LoadState(ctx, "BTC-GBP", 900)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if ok {
		t.Error("expected granularities to have separate keys")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	snap := domain.IndicatorSnapshot{
		Timestamp:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Close:        21400.5,
		EMA12:        21390.1,
		EMA26:        21350.7,
		EMA12GtEMA26: true,
	}
	if err := store.SaveSnapshot(ctx, "BTC-GBP", 3600, snap); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	got, ok, err := store.LoadSnapshot(ctx, "BTC-GBP", 3600)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if !ok {
		t.Fatal("expected saved snapshot to be found")
	}
	if !got.Timestamp.Equal(snap.Timestamp) || got.Close != snap.Close || !got.EMA12GtEMA26 {
		t.Errorf("snapshot round trip mismatch: got %+v", got)
	}
}
