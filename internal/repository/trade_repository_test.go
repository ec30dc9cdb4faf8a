package repository

import (
	"context"
	"testing"
	"time"

	"coindrift/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

func TestTradeRunMigrationsExecutesSchema(t *testing.T) {
	pool := &stubPool{}
	repo := NewTradeRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	if err := repo.RunMigrations(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pool.execSQL) == 0 {
		t.Fatal("expected Exec to be called")
	}
}

func TestInsertTradeReturnsID(t *testing.T) {
	pool := &stubPool{rowData: []any{int64(42)}}
	repo := NewTradeRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	trade := domain.Trade{
		Market:      "BTC-GBP",
		Granularity: 3600,
		Action:      domain.ActionBuy,
		Price:       21400.5,
		Timestamp:   time.Unix(0, 0).UTC(),
	}
	got, err := repo.InsertTrade(context.Background(), trade)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 42 {
		t.Fatalf("expected id 42, got %d", got.ID)
	}
	if got.Action != domain.ActionBuy || got.Price != 21400.5 {
		t.Fatalf("unexpected trade: %+v", got)
	}
}

func TestListTradesReturnsRows(t *testing.T) {
	now := time.Now().UTC()
	rows := [][]any{
		{int64(1), "BTC-GBP", 3600, "BUY", 21400.5, false, now.Add(-time.Hour)},
		{int64(2), "BTC-GBP", 3600, "SELL", 22100.0, true, now},
	}
	pool := &stubPool{rowsData: rows}
	repo := NewTradeRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	trades, err := repo.ListTrades(context.Background(), domain.TradeFilter{Market: "BTC-GBP"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].Action != domain.ActionBuy {
		t.Errorf("expected first trade BUY, got %s", trades[0].Action)
	}
	if !trades[1].Failsafe {
		t.Error("expected second trade flagged as failsafe")
	}
}

func TestListTradesEmpty(t *testing.T) {
	pool := &stubPool{}
	repo := NewTradeRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	trades, err := repo.ListTrades(context.Background(), domain.TradeFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 0 {
		t.Fatalf("expected no trades, got %d", len(trades))
	}
}
