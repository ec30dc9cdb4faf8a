package account

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

type stubExchange struct {
	balances map[string]decimal.Decimal
	buys     []decimal.Decimal
	sells    []decimal.Decimal
}

func (s *stubExchange) GetBalance(ctx context.Context, currency string) (decimal.Decimal, error) {
	return s.balances[currency], nil
}

func (s *stubExchange) MarketBuy(ctx context.Context, market string, funds decimal.Decimal) (Order, error) {
	s.buys = append(s.buys, funds)
	return Order{ID: "buy-1"}, nil
}

func (s *stubExchange) MarketSell(ctx context.Context, market string, size decimal.Decimal) (Order, error) {
	s.sells = append(s.sells, size)
	return Order{ID: "sell-1"}, nil
}

func TestExecuteBuySpendsTruncatedFunds(t *testing.T) {
	ex := &stubExchange{balances: map[string]decimal.Decimal{
		"GBP": decimal.NewFromFloat(120.259),
	}}
	executor := NewExecutor(ex)

	if err := executor.ExecuteBuy(context.Background(), "BTC-GBP", 21400); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ex.buys) != 1 {
		t.Fatalf("expected one buy, got %d", len(ex.buys))
	}
	if !ex.buys[0].Equal(decimal.NewFromFloat(120.25)) {
		t.Errorf("expected funds 120.25, got %s", ex.buys[0])
	}
}

func TestExecuteBuyNoFunds(t *testing.T) {
	executor := NewExecutor(&stubExchange{balances: map[string]decimal.Decimal{}})

	if err := executor.ExecuteBuy(context.Background(), "BTC-GBP", 21400); err == nil {
		t.Fatal("expected error with no quote funds")
	}
}

func TestExecuteSellLiquidatesHolding(t *testing.T) {
	ex := &stubExchange{balances: map[string]decimal.Decimal{
		"BTC": decimal.NewFromFloat(0.00461234567),
	}}
	executor := NewExecutor(ex)

	if err := executor.ExecuteSell(context.Background(), "BTC-GBP", 21400); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ex.sells) != 1 {
		t.Fatalf("expected one sell, got %d", len(ex.sells))
	}
	if !ex.sells[0].Equal(decimal.NewFromFloat(0.00461234)) {
		t.Errorf("expected size truncated to 8 decimals, got %s", ex.sells[0])
	}
}

func TestExecuteSellNothingHeld(t *testing.T) {
	executor := NewExecutor(&stubExchange{balances: map[string]decimal.Decimal{}})

	if err := executor.ExecuteSell(context.Background(), "BTC-GBP", 21400); err == nil {
		t.Fatal("expected error with no base holding")
	}
}
