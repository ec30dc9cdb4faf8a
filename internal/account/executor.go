package account

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"coindrift/internal/domain"
)

// Exchange is the slice of the authed client the executor needs.
type Exchange interface {
	GetBalance(ctx context.Context, currency string) (decimal.Decimal, error)
	MarketBuy(ctx context.Context, market string, funds decimal.Decimal) (Order, error)
	MarketSell(ctx context.Context, market string, size decimal.Decimal) (Order, error)
}

// Executor turns trading decisions into live market orders: a buy spends the
// whole available quote balance, a sell liquidates the whole base holding.
type Executor struct {
	exchange Exchange
}

func NewExecutor(exchange Exchange) *Executor {
	return &Executor{exchange: exchange}
}

func (e *Executor) ExecuteBuy(ctx context.Context, market string, price float64) error {
	_, quote, ok := domain.SplitMarket(market)
	if !ok {
		return fmt.Errorf("malformed market %q", market)
	}
	funds, err := e.exchange.GetBalance(ctx, quote)
	if err != nil {
		return fmt.Errorf("fetch %s balance: %w", quote, err)
	}
	// quote currencies quote to 2 decimal places
	funds = funds.Truncate(2)
	if !funds.IsPositive() {
		return fmt.Errorf("no %s funds to buy with", quote)
	}

	order, err := e.exchange.MarketBuy(ctx, market, funds)
	if err != nil {
		return err
	}
	log.Printf("placed market buy %s: %s %s at ~%.2f", order.ID, funds, quote, price)
	return nil
}

func (e *Executor) ExecuteSell(ctx context.Context, market string, price float64) error {
	base, _, ok := domain.SplitMarket(market)
	if !ok {
		return fmt.Errorf("malformed market %q", market)
	}
	size, err := e.exchange.GetBalance(ctx, base)
	if err != nil {
		return fmt.Errorf("fetch %s balance: %w", base, err)
	}
	size = size.Truncate(8)
	if !size.IsPositive() {
		return fmt.Errorf("no %s holding to sell", base)
	}

	order, err := e.exchange.MarketSell(ctx, market, size)
	if err != nil {
		return err
	}
	log.Printf("placed market sell %s: %s %s at ~%.2f", order.ID, size, base, price)
	return nil
}
