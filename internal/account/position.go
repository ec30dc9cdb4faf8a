package account

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"coindrift/internal/domain"
)

// dustThresholds are the minimum base holdings that count as an open
// position. Anything below is dust left over from fees and rounding.
var dustThresholds = map[string]decimal.Decimal{
	"BCH": decimal.NewFromFloat(0.01),
	"BTC": decimal.NewFromFloat(0.001),
	"ETH": decimal.NewFromFloat(0.01),
	"LTC": decimal.NewFromFloat(0.1),
	"XLM": decimal.NewFromInt(35),
}

var minQuoteFunds = decimal.NewFromInt(30)

// BalanceReader is the slice of the exchange client the position probe needs.
type BalanceReader interface {
	GetBalance(ctx context.Context, currency string) (decimal.Decimal, error)
}

// OrderReader recovers order history for last-buy-price seeding.
type OrderReader interface {
	DoneOrders(ctx context.Context, market string) ([]Order, error)
}

// ProbePosition inspects exchange balances to infer what the bot was doing
// before a restart. Holding the base asset above its dust threshold means the
// last significant action was a buy; sufficient quote funds with no base
// holding means the bot is flat and able to buy.
func ProbePosition(ctx context.Context, r BalanceReader, market string) (domain.Action, error) {
	base, quote, ok := domain.SplitMarket(market)
	if !ok {
		return domain.ActionNone, fmt.Errorf("malformed market %q", market)
	}

	baseBalance, err := r.GetBalance(ctx, base)
	if err != nil {
		return domain.ActionNone, fmt.Errorf("probe base balance: %w", err)
	}
	threshold, known := dustThresholds[base]
	if known && baseBalance.GreaterThan(threshold) {
		return domain.ActionBuy, nil
	}

	quoteBalance, err := r.GetBalance(ctx, quote)
	if err != nil {
		return domain.ActionNone, fmt.Errorf("probe quote balance: %w", err)
	}
	if quoteBalance.GreaterThan(minQuoteFunds) {
		return domain.ActionSell, nil
	}
	return domain.ActionNone, nil
}

// LastBuyPrice recovers the effective price of the most recent filled buy,
// derived from executed value and size so fees are reflected. Zero when no
// filled buy exists.
func LastBuyPrice(ctx context.Context, r OrderReader, market string) (float64, error) {
	orders, err := r.DoneOrders(ctx, market)
	if err != nil {
		return 0, fmt.Errorf("recover last buy: %w", err)
	}
	for _, o := range orders {
		if o.Side != "buy" || o.Size.IsZero() {
			continue
		}
		price, _ := o.ExecutedValue.Div(o.Size).Float64()
		return price, nil
	}
	return 0, nil
}
