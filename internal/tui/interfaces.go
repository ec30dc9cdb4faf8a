package tui

import (
	"context"

	"coindrift/internal/domain"
	"coindrift/internal/repository"
)

// PriceQuerier provides live ticker prices to the TUI.
type PriceQuerier interface {
	GetTicker(ctx context.Context, market string) (float64, error)
}

// StatusQuerier provides the bot's persisted state and latest snapshot.
type StatusQuerier interface {
	LoadState(ctx context.Context, market string, granularity int) (domain.DecisionState, bool, error)
	LoadSnapshot(ctx context.Context, market string, granularity int) (domain.IndicatorSnapshot, bool, error)
}

// TradeLister provides trade history to the TUI.
type TradeLister interface {
	ListTrades(ctx context.Context, filter domain.TradeFilter) ([]domain.Trade, error)
}

// SimulationLister provides saved simulation summaries to the TUI.
type SimulationLister interface {
	ListResults(ctx context.Context, market string, limit int) ([]repository.SimulationRecord, error)
}

// Services bundles the dependencies injected into the TUI.
type Services struct {
	Market      string
	Granularity int
	Price       PriceQuerier
	Status      StatusQuerier
	Trades      TradeLister
	Simulations SimulationLister
	Username    string
}
