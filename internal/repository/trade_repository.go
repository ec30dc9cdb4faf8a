package repository

import (
	"context"
	"fmt"
	"strings"

	"coindrift/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type TradeRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewTradeRepository(pool PgxPool, tracer trace.Tracer) *TradeRepository {
	return &TradeRepository{pool: pool, tracer: tracer}
}

func (r *TradeRepository) RunMigrations(ctx context.Context) error {
	_, err := r.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS trades (
		     id BIGSERIAL PRIMARY KEY,
		     market TEXT NOT NULL,
		     granularity INT NOT NULL,
		     action TEXT NOT NULL,
		     price DOUBLE PRECISION NOT NULL,
		     failsafe BOOLEAN NOT NULL DEFAULT FALSE,
		     timestamp TIMESTAMPTZ NOT NULL
		 )`)
	return err
}

func (r *TradeRepository) InsertTrade(ctx context.Context, t domain.Trade) (domain.Trade, error) {
	_, span := r.tracer.Start(ctx, "trade-repo.insert-trade")
	defer span.End()

	err := r.pool.QueryRow(ctx,
		`INSERT INTO trades (market, granularity, action, price, failsafe, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		t.Market, t.Granularity, string(t.Action), t.Price, t.Failsafe, t.Timestamp.UTC(),
	).Scan(&t.ID)
	if err != nil {
		return domain.Trade{}, err
	}
	return t, nil
}

func (r *TradeRepository) ListTrades(ctx context.Context, filter domain.TradeFilter) ([]domain.Trade, error) {
	_, span := r.tracer.Start(ctx, "trade-repo.list-trades")
	defer span.End()

	args := make([]any, 0, 3)
	var sb strings.Builder
	sb.WriteString(`SELECT id, market, granularity, action, price, failsafe, timestamp
		FROM trades
		WHERE 1=1`)

	if filter.Market != "" {
		args = append(args, strings.ToUpper(filter.Market))
		sb.WriteString(fmt.Sprintf(" AND market = $%d", len(args)))
	}
	if filter.Action != "" {
		args = append(args, string(filter.Action))
		sb.WriteString(fmt.Sprintf(" AND action = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	args = append(args, limit)
	sb.WriteString(fmt.Sprintf(" ORDER BY timestamp DESC LIMIT $%d", len(args)))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trades := make([]domain.Trade, 0, limit)
	for rows.Next() {
		var t domain.Trade
		var action string
		if err := rows.Scan(&t.ID, &t.Market, &t.Granularity, &action, &t.Price, &t.Failsafe, &t.Timestamp); err != nil {
			return nil, err
		}
		t.Action = domain.Action(action)
		t.Timestamp = t.Timestamp.UTC()
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
