package repository

import (
	"context"
	"time"

	"coindrift/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type CandleRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewCandleRepository(pool PgxPool, tracer trace.Tracer) *CandleRepository {
	return &CandleRepository{pool: pool, tracer: tracer}
}

func (r *CandleRepository) RunMigrations(ctx context.Context) error {
	_, err := r.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS candles (
		     market TEXT NOT NULL,
		     granularity INT NOT NULL,
		     timestamp TIMESTAMPTZ NOT NULL,
		     open DOUBLE PRECISION NOT NULL,
		     high DOUBLE PRECISION NOT NULL,
		     low DOUBLE PRECISION NOT NULL,
		     close DOUBLE PRECISION NOT NULL,
		     volume DOUBLE PRECISION NOT NULL,
		     PRIMARY KEY (market, granularity, timestamp)
		 )`)
	return err
}

func (r *CandleRepository) UpsertCandles(ctx context.Context, candles []domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "candle-repo.upsert-candles")
	defer span.End()

	batch := &pgx.Batch{}
	for _, c := range candles {
		batch.Queue(
			`INSERT INTO candles (market, granularity, timestamp, open, high, low, close, volume)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (market, granularity, timestamp) DO UPDATE SET
			     open = EXCLUDED.open,
			     high = EXCLUDED.high,
			     low = EXCLUDED.low,
			     close = EXCLUDED.close,
			     volume = EXCLUDED.volume`,
			c.Market, c.Granularity, c.Timestamp.UTC(), c.Open, c.High, c.Low, c.Close, c.Volume,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range candles {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// GetCandles returns up to limit candles for the market, oldest first, so the
// result can feed a window without reordering.
func (r *CandleRepository) GetCandles(ctx context.Context, market string, granularity, limit int) ([]domain.Candle, error) {
	_, span := r.tracer.Start(ctx, "candle-repo.get-candles")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT market, granularity, timestamp, open, high, low, close, volume
		 FROM (
		     SELECT market, granularity, timestamp, open, high, low, close, volume
		     FROM candles
		     WHERE market = $1 AND granularity = $2
		     ORDER BY timestamp DESC
		     LIMIT $3
		 ) latest
		 ORDER BY timestamp ASC`,
		market, granularity, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCandles(rows)
}

func (r *CandleRepository) GetCandlesInRange(ctx context.Context, market string, granularity int, from, to time.Time) ([]domain.Candle, error) {
	_, span := r.tracer.Start(ctx, "candle-repo.get-candles-in-range")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT market, granularity, timestamp, open, high, low, close, volume
		 FROM candles
		 WHERE market = $1 AND granularity = $2 AND timestamp >= $3 AND timestamp <= $4
		 ORDER BY timestamp ASC`,
		market, granularity, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCandles(rows)
}

func scanCandles(rows pgx.Rows) ([]domain.Candle, error) {
	var candles []domain.Candle
	for rows.Next() {
		var c domain.Candle
		if err := rows.Scan(&c.Market, &c.Granularity, &c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, err
		}
		c.Timestamp = c.Timestamp.UTC()
		candles = append(candles, c)
	}
	return candles, rows.Err()
}
