package repository

import (
	"context"
	"time"

	"coindrift/internal/backtest"

	"go.opentelemetry.io/otel/trace"
)

// SimulationRecord is one persisted simulation summary.
type SimulationRecord struct {
	ID          int64     `json:"id"`
	Market      string    `json:"market"`
	Granularity int       `json:"granularity"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Buys        int       `json:"buys"`
	Sells       int       `json:"sells"`
	MarginPct   float64   `json:"margin_pct"`
	CreatedAt   time.Time `json:"created_at"`
}

type SimulationRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewSimulationRepository(pool PgxPool, tracer trace.Tracer) *SimulationRepository {
	return &SimulationRepository{pool: pool, tracer: tracer}
}

func (r *SimulationRepository) RunMigrations(ctx context.Context) error {
	_, err := r.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS simulations (
		     id BIGSERIAL PRIMARY KEY,
		     market TEXT NOT NULL,
		     granularity INT NOT NULL,
		     range_start TIMESTAMPTZ NOT NULL,
		     range_end TIMESTAMPTZ NOT NULL,
		     buys INT NOT NULL,
		     sells INT NOT NULL,
		     margin_pct DOUBLE PRECISION NOT NULL,
		     created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		 )`)
	return err
}

// SaveResult stores a simulation summary and returns its ID. Individual
// trades are not persisted; the summary is what the dashboard compares.
func (r *SimulationRepository) SaveResult(ctx context.Context, res backtest.Result) (int64, error) {
	_, span := r.tracer.Start(ctx, "simulation-repo.save-result")
	defer span.End()

	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO simulations (market, granularity, range_start, range_end, buys, sells, margin_pct)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		res.Market, res.Granularity, res.Start.UTC(), res.End.UTC(), res.Buys, res.Sells, res.MarginPct,
	).Scan(&id)
	return id, err
}

// ListResults returns the most recent simulation summaries, newest first.
// An empty market lists every market.
func (r *SimulationRepository) ListResults(ctx context.Context, market string, limit int) ([]SimulationRecord, error) {
	_, span := r.tracer.Start(ctx, "simulation-repo.list-results")
	defer span.End()

	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	query := `SELECT id, market, granularity, range_start, range_end, buys, sells, margin_pct, created_at
		FROM simulations`
	args := []any{limit}
	if market != "" {
		query += ` WHERE market = $2`
		args = append(args, market)
	}
	query += ` ORDER BY created_at DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]SimulationRecord, 0, limit)
	for rows.Next() {
		var rec SimulationRecord
		if err := rows.Scan(
			&rec.ID, &rec.Market, &rec.Granularity, &rec.Start, &rec.End,
			&rec.Buys, &rec.Sells, &rec.MarginPct, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Start = rec.Start.UTC()
		rec.End = rec.End.UTC()
		rec.CreatedAt = rec.CreatedAt.UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}
