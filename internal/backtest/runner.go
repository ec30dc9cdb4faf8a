package backtest

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"coindrift/internal/decision"
	"coindrift/internal/domain"
	"coindrift/internal/indicator"
	"coindrift/internal/report"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// sampleLookback bounds how far back a sampled simulation range may start.
const sampleLookback = 365 * 24 * time.Hour

// slowTickDelay paces slow simulations so the per-tick output is readable.
const slowTickDelay = time.Second

// sampleAttempts caps how many random ranges a sampled run will draw before
// giving up on finding a full window.
const sampleAttempts = 10

// CandleSource provides the historical candles a simulation replays.
type CandleSource interface {
	GetHistoricalCandles(ctx context.Context, market string, granularity int) ([]domain.Candle, error)
	GetHistoricalCandlesRange(ctx context.Context, market string, granularity int, start, end time.Time) ([]domain.Candle, error)
}

// SimTrade is one significant action taken during a simulation.
type SimTrade struct {
	Timestamp time.Time     `json:"timestamp"`
	Action    domain.Action `json:"action"`
	Price     float64       `json:"price"`
	Failsafe  bool          `json:"failsafe"`
}

// Result summarises one simulation run. MarginPct compounds the fee-adjusted
// margin of every closed buy/sell pair; an open position at the end of the
// range is marked to the final close.
type Result struct {
	Market      string               `json:"market"`
	Granularity int                  `json:"granularity"`
	Start       time.Time            `json:"start"`
	End         time.Time            `json:"end"`
	Buys        int                  `json:"buys"`
	Sells       int                  `json:"sells"`
	MarginPct   float64              `json:"margin_pct"`
	Trades      []SimTrade           `json:"trades"`
	FinalState  domain.DecisionState `json:"final_state"`
}

// Runner replays a historical candle window through the decision engine,
// one completed interval per iteration, the way the live loop consumes ticks.
type Runner struct {
	tracer      trace.Tracer
	market      string
	granularity int
	source      CandleSource
	engine      *decision.Engine
	sample      bool
	delay       time.Duration
	verbose     bool

	rand *rand.Rand
	now  func() time.Time
}

// NewRunner builds a simulation runner. Speed is one of slow, fast,
// slow-sample, or fast-sample; sample variants replay a random historical
// range instead of the most recent candles.
func NewRunner(
	tracer trace.Tracer,
	market string,
	granularity int,
	source CandleSource,
	engine *decision.Engine,
	speed string,
) *Runner {
	r := &Runner{
		tracer:      tracer,
		market:      market,
		granularity: granularity,
		source:      source,
		engine:      engine,
		sample:      strings.HasSuffix(speed, "-sample"),
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
		now:         time.Now,
	}
	if strings.HasPrefix(speed, "slow") {
		r.delay = slowTickDelay
	}
	return r
}

// SetVerbose toggles per-iteration status output.
func (r *Runner) SetVerbose(v bool) {
	r.verbose = v
}

// Run executes the simulation and returns its summary.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	ctx, span := r.tracer.Start(ctx, "backtest.run")
	defer span.End()
	span.SetAttributes(attribute.String("market", r.market))

	candles, err := r.fetch(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("fetch simulation candles: %w", err)
	}
	window, err := domain.NewWindow(candles)
	if err != nil {
		return Result{}, err
	}
	series, err := indicator.ComputeSeries(window)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Market:      r.market,
		Granularity: r.granularity,
		Start:       window[0].Timestamp,
		End:         window.Tail().Timestamp,
	}

	st := decision.SeedState(domain.ActionNone, 0)
	lastBuyPrice := 0.0
	margin := 1.0

	for _, snap := range series {
		if err := r.pace(ctx); err != nil {
			return Result{}, err
		}

		action, next, err := r.engine.Evaluate(st, snap, domain.PatternFlags{}, snap.Close)
		if err != nil {
			return Result{}, err
		}
		st = next

		if r.verbose {
			log.Println(report.StatusLine(r.market, r.granularity, snap, st, action, snap.Close))
		}

		switch action {
		case domain.ActionBuy:
			lastBuyPrice = snap.Close
			res.Buys++
			res.Trades = append(res.Trades, SimTrade{Timestamp: snap.Timestamp, Action: action, Price: snap.Close})
		case domain.ActionSell:
			if lastBuyPrice > 0 {
				margin *= 1 + report.MarginPct(snap.Close, lastBuyPrice)/100
			}
			lastBuyPrice = 0
			res.Sells++
			res.Trades = append(res.Trades, SimTrade{
				Timestamp: snap.Timestamp,
				Action:    action,
				Price:     snap.Close,
				Failsafe:  st.FailsafeActive,
			})
		}
	}

	// Mark an open position to the final close.
	if lastBuyPrice > 0 {
		margin *= 1 + report.MarginPct(window.Tail().Close, lastBuyPrice)/100
	}
	res.MarginPct = (margin - 1) * 100
	res.FinalState = st
	return res, nil
}

// fetch pulls the most recent window, or a random historical one for the
// sample variants. Sparse ranges are redrawn until a full window arrives or
// the attempts run out.
func (r *Runner) fetch(ctx context.Context) ([]domain.Candle, error) {
	if !r.sample {
		return r.source.GetHistoricalCandles(ctx, r.market, r.granularity)
	}

	span := time.Duration(r.granularity*domain.WindowSize) * time.Second
	latest := sampleLookback - span
	if latest <= 0 {
		return r.source.GetHistoricalCandles(ctx, r.market, r.granularity)
	}

	var lastErr error
	for attempt := 0; attempt < sampleAttempts; attempt++ {
		start := r.now().Add(-sampleLookback).Add(time.Duration(r.rand.Int63n(int64(latest))))
		candles, err := r.source.GetHistoricalCandlesRange(ctx, r.market, r.granularity, start, start.Add(span))
		if err != nil {
			lastErr = err
			continue
		}
		if len(candles) >= domain.WindowSize {
			return candles, nil
		}
		lastErr = fmt.Errorf("sampled range returned %d of %d candles", len(candles), domain.WindowSize)
	}
	return nil, lastErr
}

func (r *Runner) pace(ctx context.Context) error {
	if r.delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(r.delay):
		return nil
	}
}

// Summary renders the result as human-readable lines.
func (res Result) Summary() []string {
	decimals := report.Precision(res.Market)
	lines := []string{
		fmt.Sprintf("Simulation %s @ %ds", res.Market, res.Granularity),
		fmt.Sprintf("Range: %s to %s", res.Start.Format(time.RFC3339), res.End.Format(time.RFC3339)),
		fmt.Sprintf("Buys: %d  Sells: %d", res.Buys, res.Sells),
		fmt.Sprintf("Margin: %.2f%%", res.MarginPct),
	}
	for _, tr := range res.Trades {
		line := fmt.Sprintf("%s %s at %.*f on %s",
			tr.Action, res.Market, decimals, tr.Price, tr.Timestamp.Format(time.RFC3339))
		if tr.Failsafe {
			line += " (failsafe)"
		}
		lines = append(lines, line)
	}
	return lines
}
