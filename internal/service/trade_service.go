package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"coindrift/internal/decision"
	"coindrift/internal/domain"
	"coindrift/internal/indicator"
	"coindrift/internal/metrics"
	"coindrift/internal/pattern"
	"coindrift/internal/report"
)

type CandleSource interface {
	GetHistoricalCandles(ctx context.Context, market string, granularity int) ([]domain.Candle, error)
	GetTicker(ctx context.Context, market string) (float64, error)
}

type CandleStore interface {
	UpsertCandles(ctx context.Context, candles []domain.Candle) error
}

type TradeStore interface {
	InsertTrade(ctx context.Context, t domain.Trade) (domain.Trade, error)
}

type StateStore interface {
	LoadState(ctx context.Context, market string, granularity int) (domain.DecisionState, bool, error)
	SaveState(ctx context.Context, market string, granularity int, st domain.DecisionState) error
	SaveSnapshot(ctx context.Context, market string, granularity int, snap domain.IndicatorSnapshot) error
}

// OrderExecutor places real exchange orders. Nil when not trading live.
type OrderExecutor interface {
	ExecuteBuy(ctx context.Context, market string, price float64) error
	ExecuteSell(ctx context.Context, market string, price float64) error
}

type TradeNotifier interface {
	NotifyTrade(trade domain.Trade)
}

// TradeRecorder appends executed trades to an audit log.
type TradeRecorder interface {
	Record(trade domain.Trade) error
}

// TradeServiceDeps are the optional collaborators. Any field may be nil.
type TradeServiceDeps struct {
	CandleStore CandleStore
	TradeStore  TradeStore
	StateStore  StateStore
	Executor    OrderExecutor
	Notifier    TradeNotifier
	Recorder    TradeRecorder
	Metrics     *metrics.Metrics
}

// TradeService runs the evaluation loop for one market: fetch candles,
// compute indicators, decide, then execute and persist whatever the decision
// requires. RunTick is not safe for concurrent use; the poller is the only
// caller.
type TradeService struct {
	tracer      trace.Tracer
	market      string
	granularity int
	source      CandleSource
	engine      *decision.Engine
	deps        TradeServiceDeps
	verbose     bool

	mu        sync.RWMutex
	state     domain.DecisionState
	lastSnap  domain.IndicatorSnapshot
	lastSeen  bool
	priceHint float64
}

func NewTradeService(
	tracer trace.Tracer,
	market string,
	granularity int,
	source CandleSource,
	engine *decision.Engine,
	deps TradeServiceDeps,
) *TradeService {
	return &TradeService{
		tracer:      tracer,
		market:      market,
		granularity: granularity,
		source:      source,
		engine:      engine,
		deps:        deps,
		state:       decision.SeedState(domain.ActionNone, 0),
	}
}

func (s *TradeService) SetVerbose(v bool) { s.verbose = v }

// SetNotifier attaches a trade notifier after construction. The Telegram
// dispatcher needs the service to exist first, so it cannot be part of the
// initial deps.
func (s *TradeService) SetNotifier(n TradeNotifier) {
	s.deps.Notifier = n
}

// SetPriceHint records the latest streamed ticker price. It backs up the REST
// ticker when that fetch fails mid-tick.
func (s *TradeService) SetPriceHint(price float64) {
	if price <= 0 {
		return
	}
	s.mu.Lock()
	s.priceHint = price
	s.mu.Unlock()
}

// SeedPosition overrides the starting state with an externally probed
// position, typically derived from exchange balances.
func (s *TradeService) SeedPosition(lastAction domain.Action, lastBuyPrice float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = decision.SeedState(lastAction, lastBuyPrice)
}

// Restore loads persisted state so a restart continues the previous run.
// Returns false when nothing was persisted.
func (s *TradeService) Restore(ctx context.Context) (bool, error) {
	if s.deps.StateStore == nil {
		return false, nil
	}
	st, ok, err := s.deps.StateStore.LoadState(ctx, s.market, s.granularity)
	if err != nil || !ok {
		return false, err
	}
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	return true, nil
}

// State returns a copy of the current decision state.
func (s *TradeService) State() domain.DecisionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LastSnapshot returns the most recent indicator snapshot, false before the
// first successful tick.
func (s *TradeService) LastSnapshot() (domain.IndicatorSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSnap, s.lastSeen
}

// RunTick executes one full evaluation cycle and returns the decided action.
func (s *TradeService) RunTick(ctx context.Context) (domain.Action, error) {
	ctx, span := s.tracer.Start(ctx, "trade-service.run-tick")
	defer span.End()

	if s.deps.Metrics != nil {
		s.deps.Metrics.TicksTotal.Inc()
	}

	window, err := s.fetchWindow(ctx)
	if err != nil {
		s.countError()
		return domain.ActionNone, err
	}

	start := time.Now()
	snap, err := indicator.Compute(window)
	if err != nil {
		s.countError()
		return domain.ActionNone, fmt.Errorf("compute indicators: %w", err)
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.IndicatorDur.Observe(time.Since(start).Seconds())
		s.deps.Metrics.LastClosePrice.Set(snap.Close)
	}

	flags := pattern.Detect(window)

	price, err := s.source.GetTicker(ctx, s.market)
	if err != nil {
		// use the streamed hint if one arrived; the engine falls back to the
		// candle close on a zero price
		log.Printf("ticker fetch failed for %s: %v", s.market, err)
		s.mu.RLock()
		price = s.priceHint
		s.mu.RUnlock()
	}

	prev := s.State()
	action, next, err := s.engine.Evaluate(prev, snap, flags, price)
	if err != nil {
		s.countError()
		return domain.ActionNone, fmt.Errorf("evaluate tick: %w", err)
	}

	s.mu.Lock()
	s.state = next
	s.lastSnap = snap
	s.lastSeen = true
	s.mu.Unlock()

	executed := (action == domain.ActionBuy || action == domain.ActionSell) &&
		next.Iterations != prev.Iterations

	s.report(snap, next, flags, action, price)
	s.persist(ctx, next, snap)

	if executed {
		s.executeTrade(ctx, action, snap, next, price)
	}
	if s.deps.Metrics != nil {
		open := 0.0
		if next.LastAction == domain.ActionBuy {
			open = 1
		}
		s.deps.Metrics.PositionOpen.Set(open)
	}
	return action, nil
}

func (s *TradeService) fetchWindow(ctx context.Context) (domain.Window, error) {
	start := time.Now()
	candles, err := s.source.GetHistoricalCandles(ctx, s.market, s.granularity)
	if err != nil {
		return nil, fmt.Errorf("fetch candles for %s: %w", s.market, err)
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.CandleFetchDur.Observe(time.Since(start).Seconds())
	}

	if s.deps.CandleStore != nil {
		if err := s.deps.CandleStore.UpsertCandles(ctx, candles); err != nil {
			log.Printf("candle persist failed for %s: %v", s.market, err)
		}
	}
	return domain.NewWindow(candles)
}

func (s *TradeService) report(
	snap domain.IndicatorSnapshot,
	st domain.DecisionState,
	flags domain.PatternFlags,
	action domain.Action,
	price float64,
) {
	if price <= 0 || price < snap.Low {
		price = snap.Close
	}
	log.Println(report.StatusLine(s.market, s.granularity, snap, st, action, price))
	if s.verbose && flags.Any() {
		for _, line := range report.PatternLines(flags) {
			log.Println(line)
		}
	}
	if action == domain.ActionSell && st.FailsafeActive && st.LastBuyPrice > 0 {
		changePct := (price/st.LastBuyPrice - 1) * 100
		log.Println(report.FailsafeLine(changePct, s.engine.Thresholds()))
	}
}

func (s *TradeService) persist(ctx context.Context, st domain.DecisionState, snap domain.IndicatorSnapshot) {
	if s.deps.StateStore == nil {
		return
	}
	if err := s.deps.StateStore.SaveState(ctx, s.market, s.granularity, st); err != nil {
		log.Printf("state persist failed for %s: %v", s.market, err)
	}
	if err := s.deps.StateStore.SaveSnapshot(ctx, s.market, s.granularity, snap); err != nil {
		log.Printf("snapshot persist failed for %s: %v", s.market, err)
	}
}

func (s *TradeService) executeTrade(
	ctx context.Context,
	action domain.Action,
	snap domain.IndicatorSnapshot,
	st domain.DecisionState,
	price float64,
) {
	if price <= 0 || price < snap.Low {
		price = snap.Close
	}
	trade := domain.Trade{
		Market:      s.market,
		Granularity: s.granularity,
		Action:      action,
		Price:       price,
		Failsafe:    action == domain.ActionSell && st.FailsafeActive,
		Timestamp:   snap.Timestamp,
	}

	if s.deps.Executor != nil {
		var err error
		if action == domain.ActionBuy {
			err = s.deps.Executor.ExecuteBuy(ctx, s.market, price)
		} else {
			err = s.deps.Executor.ExecuteSell(ctx, s.market, price)
		}
		if err != nil {
			log.Printf("order execution failed for %s %s: %v", action, s.market, err)
		}
	}

	if s.deps.TradeStore != nil {
		stored, err := s.deps.TradeStore.InsertTrade(ctx, trade)
		if err != nil {
			log.Printf("trade persist failed for %s: %v", s.market, err)
		} else {
			trade = stored
		}
	}
	if s.deps.Recorder != nil {
		if err := s.deps.Recorder.Record(trade); err != nil {
			log.Printf("trade tracker write failed: %v", err)
		}
	}
	if s.deps.Notifier != nil {
		s.deps.Notifier.NotifyTrade(trade)
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.TradesTotal.WithLabelValues(string(action)).Inc()
		if trade.Failsafe {
			s.deps.Metrics.FailsafeTriggers.Inc()
		}
	}
}

func (s *TradeService) countError() {
	if s.deps.Metrics != nil {
		s.deps.Metrics.TickErrors.Inc()
	}
}
