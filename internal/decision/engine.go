package decision

import (
	"math"

	"coindrift/internal/domain"
)

// maxStreakLookback bounds how many consecutive trend ticks may still trigger
// the non-crossover entry/exit rule.
const maxStreakLookback = 2

// obvBuyThresholdPct is the minimum OBV percent change for a buy signal.
const obvBuyThresholdPct = 1.0

// Engine turns one indicator snapshot per completed interval into a trading
// action. State is threaded through Evaluate as a value; the engine itself
// holds only the injected failsafe thresholds. Evaluate must not be called
// concurrently for the same state thread.
type Engine struct {
	thresholds domain.Thresholds
}

func NewEngine(thresholds domain.Thresholds) *Engine {
	return &Engine{thresholds: thresholds}
}

// Thresholds returns the injected failsafe bounds.
func (e *Engine) Thresholds() domain.Thresholds {
	return e.thresholds
}

// SeedState builds the initial decision state from an externally probed
// position, typically inferred from account balances at startup.
func SeedState(lastAction domain.Action, lastBuyPrice float64) domain.DecisionState {
	st := domain.DecisionState{LastAction: domain.ActionNone, LastDecided: domain.ActionNone}
	if lastAction == domain.ActionBuy || lastAction == domain.ActionSell {
		st.LastAction = lastAction
	}
	if lastAction == domain.ActionBuy && lastBuyPrice > 0 {
		st.LastBuyPrice = lastBuyPrice
	}
	return st
}

// Evaluate decides BUY, SELL, or WAIT for one candle and returns the updated
// state. Re-polling the candle already decided on is a no-op that replays the
// prior action. The input state is never mutated.
func (e *Engine) Evaluate(
	st domain.DecisionState,
	snap domain.IndicatorSnapshot,
	flags domain.PatternFlags,
	currentPrice float64,
) (domain.Action, domain.DecisionState, error) {
	if snap.Timestamp.IsZero() {
		return domain.ActionWait, st, domain.ErrInsufficientData
	}

	// A stale, missing, or absurd price hint falls back to the candle close so
	// a zero price can never reach the failsafe division.
	price := currentPrice
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 || price < snap.Low {
		price = snap.Close
	}

	// Faster polling than the candle interval must not double-count.
	if st.LastProcessed.Equal(snap.Timestamp) {
		return st.LastDecided, st, nil
	}

	action := domain.ActionWait
	failsafeFired := false

	buySignal := (snap.EMA12GtEMA26Crossed && snap.MACDGtSignal && snap.OBVPct > obvBuyThresholdPct) ||
		(snap.EMA12GtEMA26 && snap.MACDGtSignal && snap.OBVPct > obvBuyThresholdPct &&
			st.BuyStreak > 0 && st.BuyStreak <= maxStreakLookback)
	sellSignal := (snap.EMA12LtEMA26Crossed && snap.MACDLtSignal) ||
		(snap.EMA12LtEMA26 && snap.MACDLtSignal &&
			st.SellStreak > 0 && st.SellStreak <= maxStreakLookback)

	switch {
	case buySignal && st.LastAction != domain.ActionBuy:
		action = domain.ActionBuy
	case sellSignal && st.LastAction == domain.ActionBuy:
		action = domain.ActionSell
		st.FailsafeActive = false
	}

	// Stop-loss / take-profit override while holding a position.
	if st.LastAction == domain.ActionBuy && st.LastBuyPrice > 0 {
		changePct := (price/st.LastBuyPrice - 1) * 100
		if e.thresholds.LowerPct < 0 && changePct < e.thresholds.LowerPct {
			action = domain.ActionSell
			failsafeFired = true
		}
		if e.thresholds.UpperPct > 0 && changePct > e.thresholds.UpperPct {
			action = domain.ActionSell
			failsafeFired = true
		}
	}
	if failsafeFired {
		st.FailsafeActive = true
	}

	// Streak bookkeeping uses the trend as of this tick; the failsafe
	// suppresses the bullish increment for the tick it fires on.
	if snap.EMA12GtEMA26 && !failsafeFired {
		st.BuyStreak++
	} else if snap.EMA12LtEMA26 {
		st.SellStreak++
		st.FailsafeActive = false
	}

	switch action {
	case domain.ActionBuy:
		st.BuyCount++
		st.SellStreak = 0
		st.LastBuyPrice = price
	case domain.ActionSell:
		st.SellCount++
		st.BuyStreak = 0
	}

	// WAIT never overwrites the last significant action.
	if action == domain.ActionBuy || action == domain.ActionSell {
		st.LastAction = action
	}
	st.LastProcessed = snap.Timestamp
	st.LastDecided = action
	st.Iterations++

	return action, st, nil
}
