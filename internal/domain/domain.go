package domain

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// WindowSize is the number of candles the indicator engine requires per tick.
const WindowSize = 300

var (
	ErrInsufficientData = errors.New("candle window must hold exactly 300 rows")
	ErrUnorderedWindow  = errors.New("candle window must be timestamp-ascending without duplicates")
)

// SupportedBaseAssets and SupportedQuoteAssets bound the markets the bot trades.
var (
	SupportedBaseAssets  = []string{"BCH", "BTC", "ETH", "LTC", "XLM"}
	SupportedQuoteAssets = []string{"EUR", "GBP", "USD"}
)

// SupportedGranularities are the candle interval lengths, in seconds.
var SupportedGranularities = []int{60, 300, 900, 3600, 21600, 86400}

var marketPattern = regexp.MustCompile(`^[A-Z]{3,4}-[A-Z]{3,4}$`)

// ValidMarket reports whether market is a syntactically valid pair of
// supported base and quote assets, e.g. "BTC-GBP".
func ValidMarket(market string) bool {
	if !marketPattern.MatchString(market) {
		return false
	}
	base, quote, ok := SplitMarket(market)
	if !ok {
		return false
	}
	return contains(SupportedBaseAssets, base) && contains(SupportedQuoteAssets, quote)
}

func SplitMarket(market string) (base, quote string, ok bool) {
	for i := 0; i < len(market); i++ {
		if market[i] == '-' {
			return market[:i], market[i+1:], true
		}
	}
	return "", "", false
}

func ValidGranularity(granularity int) bool {
	for _, g := range SupportedGranularities {
		if g == granularity {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Candle is one OHLCV row for a market at a granularity.
type Candle struct {
	Market      string    `json:"market"`
	Granularity int       `json:"granularity"`
	Timestamp   time.Time `json:"timestamp"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      float64   `json:"volume"`
}

// Window is an ordered, fixed-length candle sequence, oldest first.
// Constructed through NewWindow and never mutated afterwards.
type Window []Candle

// NewWindow validates and wraps a candle slice. The slice is copied so later
// mutation of the input cannot reach the window.
func NewWindow(candles []Candle) (Window, error) {
	if len(candles) != WindowSize {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientData, len(candles))
	}
	for i := 1; i < len(candles); i++ {
		if !candles[i].Timestamp.After(candles[i-1].Timestamp) {
			return nil, fmt.Errorf("%w: row %d", ErrUnorderedWindow, i)
		}
	}
	w := make(Window, len(candles))
	copy(w, candles)
	return w, nil
}

// Tail returns the most recent candle. Only valid on a constructed window.
func (w Window) Tail() Candle {
	return w[len(w)-1]
}

// Action is the per-tick trading decision.
type Action string

const (
	ActionNone Action = "NONE"
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionWait Action = "WAIT"
)

// IndicatorSnapshot is the derived view of one window row. Recomputed in full
// every tick, never mutated in place.
type IndicatorSnapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Close     float64   `json:"close"`
	Low       float64   `json:"low"`

	EMA12  float64 `json:"ema12"`
	EMA26  float64 `json:"ema26"`
	MACD   float64 `json:"macd"`
	Signal float64 `json:"signal"`
	OBV    float64 `json:"obv"`
	OBVPct float64 `json:"obv_pc"`

	EMA12GtEMA26        bool `json:"ema12_gt_ema26"`
	EMA12GtEMA26Crossed bool `json:"ema12_gt_ema26_crossed"`
	EMA12LtEMA26        bool `json:"ema12_lt_ema26"`
	EMA12LtEMA26Crossed bool `json:"ema12_lt_ema26_crossed"`
	MACDGtSignal        bool `json:"macd_gt_signal"`
	MACDGtSignalCrossed bool `json:"macd_gt_signal_crossed"`
	MACDLtSignal        bool `json:"macd_lt_signal"`
	MACDLtSignalCrossed bool `json:"macd_lt_signal_crossed"`
	GoldenCross         bool `json:"golden_cross"`
}

// PatternFlags are the candlestick patterns detected on the window tail.
// They feed reporting only and never alter the trading decision.
type PatternFlags struct {
	Hammer             bool `json:"hammer"`
	InvertedHammer     bool `json:"inverted_hammer"`
	HangingMan         bool `json:"hanging_man"`
	ShootingStar       bool `json:"shooting_star"`
	ThreeWhiteSoldiers bool `json:"three_white_soldiers"`
	ThreeBlackCrows    bool `json:"three_black_crows"`
	MorningStar        bool `json:"morning_star"`
	EveningStar        bool `json:"evening_star"`
	ThreeLineStrike    bool `json:"three_line_strike"`
	AbandonedBaby      bool `json:"abandoned_baby"`
	MorningDojiStar    bool `json:"morning_doji_star"`
	EveningDojiStar    bool `json:"evening_doji_star"`
	TwoBlackGapping    bool `json:"two_black_gapping"`
}

// Any reports whether at least one pattern fired.
func (p PatternFlags) Any() bool {
	return p != PatternFlags{}
}

// Thresholds are the injected failsafe bounds, in percent relative to the last
// buy price. A zero bound disables that side.
type Thresholds struct {
	LowerPct float64 `json:"lower_pct"`
	UpperPct float64 `json:"upper_pct"`
}

// DecisionState is the only long-lived mutable state of the trading core.
// It is owned by a single evaluation goroutine and threaded through Evaluate
// as a value.
type DecisionState struct {
	LastAction     Action    `json:"last_action"`
	LastBuyPrice   float64   `json:"last_buy_price"`
	BuyStreak      int       `json:"buy_streak"`
	SellStreak     int       `json:"sell_streak"`
	FailsafeActive bool      `json:"failsafe_active"`
	LastProcessed  time.Time `json:"last_processed"`
	LastDecided    Action    `json:"last_decided"`
	Iterations     int       `json:"iterations"`
	BuyCount       int       `json:"buy_count"`
	SellCount      int       `json:"sell_count"`
}

// TradeFilter narrows trade history queries. Zero values mean no filter.
type TradeFilter struct {
	Market string
	Action Action
	Limit  int
}

// Trade is one executed significant action, persisted for reporting.
type Trade struct {
	ID          int64     `json:"id"`
	Market      string    `json:"market"`
	Granularity int       `json:"granularity"`
	Action      Action    `json:"action"`
	Price       float64   `json:"price"`
	Failsafe    bool      `json:"failsafe"`
	Timestamp   time.Time `json:"timestamp"`
}
