package report

import (
	"fmt"
	"math"
	"strings"

	"coindrift/internal/domain"
)

// feeRate is the taker fee applied when quoting margin on an open position.
const feeRate = 0.005

// Precision returns the display precision for a market: 4 decimals for
// low-unit-price assets, 2 otherwise. Decision comparisons always use full
// precision; truncation happens only here at the reporting boundary.
func Precision(market string) int {
	if strings.HasPrefix(market, "XLM-") {
		return 4
	}
	return 2
}

// Truncate cuts v to the given number of decimals without rounding.
func Truncate(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Trunc(v*pow) / pow
}

// Comparison renders "label: a > b" style fragments for the status line.
func Comparison(a, b float64, label string, decimals int) string {
	op := "="
	switch {
	case a > b:
		op = ">"
	case a < b:
		op = "<"
	}
	return fmt.Sprintf("%s: %.*f %s %.*f", label, decimals, Truncate(a, decimals), op, decimals, Truncate(b, decimals))
}

// MarginPct is the fee-adjusted margin of the open position at price,
// relative to the recorded buy price. Zero when there is no position.
func MarginPct(price, lastBuy float64) float64 {
	if price == 0 || lastBuy == 0 {
		return 0
	}
	buyPlusFees := lastBuy + lastBuy*feeRate
	return (price - buyPlusFees) / price * 100
}

// StatusLine renders the compact one-line tick report.
func StatusLine(
	market string,
	granularity int,
	snap domain.IndicatorSnapshot,
	st domain.DecisionState,
	action domain.Action,
	price float64,
) string {
	decimals := Precision(market)

	regime := " (BEAR)"
	if snap.GoldenCross {
		regime = " (BULL)"
	}

	emaPrefix, emaSuffix := trendMarkers(snap.EMA12GtEMA26Crossed, snap.EMA12LtEMA26Crossed, snap.EMA12GtEMA26, snap.EMA12LtEMA26)
	macdPrefix, macdSuffix := trendMarkers(snap.MACDGtSignalCrossed, snap.MACDLtSignalCrossed, snap.MACDGtSignal, snap.MACDLtSignal)

	obvPrefix, obvSuffix := "v ", " v"
	if snap.OBVPct > 0.1 {
		obvPrefix, obvSuffix = "^ ", " ^"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s | %s%s | %d | Close: %.*f | ",
		snap.Timestamp.Format("2006-01-02 15:04:05"), market, regime, granularity, decimals, Truncate(price, decimals))
	fmt.Fprintf(&sb, "%s%s%s | ", emaPrefix, Comparison(snap.EMA12, snap.EMA26, "EMA12/26", decimals), emaSuffix)
	fmt.Fprintf(&sb, "%s%s%s | ", macdPrefix, Comparison(snap.MACD, snap.Signal, "MACD", decimals), macdSuffix)
	fmt.Fprintf(&sb, "%sOBV %%: %.2f%s | ", obvPrefix, Truncate(snap.OBVPct, 2), obvSuffix)
	fmt.Fprintf(&sb, "%s [I:%d,B:%d,S:%d]", action, st.Iterations, st.BuyStreak, st.SellStreak)

	if st.LastAction != domain.ActionNone {
		fmt.Fprintf(&sb, " | Last Action: %s", st.LastAction)
	}
	if st.LastAction == domain.ActionBuy && st.LastBuyPrice > 0 {
		fmt.Fprintf(&sb, " | Margin: %.2f%%", Truncate(MarginPct(price, st.LastBuyPrice), 2))
	}
	return sb.String()
}

func trendMarkers(crossedAbove, crossedBelow, above, below bool) (string, string) {
	switch {
	case crossedAbove:
		return "*^ ", " ^*"
	case crossedBelow:
		return "*v ", " v*"
	case above:
		return "^ ", " ^"
	case below:
		return "v ", " v"
	}
	return "", ""
}

// patternNotes maps each detected candlestick pattern to the annotation the
// original report printed for it.
var patternNotes = []struct {
	name     string
	strength string
	note     string
	flag     func(domain.PatternFlags) bool
}{
	{"Hammer", "*", "Weak - Reversal - Bullish Signal - Up", func(p domain.PatternFlags) bool { return p.Hammer }},
	{"Shooting Star", "*", "Weak - Reversal - Bearish Pattern - Down", func(p domain.PatternFlags) bool { return p.ShootingStar }},
	{"Hanging Man", "*", "Weak - Continuation - Bearish Pattern - Down", func(p domain.PatternFlags) bool { return p.HangingMan }},
	{"Inverted Hammer", "*", "Weak - Continuation - Bullish Pattern - Up", func(p domain.PatternFlags) bool { return p.InvertedHammer }},
	{"Three White Soldiers", "***", "Strong - Reversal - Bullish Pattern - Up", func(p domain.PatternFlags) bool { return p.ThreeWhiteSoldiers }},
	{"Three Black Crows", "***", "Strong - Reversal - Bearish Pattern - Down", func(p domain.PatternFlags) bool { return p.ThreeBlackCrows }},
	{"Morning Star", "***", "Strong - Reversal - Bullish Pattern - Up", func(p domain.PatternFlags) bool { return p.MorningStar }},
	{"Evening Star", "***", "Strong - Reversal - Bearish Pattern - Down", func(p domain.PatternFlags) bool { return p.EveningStar }},
	{"Three Line Strike", "**", "Reliable - Reversal - Bullish Pattern - Up", func(p domain.PatternFlags) bool { return p.ThreeLineStrike }},
	{"Abandoned Baby", "**", "Reliable - Reversal - Bullish Pattern - Up", func(p domain.PatternFlags) bool { return p.AbandonedBaby }},
	{"Morning Doji Star", "**", "Reliable - Reversal - Bullish Pattern - Up", func(p domain.PatternFlags) bool { return p.MorningDojiStar }},
	{"Evening Doji Star", "**", "Reliable - Reversal - Bearish Pattern - Down", func(p domain.PatternFlags) bool { return p.EveningDojiStar }},
	{"Two Black Gapping", "***", "Reliable - Reversal - Bearish Pattern - Down", func(p domain.PatternFlags) bool { return p.TwoBlackGapping }},
}

// PatternLines renders one annotation per detected pattern.
func PatternLines(flags domain.PatternFlags) []string {
	var out []string
	for _, p := range patternNotes {
		if p.flag(flags) {
			out = append(out, fmt.Sprintf("%s Candlestick Detected: %s (%q)", p.strength, p.name, p.note))
		}
	}
	return out
}

// FailsafeLine renders the override warning for a forced sell.
func FailsafeLine(changePct float64, thresholds domain.Thresholds) string {
	if thresholds.LowerPct < 0 && changePct < thresholds.LowerPct {
		return fmt.Sprintf("! Loss Failsafe Triggered (< %v%%)", thresholds.LowerPct)
	}
	return fmt.Sprintf("! Profit Bank Triggered (> %v%%)", thresholds.UpperPct)
}
