package indicator

import (
	"math"

	"coindrift/internal/domain"
)

const (
	emaFastPeriod    = 12
	emaSlowPeriod    = 26
	macdSignalPeriod = 9
	smaShortPeriod   = 50
	smaLongPeriod    = 200
)

// Compute derives the indicator snapshot for the most recent window row.
// It is deterministic and side-effect free.
func Compute(w domain.Window) (domain.IndicatorSnapshot, error) {
	series, err := ComputeSeries(w)
	if err != nil {
		return domain.IndicatorSnapshot{}, err
	}
	return series[len(series)-1], nil
}

// ComputeSeries derives one snapshot per window row. Rows before an indicator
// has enough history carry zero values and false flags. The backtest runner
// iterates these rows the way the live loop consumes the tail.
func ComputeSeries(w domain.Window) ([]domain.IndicatorSnapshot, error) {
	if len(w) != domain.WindowSize {
		return nil, domain.ErrInsufficientData
	}

	closes := extractCloses(w)
	volumes := extractVolumes(w)

	ema12 := emaSeries(closes, emaFastPeriod)
	ema26 := emaSeries(closes, emaSlowPeriod)

	macd := make([]float64, len(closes))
	for i := range closes {
		if math.IsNaN(ema12[i]) || math.IsNaN(ema26[i]) {
			macd[i] = math.NaN()
			continue
		}
		macd[i] = ema12[i] - ema26[i]
	}
	signal := emaSeries(macd, macdSignalPeriod)

	obv := obvSeries(closes, volumes)
	sma50 := smaSeries(closes, smaShortPeriod)
	sma200 := smaSeries(closes, smaLongPeriod)

	out := make([]domain.IndicatorSnapshot, len(w))
	for i := range w {
		snap := domain.IndicatorSnapshot{
			Timestamp: w[i].Timestamp,
			Close:     w[i].Close,
			Low:       w[i].Low,
			EMA12:     zeroNaN(ema12[i]),
			EMA26:     zeroNaN(ema26[i]),
			MACD:      zeroNaN(macd[i]),
			Signal:    zeroNaN(signal[i]),
			OBV:       obv[i],
		}

		if i > 0 && obv[i-1] != 0 {
			snap.OBVPct = (obv[i] - obv[i-1]) / obv[i-1] * 100
		}

		if defined(ema12[i], ema26[i]) {
			snap.EMA12GtEMA26 = ema12[i] > ema26[i]
			snap.EMA12LtEMA26 = ema12[i] < ema26[i]
			if i > 0 && defined(ema12[i-1], ema26[i-1]) {
				snap.EMA12GtEMA26Crossed = snap.EMA12GtEMA26 && !(ema12[i-1] > ema26[i-1])
				snap.EMA12LtEMA26Crossed = snap.EMA12LtEMA26 && !(ema12[i-1] < ema26[i-1])
			}
		}

		if defined(macd[i], signal[i]) {
			snap.MACDGtSignal = macd[i] > signal[i]
			snap.MACDLtSignal = macd[i] < signal[i]
			if i > 0 && defined(macd[i-1], signal[i-1]) {
				snap.MACDGtSignalCrossed = snap.MACDGtSignal && !(macd[i-1] > signal[i-1])
				snap.MACDLtSignalCrossed = snap.MACDLtSignal && !(macd[i-1] < signal[i-1])
			}
		}

		if defined(sma50[i], sma200[i]) {
			snap.GoldenCross = sma50[i] > sma200[i]
		}

		out[i] = snap
	}
	return out, nil
}

// emaSeries computes the exponential moving average with multiplier 2/(n+1),
// seeded with the simple average of the first n defined values. Rows before
// the seed, and rows whose input is undefined, are NaN.
func emaSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}

	start := 0
	for start < len(values) && math.IsNaN(values[start]) {
		start++
	}
	if len(values)-start < period {
		return out
	}

	var sum float64
	for i := start; i < start+period; i++ {
		sum += values[i]
	}
	seed := start + period - 1
	out[seed] = sum / float64(period)

	// Delta form of v*k + prev*(1-k); exact on a flat series, so equal
	// inputs can never drift into a phantom crossover.
	k := 2.0 / (float64(period) + 1.0)
	for i := seed + 1; i < len(values); i++ {
		out[i] = out[i-1] + k*(values[i]-out[i-1])
	}
	return out
}

func smaSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(values) < period {
		return out
	}

	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// obvSeries accumulates volume flow: +volume when the close rises, -volume
// when it falls, unchanged when flat. The first row is 0.
func obvSeries(closes, volumes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		switch {
		case closes[i] > closes[i-1]:
			out[i] = out[i-1] + volumes[i]
		case closes[i] < closes[i-1]:
			out[i] = out[i-1] - volumes[i]
		default:
			out[i] = out[i-1]
		}
	}
	return out
}

func extractCloses(w domain.Window) []float64 {
	values := make([]float64, len(w))
	for i := range w {
		values[i] = w[i].Close
	}
	return values
}

func extractVolumes(w domain.Window) []float64 {
	values := make([]float64, len(w))
	for i := range w {
		values[i] = w[i].Volume
	}
	return values
}

func defined(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

func zeroNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
