package pattern

import (
	"math"

	"coindrift/internal/domain"
)

// rangeGuard keeps wick-ratio divisions defined on zero-range candles.
const rangeGuard = 0.001

// dojiBodyRatio is the maximum body-to-range ratio for a candle to count as a doji.
const dojiBodyRatio = 0.1

// Detect evaluates the candlestick patterns over the window tail. Detectors
// read at most the last four candles; with fewer rows no pattern fires.
// Patterns are independent and several may be true at once.
func Detect(w domain.Window) domain.PatternFlags {
	if len(w) < 4 {
		return domain.PatternFlags{}
	}

	// c0 is the most recent candle, c1..c3 reach back in time.
	c0 := w[len(w)-1]
	c1 := w[len(w)-2]
	c2 := w[len(w)-3]
	c3 := w[len(w)-4]

	return domain.PatternFlags{
		Hammer:             hammer(c0),
		InvertedHammer:     invertedHammer(c0),
		HangingMan:         hangingMan(c0, c1, c2),
		ShootingStar:       shootingStar(c0, c1),
		ThreeWhiteSoldiers: threeWhiteSoldiers(c0, c1, c2),
		ThreeBlackCrows:    threeBlackCrows(c0, c1, c2),
		MorningStar:        morningStar(c0, c1, c2),
		EveningStar:        eveningStar(c0, c1, c2),
		ThreeLineStrike:    threeLineStrike(c0, c1, c2, c3),
		AbandonedBaby:      abandonedBaby(c0, c1, c2),
		MorningDojiStar:    morningStar(c0, c1, c2) && isDoji(c1),
		EveningDojiStar:    eveningStar(c0, c1, c2) && isDoji(c1),
		TwoBlackGapping:    twoBlackGapping(c0, c1, c2),
	}
}

func body(c domain.Candle) float64 {
	return math.Abs(c.Open - c.Close)
}

func isDoji(c domain.Candle) bool {
	return body(c)/(rangeGuard+c.High-c.Low) < dojiBodyRatio
}

// hammer: long lower wick, small body near the top of the range.
func hammer(c domain.Candle) bool {
	r := rangeGuard + c.High - c.Low
	return (c.High-c.Low) > 3*(c.Open-c.Close) &&
		(c.Close-c.Low)/r > 0.6 &&
		(c.Open-c.Low)/r > 0.6
}

// invertedHammer: long upper wick, small body near the bottom of the range.
func invertedHammer(c domain.Candle) bool {
	r := rangeGuard + c.High - c.Low
	return (c.High-c.Low) > 3*(c.Open-c.Close) &&
		(c.High-c.Close)/r > 0.6 &&
		(c.High-c.Open)/r > 0.6
}

// hangingMan: hammer shape opening above the highs of the two prior candles.
func hangingMan(c0, c1, c2 domain.Candle) bool {
	r := rangeGuard + c0.High - c0.Low
	return (c0.High-c0.Low) > 4*(c0.Open-c0.Close) &&
		(c0.Close-c0.Low)/r >= 0.75 &&
		(c0.Open-c0.Low)/r >= 0.75 &&
		c1.High < c0.Open &&
		c2.High < c0.Open
}

// shootingStar: gap up after an up candle with a long upper wick.
func shootingStar(c0, c1 domain.Candle) bool {
	return c1.Open < c1.Close && c0.Open > c1.Close &&
		(c0.High-math.Max(c0.Open, c0.Close)) >= 3*body(c0) &&
		(math.Min(c0.Close, c0.Open)-c0.Low) <= body(c0)
}

// threeWhiteSoldiers: two consecutive advances opening within the prior body
// and closing above the prior high, with short upper wicks.
func threeWhiteSoldiers(c0, c1, c2 domain.Candle) bool {
	return c0.Open > c1.Open && c0.Open < c1.Close &&
		c0.Close > c1.High &&
		c0.High-math.Max(c0.Open, c0.Close) < body(c0) &&
		c1.Open > c2.Open && c1.Open < c2.Close &&
		c1.Close > c2.High &&
		c1.High-math.Max(c1.Open, c1.Close) < body(c1)
}

// threeBlackCrows: the bearish mirror of three white soldiers.
func threeBlackCrows(c0, c1, c2 domain.Candle) bool {
	return c0.Open < c1.Open && c0.Open > c1.Close &&
		c0.Close < c1.Low &&
		math.Min(c0.Open, c0.Close)-c0.Low < body(c0) &&
		c1.Open < c2.Open && c1.Open > c2.Close &&
		c1.Close < c2.Low &&
		math.Min(c1.Open, c1.Close)-c1.Low < body(c1)
}

// morningStar: down candle, star below it, then an up candle opening above the star.
func morningStar(c0, c1, c2 domain.Candle) bool {
	starTop := math.Max(c1.Open, c1.Close)
	return starTop < c2.Close && c2.Close < c2.Open &&
		c0.Close > c0.Open && c0.Open > starTop
}

// eveningStar: up candle, star above it, then a down candle opening below the star.
func eveningStar(c0, c1, c2 domain.Candle) bool {
	starBottom := math.Min(c1.Open, c1.Close)
	return starBottom > c2.Close && c2.Close > c2.Open &&
		c0.Close < c0.Open && c0.Open < starBottom
}

// threeLineStrike: three declining black candles followed by a bullish candle
// engulfing all three.
func threeLineStrike(c0, c1, c2, c3 domain.Candle) bool {
	return c1.Open < c2.Open && c1.Open > c2.Close &&
		c1.Close < c2.Low &&
		math.Min(c1.Open, c1.Close)-c1.Low < body(c1) &&
		c2.Open < c3.Open && c2.Open > c3.Close &&
		c2.Close < c3.Low &&
		math.Min(c2.Open, c2.Close)-c2.Low < body(c2) &&
		c0.Open < c1.Low && c0.Close > c3.High
}

// abandonedBaby: down candle, gapped-down star, then a gapped-up up candle.
func abandonedBaby(c0, c1, c2 domain.Candle) bool {
	return c0.Open < c0.Close &&
		c1.High < c0.Low &&
		c2.Open > c2.Close &&
		c1.High < c2.Low
}

// twoBlackGapping: gap down followed by a black candle closing below the prior low.
func twoBlackGapping(c0, c1, c2 domain.Candle) bool {
	return c0.Open < c1.Open && c0.Open > c1.Close &&
		c0.Close < c1.Low &&
		math.Min(c0.Open, c0.Close)-c0.Low < body(c0) &&
		c1.High < c2.Low
}
