package pattern

import (
	"testing"
	"time"

	"coindrift/internal/domain"
)

func candle(open, high, low, close float64) domain.Candle {
	return domain.Candle{Open: open, High: high, Low: low, Close: close, Volume: 100}
}

// tailWindow pads a window to full length and places the given candles at the
// tail, oldest first.
func tailWindow(t *testing.T, tail ...domain.Candle) domain.Window {
	t.Helper()
	base := time.Unix(0, 0).UTC()
	candles := make([]domain.Candle, domain.WindowSize)
	for i := range candles {
		candles[i] = candle(100, 101, 99, 100)
	}
	copy(candles[domain.WindowSize-len(tail):], tail)
	for i := range candles {
		candles[i].Timestamp = base.Add(time.Duration(i) * time.Hour)
	}
	w, err := domain.NewWindow(candles)
	if err != nil {
		t.Fatalf("unexpected window error: %v", err)
	}
	return w
}

func TestDetectShortTailIsEmpty(t *testing.T) {
	w := domain.Window{candle(1, 2, 0, 1)}
	if flags := Detect(w); flags.Any() {
		t.Fatalf("expected no patterns on a short window, got %+v", flags)
	}
}

func TestFlatCandlesFireNothing(t *testing.T) {
	flags := Detect(tailWindow(t))
	if flags.Any() {
		t.Fatalf("expected no patterns on flat candles, got %+v", flags)
	}
}

func TestHammer(t *testing.T) {
	// small body near the top of a long lower wick
	flags := Detect(tailWindow(t, candle(100, 100.5, 90, 99.5)))
	if !flags.Hammer {
		t.Fatal("expected hammer")
	}
}

func TestInvertedHammer(t *testing.T) {
	flags := Detect(tailWindow(t, candle(100, 110, 99.5, 100.5)))
	if !flags.InvertedHammer {
		t.Fatal("expected inverted hammer")
	}
}

func TestThreeBlackCrows(t *testing.T) {
	// three consecutive declines, each opening inside the prior body and
	// closing below the prior low with a short lower wick
	flags := Detect(tailWindow(t,
		candle(100, 101, 89, 90),
		candle(95, 96, 84, 85),
		candle(90, 91, 79.5, 80),
	))
	if !flags.ThreeBlackCrows {
		t.Fatal("expected three black crows")
	}
}

func TestThreeWhiteSoldiers(t *testing.T) {
	flags := Detect(tailWindow(t,
		candle(90, 101, 89, 100),
		candle(95, 106, 94, 105.5),
		candle(100, 111, 99, 110.5),
	))
	if !flags.ThreeWhiteSoldiers {
		t.Fatal("expected three white soldiers")
	}
}

func TestMorningStarAndDojiVariant(t *testing.T) {
	// down candle, star gapped below it, up candle opening above the star
	star := candle(88, 89, 86.5, 87)
	flags := Detect(tailWindow(t,
		candle(100, 101, 89, 90),
		star,
		candle(92, 99, 91, 98),
	))
	if !flags.MorningStar {
		t.Fatal("expected morning star")
	}
	if flags.MorningDojiStar {
		t.Fatal("star body is too large for the doji variant")
	}

	doji := candle(87, 89, 86, 87.1)
	flags = Detect(tailWindow(t,
		candle(100, 101, 89, 90),
		doji,
		candle(92, 99, 91, 98),
	))
	if !flags.MorningStar || !flags.MorningDojiStar {
		t.Fatalf("expected morning star with doji variant, got %+v", flags)
	}
}

func TestEveningStarAndDojiVariant(t *testing.T) {
	flags := Detect(tailWindow(t,
		candle(90, 101, 89, 100),
		candle(103, 104.2, 102.9, 103.1),
		candle(101, 102, 93, 94),
	))
	if !flags.EveningStar {
		t.Fatal("expected evening star")
	}
	if !flags.EveningDojiStar {
		t.Fatal("expected evening doji star for a doji middle candle")
	}
}

func TestAbandonedBaby(t *testing.T) {
	flags := Detect(tailWindow(t,
		candle(100, 101, 89, 90),
		candle(85, 86, 84, 85.5),
		candle(92, 99, 91, 98),
	))
	if !flags.AbandonedBaby {
		t.Fatal("expected abandoned baby")
	}
}

func TestTwoBlackGapping(t *testing.T) {
	flags := Detect(tailWindow(t,
		candle(100, 110, 99, 109),
		candle(95, 96, 84, 85),
		candle(90, 91, 79.5, 80),
	))
	if !flags.TwoBlackGapping {
		t.Fatal("expected two black gapping")
	}
}

func TestThreeLineStrike(t *testing.T) {
	flags := Detect(tailWindow(t,
		candle(100, 101, 89, 90),
		candle(95, 96, 84, 85),
		candle(90, 91, 79.5, 80),
		candle(78, 103, 77, 102),
	))
	if !flags.ThreeLineStrike {
		t.Fatal("expected three line strike")
	}
}

func TestHangingMan(t *testing.T) {
	flags := Detect(tailWindow(t,
		candle(100, 101, 99, 100.5),
		candle(100, 102, 99, 101),
		candle(104, 104.5, 94, 104.2),
	))
	if !flags.HangingMan {
		t.Fatal("expected hanging man")
	}
}

func TestShootingStar(t *testing.T) {
	flags := Detect(tailWindow(t,
		candle(100, 106, 99, 105),
		candle(106, 112, 105.8, 106.5),
	))
	if !flags.ShootingStar {
		t.Fatal("expected shooting star")
	}
}
