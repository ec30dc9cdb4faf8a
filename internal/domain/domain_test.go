package domain

import (
	"errors"
	"testing"
	"time"
)

func testCandles(n int) []Candle {
	base := time.Unix(0, 0).UTC()
	out := make([]Candle, n)
	for i := range out {
		out[i] = Candle{
			Market:      "BTC-GBP",
			Granularity: 3600,
			Timestamp:   base.Add(time.Duration(i) * time.Hour),
			Open:        100,
			High:        101,
			Low:         99,
			Close:       100,
			Volume:      10,
		}
	}
	return out
}

func TestNewWindowRejectsWrongLength(t *testing.T) {
	if _, err := NewWindow(testCandles(299)); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	if _, err := NewWindow(testCandles(301)); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	if _, err := NewWindow(testCandles(WindowSize)); err != nil {
		t.Fatalf("unexpected error for a full window: %v", err)
	}
}

func TestNewWindowRejectsUnorderedRows(t *testing.T) {
	candles := testCandles(WindowSize)
	candles[10], candles[11] = candles[11], candles[10]
	if _, err := NewWindow(candles); !errors.Is(err, ErrUnorderedWindow) {
		t.Fatalf("expected ErrUnorderedWindow, got %v", err)
	}
}

func TestNewWindowRejectsDuplicateTimestamps(t *testing.T) {
	candles := testCandles(WindowSize)
	candles[20].Timestamp = candles[19].Timestamp
	if _, err := NewWindow(candles); !errors.Is(err, ErrUnorderedWindow) {
		t.Fatalf("expected ErrUnorderedWindow, got %v", err)
	}
}

func TestNewWindowCopiesInput(t *testing.T) {
	candles := testCandles(WindowSize)
	w, err := NewWindow(candles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	candles[0].Close = 1
	if w[0].Close != 100 {
		t.Fatal("window must not alias the input slice")
	}
}

func TestWindowTail(t *testing.T) {
	candles := testCandles(WindowSize)
	candles[WindowSize-1].Close = 123
	w, err := NewWindow(candles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Tail().Close != 123 {
		t.Fatalf("expected tail close 123, got %v", w.Tail().Close)
	}
}

func TestValidMarket(t *testing.T) {
	valid := []string{"BTC-GBP", "ETH-USD", "XLM-EUR", "BCH-USD", "LTC-GBP"}
	for _, m := range valid {
		if !ValidMarket(m) {
			t.Fatalf("expected %s to be valid", m)
		}
	}
	invalid := []string{"", "BTCGBP", "btc-gbp", "BTC-JPY", "DOGE-USD", "BTC-GBP-X"}
	for _, m := range invalid {
		if ValidMarket(m) {
			t.Fatalf("expected %s to be invalid", m)
		}
	}
}

func TestValidGranularity(t *testing.T) {
	for _, g := range SupportedGranularities {
		if !ValidGranularity(g) {
			t.Fatalf("expected %d to be valid", g)
		}
	}
	if ValidGranularity(120) {
		t.Fatal("expected 120 to be invalid")
	}
}

func TestPatternFlagsAny(t *testing.T) {
	if (PatternFlags{}).Any() {
		t.Fatal("zero flags must report none")
	}
	if !(PatternFlags{Hammer: true}).Any() {
		t.Fatal("expected Any with a flag set")
	}
}
