package chart

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"coindrift/internal/domain"
)

func TestRenderMarketChart(t *testing.T) {
	renderer := NewRenderer()
	candles := buildTestCandles(160)

	data, err := renderer.RenderMarketChart(candles)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty image bytes")
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("expected valid PNG: %v", err)
	}
	if cfg.Width != chartWidth || cfg.Height != chartHeight {
		t.Fatalf("unexpected dimensions %dx%d", cfg.Width, cfg.Height)
	}
}

func TestRenderMarketChartUnsortedInput(t *testing.T) {
	renderer := NewRenderer()
	candles := buildTestCandles(10)
	candles[0], candles[9] = candles[9], candles[0]

	if _, err := renderer.RenderMarketChart(candles); err != nil {
		t.Fatalf("render failed on unsorted input: %v", err)
	}
}

func TestRenderMarketChartTooFewCandles(t *testing.T) {
	renderer := NewRenderer()
	if _, err := renderer.RenderMarketChart(buildTestCandles(1)); err == nil {
		t.Fatal("expected error for a single candle")
	}
}

func buildTestCandles(count int) []domain.Candle {
	base := time.Now().UTC().Add(-time.Duration(count) * time.Hour)
	out := make([]domain.Candle, 0, count)
	price := 20000.0
	for i := 0; i < count; i++ {
		step := float64((i%9)-4) * 18
		open := price
		closePrice := price + step
		high := open + 22
		low := closePrice - 20
		if closePrice > open {
			high = closePrice + 22
			low = open - 20
		}
		out = append(out, domain.Candle{
			Market:      "BTC-GBP",
			Granularity: 3600,
			Timestamp:   base.Add(time.Duration(i) * time.Hour),
			Open:        open,
			High:        high,
			Low:         low,
			Close:       closePrice,
			Volume:      1000 + float64((i%17)*80),
		})
		price = closePrice
	}
	return out
}
