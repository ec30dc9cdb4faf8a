package tui

import (
	"strings"
	"testing"
	"time"

	"coindrift/internal/domain"
)

func TestFormatTradeRow(t *testing.T) {
	row := FormatTradeRow(domain.Trade{
		ID:        7,
		Market:    "BTC-GBP",
		Action:    domain.ActionBuy,
		Price:     19876.54,
		Timestamp: time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
	})

	if !strings.Contains(row, "#7") {
		t.Errorf("expected id in row: %q", row)
	}
	if !strings.Contains(row, "BUY") {
		t.Errorf("expected action in row: %q", row)
	}
	if !strings.Contains(row, "19876.54") {
		t.Errorf("expected price in row: %q", row)
	}
	if strings.Contains(row, "failsafe") {
		t.Errorf("did not expect failsafe marker: %q", row)
	}
}

func TestFormatTradeRowFailsafe(t *testing.T) {
	row := FormatTradeRow(domain.Trade{
		ID:       8,
		Market:   "BTC-GBP",
		Action:   domain.ActionSell,
		Price:    18000,
		Failsafe: true,
	})
	if !strings.Contains(row, "failsafe") {
		t.Errorf("expected failsafe marker: %q", row)
	}
}

func TestFormatActionLine(t *testing.T) {
	line := FormatActionLine(domain.DecisionState{
		LastAction: domain.ActionBuy,
		BuyCount:   2,
		SellCount:  1,
		Iterations: 42,
	})
	if !strings.Contains(line, "buys 2") || !strings.Contains(line, "sells 1") || !strings.Contains(line, "ticks 42") {
		t.Errorf("unexpected action line: %q", line)
	}
}

func TestRenderMarginBar(t *testing.T) {
	positive := RenderMarginBar("margin", 5, 10)
	if !strings.Contains(positive, "+5.00%") {
		t.Errorf("expected signed percentage: %q", positive)
	}

	negative := RenderMarginBar("margin", -3.5, 10)
	if !strings.Contains(negative, "-3.50%") {
		t.Errorf("expected signed percentage: %q", negative)
	}

	capped := RenderMarginBar("margin", 250, 10)
	if !strings.Contains(capped, "+250.00%") {
		t.Errorf("expected uncapped label: %q", capped)
	}
}

func TestFormatQuote(t *testing.T) {
	got := FormatQuote("BTC-GBP", 1234567.891)
	if got != "1,234,567.89" {
		t.Errorf("expected separators, got %q", got)
	}

	got = FormatQuote("BTC-GBP", 999.9)
	if got != "999.90" {
		t.Errorf("expected two decimals, got %q", got)
	}
}
