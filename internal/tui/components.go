package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"coindrift/internal/domain"
	"coindrift/internal/report"

	"github.com/charmbracelet/lipgloss"
)

// FormatTradeRow renders one trade as a single line.
func FormatTradeRow(t domain.Trade) string {
	style := actionStyle(t.Action)
	decimals := report.Precision(t.Market)

	suffix := ""
	if t.Failsafe {
		suffix = SubtextStyle.Render("  failsafe")
	}

	return fmt.Sprintf("#%-4d %s %-8s %*.*f  %s%s",
		t.ID,
		style.Render(fmt.Sprintf("%-4s", t.Action)),
		t.Market,
		12, decimals, t.Price,
		t.Timestamp.Format(time.RFC822),
		suffix,
	)
}

// FormatActionLine renders the current position state.
func FormatActionLine(st domain.DecisionState) string {
	style := actionStyle(st.LastAction)
	return fmt.Sprintf("Position: %s  buys %d  sells %d  ticks %d",
		style.Render(string(st.LastAction)), st.BuyCount, st.SellCount, st.Iterations)
}

// RenderMarginBar renders a signed bar for a margin percentage, centered on
// zero. barWidth is the number of cells on each side of the axis.
func RenderMarginBar(label string, marginPct float64, barWidth int) string {
	if barWidth <= 0 {
		barWidth = 15
	}

	// Scale so a 10% margin fills the bar.
	filled := int(math.Round(math.Abs(marginPct) / 10 * float64(barWidth)))
	if filled > barWidth {
		filled = barWidth
	}

	style := MarginGoodStyle
	left := strings.Repeat(" ", barWidth)
	right := strings.Repeat("░", barWidth)
	if marginPct >= 0 {
		right = style.Render(strings.Repeat("█", filled)) + SubtextStyle.Render(strings.Repeat("░", barWidth-filled))
	} else {
		style = MarginBadStyle
		left = strings.Repeat(" ", barWidth-filled) + style.Render(strings.Repeat("█", filled))
		right = SubtextStyle.Render(strings.Repeat("░", barWidth))
	}

	return fmt.Sprintf("%-24s %s|%s %+.2f%%", label, left, right, marginPct)
}

// FormatQuote renders a price in the market's quote precision with thousands
// separators.
func FormatQuote(market string, price float64) string {
	decimals := report.Precision(market)
	s := fmt.Sprintf("%.*f", decimals, report.Truncate(price, decimals))
	parts := strings.SplitN(s, ".", 2)
	parts[0] = addCommas(parts[0])
	return strings.Join(parts, ".")
}

func actionStyle(a domain.Action) lipgloss.Style {
	switch a {
	case domain.ActionBuy:
		return ActionBuyStyle
	case domain.ActionSell:
		return ActionSellStyle
	default:
		return ActionWaitStyle
	}
}

func addCommas(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	var result strings.Builder
	for i, ch := range s {
		if i > 0 && (n-i)%3 == 0 {
			result.WriteByte(',')
		}
		result.WriteRune(ch)
	}
	return result.String()
}
