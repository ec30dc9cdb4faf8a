package tui

import (
	"context"
	"fmt"
	"strings"

	"coindrift/internal/domain"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

const tradeHistoryLimit = 20

type tradesMsg []domain.Trade
type tradesErrMsg struct{ err error }

// TradesModel is the Bubble Tea model for the trade history screen.
type TradesModel struct {
	services Services
	trades   []domain.Trade
	loading  bool
	err      error
	width    int
	height   int
}

func NewTradesModel(svc Services) TradesModel {
	return TradesModel{
		services: svc,
		loading:  true,
	}
}

func (m TradesModel) Init() tea.Cmd {
	return m.fetchTradesCmd()
}

func (m TradesModel) Update(msg tea.Msg) (TradesModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tradesMsg:
		m.trades = []domain.Trade(msg)
		m.loading = false
		m.err = nil
		return m, nil

	case tradesErrMsg:
		m.err = msg.err
		m.loading = false
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, DefaultKeyMap.Refresh) {
			m.loading = true
			return m, m.fetchTradesCmd()
		}
	}

	return m, nil
}

func (m TradesModel) View() string {
	if m.loading && len(m.trades) == 0 {
		return SubtextStyle.Render("Loading trades...")
	}
	if m.err != nil {
		return ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	width := m.width - 2
	if width < 50 {
		width = 50
	}

	lines := []string{
		HeaderStyle.Render("  Trade History"),
		SubtextStyle.Render("  R to refresh"),
	}
	for _, t := range m.trades {
		lines = append(lines, "  "+FormatTradeRow(t))
	}
	if len(m.trades) == 0 {
		lines = append(lines, SubtextStyle.Render("  No trades recorded"))
	}

	return BorderStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m *TradesModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Trades returns the loaded trades (for testing).
func (m TradesModel) Trades() []domain.Trade { return m.trades }

func (m TradesModel) fetchTradesCmd() tea.Cmd {
	return func() tea.Msg {
		if m.services.Trades == nil {
			return tradesErrMsg{err: fmt.Errorf("trade service not available")}
		}
		trades, err := m.services.Trades.ListTrades(context.Background(), domain.TradeFilter{
			Market: m.services.Market,
			Limit:  tradeHistoryLimit,
		})
		if err != nil {
			return tradesErrMsg{err: err}
		}
		return tradesMsg(trades)
	}
}
