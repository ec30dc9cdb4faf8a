package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"coindrift/internal/domain"
	"coindrift/internal/report"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Dashboard message types.
type priceMsg float64
type priceErrMsg struct{ err error }
type statusMsg struct {
	state domain.DecisionState
	snap  domain.IndicatorSnapshot
	found bool
}
type statusErrMsg struct{ err error }
type dashTickMsg time.Time

// DashboardModel is the Bubble Tea model for the live status screen.
type DashboardModel struct {
	services Services
	price    float64
	state    domain.DecisionState
	snap     domain.IndicatorSnapshot
	found    bool
	loading  bool
	err      error
	width    int
	height   int
}

func NewDashboardModel(svc Services) DashboardModel {
	return DashboardModel{
		services: svc,
		loading:  true,
	}
}

// Init fires the initial data fetch commands.
func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(
		m.fetchPriceCmd(),
		m.fetchStatusCmd(),
		m.tickCmd(),
	)
}

// Update handles incoming messages.
func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case priceMsg:
		m.price = float64(msg)
		m.loading = false
		m.err = nil
		return m, nil

	case priceErrMsg:
		m.err = msg.err
		m.loading = false
		return m, nil

	case statusMsg:
		m.state = msg.state
		m.snap = msg.snap
		m.found = msg.found
		return m, nil

	case statusErrMsg:
		// Non-critical; the price header still renders.
		return m, nil

	case dashTickMsg:
		return m, tea.Batch(
			m.fetchPriceCmd(),
			m.fetchStatusCmd(),
			m.tickCmd(),
		)
	}

	return m, nil
}

// View renders the dashboard.
func (m DashboardModel) View() string {
	if m.loading && m.price == 0 {
		return SubtextStyle.Render("Loading...")
	}
	if m.err != nil && m.price == 0 {
		return ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	width := m.width - 2
	if width < 50 {
		width = 50
	}

	priceBox := BorderStyle.Width(width).Render(m.renderPriceSection())
	statusBox := BorderStyle.Width(width).Render(m.renderStatusSection())

	return lipgloss.JoinVertical(lipgloss.Left, priceBox, statusBox)
}

// SetSize updates the model dimensions.
func (m *DashboardModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Price returns the current price (for testing).
func (m DashboardModel) Price() float64 { return m.price }

// State returns the current decision state (for testing).
func (m DashboardModel) State() domain.DecisionState { return m.state }

func (m DashboardModel) renderPriceSection() string {
	priceStyle := PriceZeroStyle
	if m.found {
		if m.price > m.snap.Close {
			priceStyle = PriceUpStyle
		} else if m.price < m.snap.Close {
			priceStyle = PriceDownStyle
		}
	}
	return fmt.Sprintf("%s  %s",
		HeaderStyle.Render(fmt.Sprintf("%s @ %ds", m.services.Market, m.services.Granularity)),
		priceStyle.Render(FormatQuote(m.services.Market, m.price)),
	)
}

func (m DashboardModel) renderStatusSection() string {
	if !m.found {
		return SubtextStyle.Render("  No tick evaluated yet")
	}

	decimals := report.Precision(m.services.Market)
	lines := []string{
		HeaderStyle.Render("  Indicators"),
		"  " + report.Comparison(m.snap.EMA12, m.snap.EMA26, "EMA12/26", decimals),
		"  " + report.Comparison(m.snap.MACD, m.snap.Signal, "MACD/Signal", 4),
		fmt.Sprintf("  OBV: %.2f (%.2f%%)", m.snap.OBV, m.snap.OBVPct),
		"",
		"  " + FormatActionLine(m.state),
	}
	if m.state.LastAction == domain.ActionBuy && m.state.LastBuyPrice > 0 && m.price > 0 {
		margin := report.MarginPct(m.price, m.state.LastBuyPrice)
		lines = append(lines, "  "+RenderMarginBar("Open position margin", margin, 15))
	}
	return strings.Join(lines, "\n")
}

func (m DashboardModel) fetchPriceCmd() tea.Cmd {
	return func() tea.Msg {
		if m.services.Price == nil {
			return priceErrMsg{err: fmt.Errorf("price service not available")}
		}
		price, err := m.services.Price.GetTicker(context.Background(), m.services.Market)
		if err != nil {
			return priceErrMsg{err: err}
		}
		return priceMsg(price)
	}
}

func (m DashboardModel) fetchStatusCmd() tea.Cmd {
	return func() tea.Msg {
		if m.services.Status == nil {
			return statusErrMsg{err: fmt.Errorf("status service not available")}
		}
		ctx := context.Background()
		st, okState, err := m.services.Status.LoadState(ctx, m.services.Market, m.services.Granularity)
		if err != nil {
			return statusErrMsg{err: err}
		}
		snap, okSnap, err := m.services.Status.LoadSnapshot(ctx, m.services.Market, m.services.Granularity)
		if err != nil {
			return statusErrMsg{err: err}
		}
		return statusMsg{state: st, snap: snap, found: okState && okSnap}
	}
}

func (m DashboardModel) tickCmd() tea.Cmd {
	return tea.Tick(10*time.Second, func(t time.Time) tea.Msg {
		return dashTickMsg(t)
	})
}
