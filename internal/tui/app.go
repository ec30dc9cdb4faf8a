package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Tab represents a screen tab in the TUI.
type Tab int

const (
	TabDashboard Tab = iota
	TabTrades
	TabSimulations
)

var tabNames = []string{"1:Dashboard", "2:Trades", "3:Simulations"}

// AppModel is the root Bubble Tea model that manages tab navigation and child
// screens.
type AppModel struct {
	services    Services
	activeTab   Tab
	dashboard   DashboardModel
	trades      TradesModel
	simulations SimulationsModel
	width       int
	height      int
	quitting    bool
}

// NewAppModel creates the root application model with all child screens.
func NewAppModel(svc Services) AppModel {
	return AppModel{
		services:    svc,
		activeTab:   TabDashboard,
		dashboard:   NewDashboardModel(svc),
		trades:      NewTradesModel(svc),
		simulations: NewSimulationsModel(svc),
	}
}

// Init initializes all child models.
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		m.dashboard.Init(),
		m.trades.Init(),
		m.simulations.Init(),
	)
}

// Update handles incoming messages, routing to the active tab.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.propagateSize()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, DefaultKeyMap.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, DefaultKeyMap.Tab):
			m.activeTab = Tab((int(m.activeTab) + 1) % len(tabNames))
			return m, nil

		case key.Matches(msg, DefaultKeyMap.ShiftTab):
			next := int(m.activeTab) - 1
			if next < 0 {
				next = len(tabNames) - 1
			}
			m.activeTab = Tab(next)
			return m, nil

		case msg.String() == "1":
			m.activeTab = TabDashboard
			return m, nil
		case msg.String() == "2":
			m.activeTab = TabTrades
			return m, nil
		case msg.String() == "3":
			m.activeTab = TabSimulations
			return m, nil
		}
	}

	var cmds []tea.Cmd

	switch msg.(type) {
	case priceMsg, priceErrMsg, statusMsg, statusErrMsg, dashTickMsg:
		var cmd tea.Cmd
		m.dashboard, cmd = m.dashboard.Update(msg)
		cmds = append(cmds, cmd)

	case tradesMsg, tradesErrMsg:
		var cmd tea.Cmd
		m.trades, cmd = m.trades.Update(msg)
		cmds = append(cmds, cmd)

	case simulationsMsg, simulationsErrMsg:
		var cmd tea.Cmd
		m.simulations, cmd = m.simulations.Update(msg)
		cmds = append(cmds, cmd)

	default:
		// Keyboard and other messages go to the active tab only.
		switch m.activeTab {
		case TabDashboard:
			var cmd tea.Cmd
			m.dashboard, cmd = m.dashboard.Update(msg)
			cmds = append(cmds, cmd)
		case TabTrades:
			var cmd tea.Cmd
			m.trades, cmd = m.trades.Update(msg)
			cmds = append(cmds, cmd)
		case TabSimulations:
			var cmd tea.Cmd
			m.simulations, cmd = m.simulations.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// View renders the tab bar and active screen.
func (m AppModel) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	tabBar := m.renderTabBar()

	var content string
	switch m.activeTab {
	case TabDashboard:
		content = m.dashboard.View()
	case TabTrades:
		content = m.trades.View()
	case TabSimulations:
		content = m.simulations.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, tabBar, content)
}

// SetSize updates dimensions on the root model and propagates to children.
func (m *AppModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.propagateSize()
}

// ActiveTab returns the currently active tab (for testing).
func (m AppModel) ActiveTab() Tab { return m.activeTab }

func (m *AppModel) propagateSize() {
	contentHeight := m.height - 2
	m.dashboard.SetSize(m.width, contentHeight)
	m.trades.SetSize(m.width, contentHeight)
	m.simulations.SetSize(m.width, contentHeight)
}

func (m AppModel) renderTabBar() string {
	var tabs []string
	for i, name := range tabNames {
		if Tab(i) == m.activeTab {
			tabs = append(tabs, ActiveTabStyle.Render(name))
		} else {
			tabs = append(tabs, InactiveTabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}
