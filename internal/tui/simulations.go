package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"coindrift/internal/repository"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

const simulationHistoryLimit = 10

type simulationsMsg []repository.SimulationRecord
type simulationsErrMsg struct{ err error }

// SimulationsModel is the Bubble Tea model for the saved simulation screen.
type SimulationsModel struct {
	services Services
	records  []repository.SimulationRecord
	loading  bool
	err      error
	width    int
	height   int
}

func NewSimulationsModel(svc Services) SimulationsModel {
	return SimulationsModel{
		services: svc,
		loading:  true,
	}
}

func (m SimulationsModel) Init() tea.Cmd {
	return m.fetchSimulationsCmd()
}

func (m SimulationsModel) Update(msg tea.Msg) (SimulationsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case simulationsMsg:
		m.records = []repository.SimulationRecord(msg)
		m.loading = false
		m.err = nil
		return m, nil

	case simulationsErrMsg:
		m.err = msg.err
		m.loading = false
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, DefaultKeyMap.Refresh) {
			m.loading = true
			return m, m.fetchSimulationsCmd()
		}
	}

	return m, nil
}

func (m SimulationsModel) View() string {
	if m.loading && len(m.records) == 0 {
		return SubtextStyle.Render("Loading simulations...")
	}
	if m.err != nil {
		return ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	width := m.width - 2
	if width < 60 {
		width = 60
	}

	lines := []string{
		HeaderStyle.Render("  Simulations"),
		SubtextStyle.Render("  R to refresh"),
	}
	for _, rec := range m.records {
		label := fmt.Sprintf("#%d %s %s", rec.ID, rec.Market, rec.CreatedAt.Format("02 Jan 15:04"))
		lines = append(lines, "  "+RenderMarginBar(label, rec.MarginPct, 15))
		lines = append(lines, SubtextStyle.Render(fmt.Sprintf("      %s to %s  buys %d  sells %d",
			rec.Start.Format(time.DateOnly), rec.End.Format(time.DateOnly), rec.Buys, rec.Sells)))
	}
	if len(m.records) == 0 {
		lines = append(lines, SubtextStyle.Render("  No simulations saved"))
	}

	return BorderStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m *SimulationsModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Records returns the loaded records (for testing).
func (m SimulationsModel) Records() []repository.SimulationRecord { return m.records }

func (m SimulationsModel) fetchSimulationsCmd() tea.Cmd {
	return func() tea.Msg {
		if m.services.Simulations == nil {
			return simulationsErrMsg{err: fmt.Errorf("simulation service not available")}
		}
		records, err := m.services.Simulations.ListResults(context.Background(), "", simulationHistoryLimit)
		if err != nil {
			return simulationsErrMsg{err: err}
		}
		return simulationsMsg(records)
	}
}
