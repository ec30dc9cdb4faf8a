package tui

import (
	"strings"
	"testing"
	"time"

	"coindrift/internal/repository"
)

func TestSimulationsFetchAndView(t *testing.T) {
	svc := testServices()
	svc.Simulations = &stubSimulationLister{records: []repository.SimulationRecord{
		{
			ID:          4,
			Market:      "BTC-GBP",
			Granularity: 3600,
			Start:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			End:         time.Date(2026, 1, 13, 12, 0, 0, 0, time.UTC),
			Buys:        3,
			Sells:       3,
			MarginPct:   4.2,
		},
	}}

	m := NewSimulationsModel(svc)
	msg := m.fetchSimulationsCmd()()
	m, _ = m.Update(msg)

	if len(m.Records()) != 1 {
		t.Fatalf("expected 1 record, got %d", len(m.Records()))
	}

	view := m.View()
	if !strings.Contains(view, "#4") {
		t.Fatal("expected record id in view")
	}
	if !strings.Contains(view, "+4.20%") {
		t.Fatal("expected margin in view")
	}
}

func TestSimulationsEmpty(t *testing.T) {
	svc := testServices()
	svc.Simulations = &stubSimulationLister{}

	m := NewSimulationsModel(svc)
	msg := m.fetchSimulationsCmd()()
	m, _ = m.Update(msg)

	if !strings.Contains(m.View(), "No simulations saved") {
		t.Fatal("expected empty-state message")
	}
}
