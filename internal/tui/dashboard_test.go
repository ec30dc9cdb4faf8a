package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"coindrift/internal/domain"
	"coindrift/internal/repository"
)

type stubPriceQuerier struct {
	price float64
	err   error
}

func (s *stubPriceQuerier) GetTicker(_ context.Context, _ string) (float64, error) {
	return s.price, s.err
}

type stubStatusQuerier struct {
	state domain.DecisionState
	snap  domain.IndicatorSnapshot
	found bool
	err   error
}

func (s *stubStatusQuerier) LoadState(_ context.Context, _ string, _ int) (domain.DecisionState, bool, error) {
	return s.state, s.found, s.err
}

func (s *stubStatusQuerier) LoadSnapshot(_ context.Context, _ string, _ int) (domain.IndicatorSnapshot, bool, error) {
	return s.snap, s.found, s.err
}

type stubTradeLister struct {
	trades []domain.Trade
	err    error
}

func (s *stubTradeLister) ListTrades(_ context.Context, _ domain.TradeFilter) ([]domain.Trade, error) {
	return s.trades, s.err
}

type stubSimulationLister struct {
	records []repository.SimulationRecord
	err     error
}

func (s *stubSimulationLister) ListResults(_ context.Context, _ string, _ int) ([]repository.SimulationRecord, error) {
	return s.records, s.err
}

func TestDashboardPriceFetch(t *testing.T) {
	svc := testServices()
	svc.Price = &stubPriceQuerier{price: 25000}

	m := NewDashboardModel(svc)
	msg := m.fetchPriceCmd()()
	m, _ = m.Update(msg)

	if m.Price() != 25000 {
		t.Fatalf("expected price 25000, got %f", m.Price())
	}
	if !strings.Contains(m.View(), "BTC-GBP @ 3600s") {
		t.Fatal("expected market header in view")
	}
}

func TestDashboardPriceError(t *testing.T) {
	svc := testServices()
	svc.Price = &stubPriceQuerier{err: errors.New("exchange down")}

	m := NewDashboardModel(svc)
	msg := m.fetchPriceCmd()()
	m, _ = m.Update(msg)

	if !strings.Contains(m.View(), "exchange down") {
		t.Fatal("expected error in view")
	}
}

func TestDashboardStatusFetch(t *testing.T) {
	svc := testServices()
	svc.Status = &stubStatusQuerier{
		state: domain.DecisionState{LastAction: domain.ActionBuy, LastBuyPrice: 20000, BuyCount: 1, Iterations: 12},
		snap:  domain.IndicatorSnapshot{Close: 21000, EMA12: 21000, EMA26: 20500, MACD: 5, Signal: 3},
		found: true,
	}

	m := NewDashboardModel(svc)
	msg := m.fetchStatusCmd()()
	m, _ = m.Update(msg)
	m, _ = m.Update(priceMsg(22000))

	st := m.State()
	if st.LastAction != domain.ActionBuy {
		t.Fatalf("expected BUY state, got %s", st.LastAction)
	}

	view := m.View()
	if !strings.Contains(view, "EMA12/26") {
		t.Fatal("expected indicator comparison in view")
	}
	if !strings.Contains(view, "Open position margin") {
		t.Fatal("expected margin bar while holding")
	}
}

func TestDashboardStatusNotFound(t *testing.T) {
	svc := testServices()
	svc.Status = &stubStatusQuerier{found: false}

	m := NewDashboardModel(svc)
	msg := m.fetchStatusCmd()()
	m, _ = m.Update(msg)
	m, _ = m.Update(priceMsg(100))

	if !strings.Contains(m.View(), "No tick evaluated yet") {
		t.Fatal("expected empty-state message")
	}
}

func TestDashboardNilServices(t *testing.T) {
	m := NewDashboardModel(testServices())

	if _, ok := m.fetchPriceCmd()().(priceErrMsg); !ok {
		t.Fatal("expected price error with nil service")
	}
	if _, ok := m.fetchStatusCmd()().(statusErrMsg); !ok {
		t.Fatal("expected status error with nil service")
	}
}

func TestDashboardTickRefetches(t *testing.T) {
	m := NewDashboardModel(testServices())

	_, cmd := m.Update(dashTickMsg(time.Now()))
	if cmd == nil {
		t.Fatal("expected refetch commands on tick")
	}
}
