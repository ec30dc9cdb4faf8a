package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments for the trading loop.
type Metrics struct {
	TicksTotal       prometheus.Counter
	TickErrors       prometheus.Counter
	TradesTotal      *prometheus.CounterVec // labels: action
	FailsafeTriggers prometheus.Counter
	IndicatorDur     prometheus.Histogram
	CandleFetchDur   prometheus.Histogram
	LastClosePrice   prometheus.Gauge
	PositionOpen     prometheus.Gauge // 1 when holding the base asset
}

// New registers and returns the trading loop metrics on reg. Passing nil
// registers on the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coindrift_ticks_total",
			Help: "Total evaluation ticks processed",
		}),
		TickErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coindrift_tick_errors_total",
			Help: "Ticks that failed before a decision was made",
		}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coindrift_trades_total",
			Help: "Executed trades by action",
		}, []string{"action"}),
		FailsafeTriggers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coindrift_failsafe_triggers_total",
			Help: "Sells forced by the stop-loss or take-profit bounds",
		}),
		IndicatorDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "coindrift_indicator_compute_duration_seconds",
			Help:    "Indicator computation latency per tick",
			Buckets: prometheus.DefBuckets,
		}),
		CandleFetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "coindrift_candle_fetch_duration_seconds",
			Help:    "Exchange candle fetch latency",
			Buckets: prometheus.DefBuckets,
		}),
		LastClosePrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coindrift_last_close_price",
			Help: "Close price of the most recent evaluated candle",
		}),
		PositionOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coindrift_position_open",
			Help: "1 when the bot holds the base asset, 0 when flat",
		}),
	}

	reg.MustRegister(
		m.TicksTotal,
		m.TickErrors,
		m.TradesTotal,
		m.FailsafeTriggers,
		m.IndicatorDur,
		m.CandleFetchDur,
		m.LastClosePrice,
		m.PositionOpen,
	)
	return m
}
