package handler

import (
	"context"
	"net/http"

	"coindrift/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type StatusProvider interface {
	State() domain.DecisionState
	LastSnapshot() (domain.IndicatorSnapshot, bool)
}

type CandleLister interface {
	GetCandles(ctx context.Context, market string, granularity, limit int) ([]domain.Candle, error)
}

type TradeLister interface {
	ListTrades(ctx context.Context, filter domain.TradeFilter) ([]domain.Trade, error)
}

type Handler struct {
	tracer      trace.Tracer
	market      string
	granularity int
	status      StatusProvider
	candles     CandleLister
	trades      TradeLister
}

func New(
	tracer trace.Tracer,
	market string,
	granularity int,
	status StatusProvider,
	candles CandleLister,
	trades TradeLister,
) *Handler {
	return &Handler{
		tracer:      tracer,
		market:      market,
		granularity: granularity,
		status:      status,
		candles:     candles,
		trades:      trades,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/api/status", h.GetStatus)
	r.GET("/api/candles", h.GetCandles)
	r.GET("/api/trades", h.GetTrades)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
