package handler

import (
	"net/http"
	"strconv"
	"strings"

	"coindrift/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetStatus returns the latest indicator snapshot and decision state.
func (h *Handler) GetStatus(c *gin.Context) {
	if h.status == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "trade service unavailable"})
		return
	}

	_, span := h.tracer.Start(c.Request.Context(), "handler.get-status")
	defer span.End()

	snap, ok := h.status.LastSnapshot()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no tick evaluated yet"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"market":      h.market,
		"granularity": h.granularity,
		"snapshot":    snap,
		"state":       h.status.State(),
	})
}

// GetCandles returns recent persisted candles for the configured market, or
// for an explicitly requested one.
func (h *Handler) GetCandles(c *gin.Context) {
	if h.candles == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "candle store unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-candles")
	defer span.End()

	market := h.market
	if raw := strings.ToUpper(strings.TrimSpace(c.Query("market"))); raw != "" {
		if !domain.ValidMarket(raw) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported market: " + raw})
			return
		}
		market = raw
	}
	span.SetAttributes(attribute.String("market", market))

	granularity := h.granularity
	if raw := strings.TrimSpace(c.Query("granularity")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || !domain.ValidGranularity(n) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported granularity: " + raw})
			return
		}
		granularity = n
	}

	limit := domain.WindowSize
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > domain.WindowSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 300"})
			return
		}
		limit = n
	}

	candles, err := h.candles.GetCandles(ctx, market, granularity, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"candles": candles})
}

// GetTrades returns recorded trades, optionally filtered by action.
func (h *Handler) GetTrades(c *gin.Context) {
	if h.trades == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "trade store unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-trades")
	defer span.End()

	filter := domain.TradeFilter{Market: h.market}

	if raw := strings.ToUpper(strings.TrimSpace(c.Query("action"))); raw != "" {
		if raw != string(domain.ActionBuy) && raw != string(domain.ActionSell) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "action must be BUY or SELL"})
			return
		}
		filter.Action = domain.Action(raw)
	}

	limit := 50
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 200 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 200"})
			return
		}
		limit = n
	}
	filter.Limit = limit

	trades, err := h.trades.ListTrades(ctx, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}
