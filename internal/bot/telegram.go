package bot

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"coindrift/internal/chart"
	"coindrift/internal/domain"
	"coindrift/internal/report"

	tele "gopkg.in/telebot.v3"
)

type PriceQuerier interface {
	GetTicker(ctx context.Context, market string) (float64, error)
}

// CandleQuerier serves the candles behind the /chart command.
type CandleQuerier interface {
	GetHistoricalCandles(ctx context.Context, market string, granularity int) ([]domain.Candle, error)
}

type StatusReader interface {
	State() domain.DecisionState
	LastSnapshot() (domain.IndicatorSnapshot, bool)
}

type TradeLister interface {
	ListTrades(ctx context.Context, filter domain.TradeFilter) ([]domain.Trade, error)
}

func StartTelegramBot(
	token, market string,
	granularity int,
	priceService PriceQuerier,
	candleService CandleQuerier,
	statusService StatusReader,
	tradeService TradeLister,
) *AlertDispatcher {
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}
	alerts := NewAlertDispatcher(b)

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/price", func(c tele.Context) error {
		target := market
		if args := c.Args(); len(args) > 0 {
			target = strings.ToUpper(args[0])
			if !domain.ValidMarket(target) {
				return c.Send(fmt.Sprintf("Unknown market: %s\nExample: /price BTC-GBP", target))
			}
		}
		price, err := priceService.GetTicker(context.Background(), target)
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching price for %s: %v", target, err))
		}
		decimals := report.Precision(target)
		return c.Send(fmt.Sprintf("%s: %.*f", target, decimals, report.Truncate(price, decimals)))
	})

	b.Handle("/status", func(c tele.Context) error {
		if statusService == nil {
			return c.Send("Status unavailable")
		}
		snap, ok := statusService.LastSnapshot()
		if !ok {
			return c.Send("No tick evaluated yet.")
		}
		st := statusService.State()
		return c.Send(formatStatus(market, granularity, snap, st))
	})

	b.Handle("/trades", func(c tele.Context) error {
		if tradeService == nil {
			return c.Send("Trade history unavailable")
		}
		limit, err := parseTradesLimit(c.Args())
		if err != nil {
			return c.Send("Usage: /trades [count]")
		}
		trades, err := tradeService.ListTrades(context.Background(), domain.TradeFilter{Market: market, Limit: limit})
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching trades: %v", err))
		}
		if len(trades) == 0 {
			return c.Send("No trades recorded yet.")
		}
		lines := make([]string, 0, len(trades)+1)
		lines = append(lines, "Recent trades:")
		for _, t := range trades {
			lines = append(lines, formatTrade(t))
		}
		return c.Send(strings.Join(lines, "\n"))
	})

	b.Handle("/chart", func(c tele.Context) error {
		if candleService == nil {
			return c.Send("Charting unavailable")
		}
		target := market
		if args := c.Args(); len(args) > 0 {
			target = strings.ToUpper(args[0])
			if !domain.ValidMarket(target) {
				return c.Send(fmt.Sprintf("Unknown market: %s\nExample: /chart BTC-GBP", target))
			}
		}
		img, err := buildMarketChart(context.Background(), candleService, target, granularity)
		if err != nil {
			return c.Send(fmt.Sprintf("Error charting %s: %v", target, err))
		}
		photo := &tele.Photo{
			File:    tele.FromReader(bytes.NewReader(img)),
			Caption: fmt.Sprintf("%s @ %ds", target, granularity),
		}
		return c.Send(photo)
	})

	b.Handle("/alerts", func(c tele.Context) error {
		chat := c.Chat()
		if chat == nil {
			return c.Send("Unable to detect chat")
		}

		mode, err := parseAlertMode(c.Args())
		if err != nil {
			return c.Send("Usage: /alerts on | /alerts off | /alerts status")
		}

		switch mode {
		case "on":
			if alerts.Subscribe(chat.ID) {
				return c.Send("Trade alerts enabled for this chat.")
			}
			return c.Send("Trade alerts are already enabled for this chat.")
		case "off":
			if alerts.Unsubscribe(chat.ID) {
				return c.Send("Trade alerts disabled for this chat.")
			}
			return c.Send("Trade alerts are already disabled for this chat.")
		default:
			if alerts.IsSubscribed(chat.ID) {
				return c.Send("Alerts status: ON")
			}
			return c.Send("Alerts status: OFF")
		}
	})

	log.Println("Telegram bot started")
	go b.Start()
	return alerts
}

// buildMarketChart fetches a candle window and renders it to a PNG.
func buildMarketChart(ctx context.Context, candles CandleQuerier, market string, granularity int) ([]byte, error) {
	window, err := candles.GetHistoricalCandles(ctx, market, granularity)
	if err != nil {
		return nil, fmt.Errorf("fetch candles: %w", err)
	}
	return chart.NewRenderer().RenderMarketChart(window)
}

func formatStatus(market string, granularity int, snap domain.IndicatorSnapshot, st domain.DecisionState) string {
	decimals := report.Precision(market)
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s @ %ds\n", market, granularity)
	fmt.Fprintf(&sb, "Candle: %s\n", snap.Timestamp.UTC().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "Close: %.*f\n", decimals, report.Truncate(snap.Close, decimals))
	fmt.Fprintf(&sb, "%s\n", report.Comparison(snap.EMA12, snap.EMA26, "EMA12/26", decimals))
	fmt.Fprintf(&sb, "%s\n", report.Comparison(snap.MACD, snap.Signal, "MACD", decimals))
	fmt.Fprintf(&sb, "OBV %%: %.2f\n", report.Truncate(snap.OBVPct, 2))
	fmt.Fprintf(&sb, "Last action: %s | Iterations: %d | Buys: %d | Sells: %d",
		st.LastAction, st.Iterations, st.BuyCount, st.SellCount)
	if st.LastAction == domain.ActionBuy && st.LastBuyPrice > 0 {
		fmt.Fprintf(&sb, "\nMargin: %.2f%%", report.Truncate(report.MarginPct(snap.Close, st.LastBuyPrice), 2))
	}
	return sb.String()
}

func formatTrade(t domain.Trade) string {
	decimals := report.Precision(t.Market)
	line := fmt.Sprintf("%s %s at %.*f on %s",
		t.Action, t.Market, decimals, report.Truncate(t.Price, decimals),
		t.Timestamp.UTC().Format(time.RFC822))
	if t.Failsafe {
		line += " (failsafe)"
	}
	return line
}

func parseTradesLimit(args []string) (int, error) {
	if len(args) == 0 {
		return 10, nil
	}
	limit, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid count")
	}
	return limit, nil
}
