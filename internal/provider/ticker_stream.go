package provider

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

const reconnectDelay = 5 * time.Second

// TickerUpdate is one live price observation from the exchange feed.
type TickerUpdate struct {
	Market string
	Price  float64
	Time   time.Time
}

// TickerStream maintains a websocket subscription to the exchange ticker
// channel and republishes price updates. It reconnects on read errors until
// the context is cancelled.
type TickerStream struct {
	wsURL   string
	market  string
	dialer  *websocket.Dialer
	updates chan TickerUpdate
}

func NewTickerStream(wsURL, market string) *TickerStream {
	if wsURL == "" {
		wsURL = "wss://ws-feed.exchange.coinbase.com"
	}
	return &TickerStream{
		wsURL:   wsURL,
		market:  market,
		dialer:  websocket.DefaultDialer,
		updates: make(chan TickerUpdate, 16),
	}
}

// Updates returns the price update channel. Closed when Run returns.
func (s *TickerStream) Updates() <-chan TickerUpdate {
	return s.updates
}

// Run blocks, feeding Updates until ctx is cancelled.
func (s *TickerStream) Run(ctx context.Context) {
	defer close(s.updates)

	for {
		if err := s.connectAndRead(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("ticker stream error for %s: %v, reconnecting", s.market, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (s *TickerStream) connectAndRead(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := map[string]any{
		"type":        "subscribe",
		"product_ids": []string{s.market},
		"channels":    []string{"ticker"},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	for {
		var msg struct {
			Type      string `json:"type"`
			ProductID string `json:"product_id"`
			Price     string `json:"price"`
			Time      string `json:"time"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		if msg.Type != "ticker" || msg.Price == "" {
			continue
		}
		price, err := strconv.ParseFloat(msg.Price, 64)
		if err != nil {
			log.Printf("ticker stream: unparseable price %q", msg.Price)
			continue
		}
		ts, _ := time.Parse(time.RFC3339Nano, msg.Time)

		update := TickerUpdate{Market: msg.ProductID, Price: price, Time: ts}
		select {
		case s.updates <- update:
		case <-ctx.Done():
			return ctx.Err()
		default:
			// drop when the consumer lags; only the latest price matters
		}
	}
}
