package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestTickerStreamDeliversUpdates(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var sub map[string]any
		if err := conn.ReadJSON(&sub); err != nil {
			t.Errorf("read subscribe: %v", err)
			return
		}
		if sub["type"] != "subscribe" {
			t.Errorf("expected subscribe message, got %v", sub)
		}

		conn.WriteJSON(map[string]any{"type": "subscriptions"})
		conn.WriteJSON(map[string]any{
			"type":       "ticker",
			"product_id": "BTC-GBP",
			"price":      "21400.51",
			"time":       "2024-03-01T12:00:00.000000Z",
		})
		// hold the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	stream := NewTickerStream(wsURL, "BTC-GBP")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go stream.Run(ctx)

	select {
	case update := <-stream.Updates():
		if update.Market != "BTC-GBP" || update.Price != 21400.51 {
			t.Errorf("unexpected update %+v", update)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for ticker update")
	}
}

func TestTickerStreamClosesOnCancel(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	stream := NewTickerStream(wsURL, "BTC-GBP")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		stream.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop after cancel")
	}

	if _, ok := <-stream.Updates(); ok {
		// drain until closed
		for range stream.Updates() {
		}
	}
}
