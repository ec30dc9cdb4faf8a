package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"coindrift/internal/domain"
)

// PublicClient talks to the unauthenticated Coinbase Exchange market data API.
type PublicClient struct {
	baseURL string
	client  *http.Client
}

func NewPublicClient(baseURL string) *PublicClient {
	if baseURL == "" {
		baseURL = "https://api.exchange.coinbase.com"
	}
	return &PublicClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// GetHistoricalCandles fetches the most recent candles for the market. The
// exchange returns rows newest first as [time, low, high, open, close, volume];
// the result is reordered oldest first and capped at the window size.
func (c *PublicClient) GetHistoricalCandles(ctx context.Context, market string, granularity int) ([]domain.Candle, error) {
	url := fmt.Sprintf("%s/products/%s/candles?granularity=%d", c.baseURL, market, granularity)
	return c.fetchCandles(ctx, url, market, granularity)
}

// GetHistoricalCandlesRange fetches candles inside [start, end]. Used by the
// simulation sampler to replay an arbitrary slice of history.
func (c *PublicClient) GetHistoricalCandlesRange(ctx context.Context, market string, granularity int, start, end time.Time) ([]domain.Candle, error) {
	url := fmt.Sprintf("%s/products/%s/candles?granularity=%d&start=%s&end=%s",
		c.baseURL, market, granularity,
		start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))
	return c.fetchCandles(ctx, url, market, granularity)
}

func (c *PublicClient) fetchCandles(ctx context.Context, url, market string, granularity int) ([]domain.Candle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch candles: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("exchange error %d: %s", resp.StatusCode, string(body))
	}

	var raw [][]float64
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode candles: %w", err)
	}

	candles := make([]domain.Candle, 0, len(raw))
	for _, row := range raw {
		if len(row) < 6 {
			continue
		}
		candles = append(candles, domain.Candle{
			Market:      market,
			Granularity: granularity,
			Timestamp:   time.Unix(int64(row[0]), 0).UTC(),
			Low:         row[1],
			High:        row[2],
			Open:        row[3],
			Close:       row[4],
			Volume:      row[5],
		})
	}
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})
	if len(candles) > domain.WindowSize {
		candles = candles[len(candles)-domain.WindowSize:]
	}
	return candles, nil
}

// GetTicker returns the latest traded price for the market.
func (c *PublicClient) GetTicker(ctx context.Context, market string) (float64, error) {
	url := fmt.Sprintf("%s/products/%s/ticker", c.baseURL, market)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch ticker: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("exchange error %d: %s", resp.StatusCode, string(body))
	}

	var ticker struct {
		Price string `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ticker); err != nil {
		return 0, fmt.Errorf("decode ticker: %w", err)
	}

	price, err := strconv.ParseFloat(ticker.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ticker price %q: %w", ticker.Price, err)
	}
	return price, nil
}
