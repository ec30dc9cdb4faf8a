package account

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Credentials are the authenticated exchange API keys.
type Credentials struct {
	Key        string
	Secret     string
	Passphrase string
}

// Balance is one currency holding on the exchange.
type Balance struct {
	Currency  string
	Available decimal.Decimal
}

// Order is a filled or pending exchange order.
type Order struct {
	ID            string
	Market        string
	Side          string
	Size          decimal.Decimal
	ExecutedValue decimal.Decimal
	FillFees      decimal.Decimal
	Status        string
	CreatedAt     time.Time
}

// Client talks to the authenticated Coinbase Exchange API. Requests are
// signed with the HMAC scheme the exchange requires.
type Client struct {
	baseURL string
	creds   Credentials
	client  *http.Client
	now     func() time.Time
}

func NewClient(baseURL string, creds Credentials) *Client {
	if baseURL == "" {
		baseURL = "https://api.exchange.coinbase.com"
	}
	return &Client{
		baseURL: baseURL,
		creds:   creds,
		client:  &http.Client{Timeout: 30 * time.Second},
		now:     time.Now,
	}
}

func (c *Client) sign(timestamp, method, path string, body []byte) (string, error) {
	key, err := base64.StdEncoding.DecodeString(c.creds.Secret)
	if err != nil {
		return "", fmt.Errorf("decode api secret: %w", err)
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(timestamp + method + path))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	signature, err := c.sign(timestamp, method, path, body)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("CB-ACCESS-KEY", c.creds.Key)
	req.Header.Set("CB-ACCESS-SIGN", signature)
	req.Header.Set("CB-ACCESS-TIMESTAMP", timestamp)
	req.Header.Set("CB-ACCESS-PASSPHRASE", c.creds.Passphrase)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("exchange error %d: %s", resp.StatusCode, string(respBody))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// GetBalances returns the available balance per currency.
func (c *Client) GetBalances(ctx context.Context) ([]Balance, error) {
	var raw []struct {
		Currency  string `json:"currency"`
		Available string `json:"available"`
	}
	if err := c.do(ctx, http.MethodGet, "/accounts", nil, &raw); err != nil {
		return nil, err
	}

	balances := make([]Balance, 0, len(raw))
	for _, a := range raw {
		avail, err := decimal.NewFromString(a.Available)
		if err != nil {
			return nil, fmt.Errorf("parse balance for %s: %w", a.Currency, err)
		}
		balances = append(balances, Balance{Currency: a.Currency, Available: avail})
	}
	return balances, nil
}

// GetBalance returns the available balance for one currency, zero when the
// account holds none of it.
func (c *Client) GetBalance(ctx context.Context, currency string) (decimal.Decimal, error) {
	balances, err := c.GetBalances(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	for _, b := range balances {
		if b.Currency == currency {
			return b.Available, nil
		}
	}
	return decimal.Zero, nil
}

// MarketBuy places a market buy spending funds of the quote currency.
func (c *Client) MarketBuy(ctx context.Context, market string, funds decimal.Decimal) (Order, error) {
	return c.placeOrder(ctx, map[string]string{
		"type":       "market",
		"side":       "buy",
		"product_id": market,
		"funds":      funds.String(),
	})
}

// MarketSell places a market sell of size units of the base currency.
func (c *Client) MarketSell(ctx context.Context, market string, size decimal.Decimal) (Order, error) {
	return c.placeOrder(ctx, map[string]string{
		"type":       "market",
		"side":       "sell",
		"product_id": market,
		"size":       size.String(),
	})
}

func (c *Client) placeOrder(ctx context.Context, payload map[string]string) (Order, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Order{}, fmt.Errorf("marshal order: %w", err)
	}

	var raw orderPayload
	if err := c.do(ctx, http.MethodPost, "/orders", body, &raw); err != nil {
		return Order{}, err
	}
	return raw.toOrder()
}

// DoneOrders returns the settled orders for a market, newest first. Used to
// recover the last buy price after a restart.
func (c *Client) DoneOrders(ctx context.Context, market string) ([]Order, error) {
	var raw []orderPayload
	path := "/orders?status=done&product_id=" + market
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}

	orders := make([]Order, 0, len(raw))
	for _, p := range raw {
		o, err := p.toOrder()
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

type orderPayload struct {
	ID            string `json:"id"`
	ProductID     string `json:"product_id"`
	Side          string `json:"side"`
	Size          string `json:"size"`
	ExecutedValue string `json:"executed_value"`
	FillFees      string `json:"fill_fees"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
}

func (p orderPayload) toOrder() (Order, error) {
	o := Order{
		ID:     p.ID,
		Market: p.ProductID,
		Side:   p.Side,
		Status: p.Status,
	}
	var err error
	if o.Size, err = parseDecimal(p.Size); err != nil {
		return Order{}, fmt.Errorf("parse order size: %w", err)
	}
	if o.ExecutedValue, err = parseDecimal(p.ExecutedValue); err != nil {
		return Order{}, fmt.Errorf("parse executed value: %w", err)
	}
	if o.FillFees, err = parseDecimal(p.FillFees); err != nil {
		return Order{}, fmt.Errorf("parse fill fees: %w", err)
	}
	if p.CreatedAt != "" {
		if o.CreatedAt, err = time.Parse(time.RFC3339Nano, p.CreatedAt); err != nil {
			return Order{}, fmt.Errorf("parse created_at: %w", err)
		}
	}
	return o, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
