package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"flowai-ict-bot/internal/market"
)

// Client is a read-only Binance spot market data client
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new market data client
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// GetKlines fetches candlestick data for a symbol and interval
func (c *Client) GetKlines(ctx context.Context, symbol string, timeframe market.Timeframe, limit int) ([]market.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", string(timeframe))
	params.Set("limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", c.baseURL, params.Encode())

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("error fetching klines: %w", err)
	}

	var rawKlines [][]interface{}
	if err := json.Unmarshal(body, &rawKlines); err != nil {
		return nil, fmt.Errorf("error parsing klines: %w", err)
	}

	candles := make([]market.Candle, len(rawKlines))
	for i, raw := range rawKlines {
		if len(raw) < 7 {
			return nil, fmt.Errorf("malformed kline at index %d", i)
		}
		candles[i] = market.Candle{
			OpenTime:  asInt64(raw[0]),
			Open:      parseFloat(raw[1]),
			High:      parseFloat(raw[2]),
			Low:       parseFloat(raw[3]),
			Close:     parseFloat(raw[4]),
			Volume:    parseFloat(raw[5]),
			CloseTime: asInt64(raw[6]),
		}
	}

	return candles, nil
}

// GetSeries fetches candles and wraps them in a validated series
func (c *Client) GetSeries(ctx context.Context, symbol string, timeframe market.Timeframe, limit int) (*market.Series, error) {
	candles, err := c.GetKlines(ctx, symbol, timeframe, limit)
	if err != nil {
		return nil, err
	}
	return market.NewSeries(symbol, timeframe, candles)
}

// GetCurrentPrice fetches the latest price for a symbol
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	endpoint := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", c.baseURL, url.QueryEscape(symbol))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return 0, fmt.Errorf("error fetching price: %w", err)
	}

	var priceResp struct {
		Symbol string  `json:"symbol"`
		Price  float64 `json:"price,string"`
	}
	if err := json.Unmarshal(body, &priceResp); err != nil {
		return 0, fmt.Errorf("error parsing price: %w", err)
	}

	return priceResp.Price, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	return body, nil
}

func parseFloat(val interface{}) float64 {
	switch v := val.(type) {
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	case float64:
		return v
	default:
		return 0
	}
}

func asInt64(val interface{}) int64 {
	if f, ok := val.(float64); ok {
		return int64(f)
	}
	return 0
}
