package binance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"flowai-ict-bot/internal/market"
)

func TestGetKlinesParsesBinancePayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("interval"); got != "1h" {
			t.Errorf("Expected interval 1h, got %s", got)
		}

		payload := [][]interface{}{
			{1700000000000, "100.5", "105.0", "99.0", "104.0", "1250.5", 1700003599999, "0", 0, "0", "0", "0"},
			{1700003600000, "104.0", "108.0", "103.0", "107.5", "980.2", 1700007199999, "0", 0, "0", "0", "0"},
		}
		json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	candles, err := client.GetKlines(context.Background(), "BTCUSDT", market.TF1h, 2)
	if err != nil {
		t.Fatalf("GetKlines failed: %v", err)
	}

	if len(candles) != 2 {
		t.Fatalf("Expected 2 candles, got %d", len(candles))
	}
	if candles[0].Open != 100.5 || candles[0].High != 105.0 || candles[0].Close != 104.0 {
		t.Errorf("First candle mis-parsed: %+v", candles[0])
	}
	if candles[1].OpenTime != 1700003600000 {
		t.Errorf("Expected open time 1700003600000, got %d", candles[1].OpenTime)
	}
}

func TestGetSeriesValidatesOrdering(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := [][]interface{}{
			{1700003600000, "104.0", "108.0", "103.0", "107.5", "980.2", 1700007199999, "0", 0, "0", "0", "0"},
			{1700000000000, "100.5", "105.0", "99.0", "104.0", "1250.5", 1700003599999, "0", 0, "0", "0", "0"},
		}
		json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	if _, err := client.GetSeries(context.Background(), "BTCUSDT", market.TF1h, 2); err == nil {
		t.Error("Expected error for out-of-order klines, got nil")
	}
}

func TestGetKlinesSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	if _, err := client.GetKlines(context.Background(), "NOPE", market.TF1h, 10); err == nil {
		t.Error("Expected API error, got nil")
	}
}

func TestKlineEventDecoding(t *testing.T) {
	raw := []byte(`{"stream":"btcusdt@kline_1h","data":{"s":"BTCUSDT","k":{"t":1700000000000,"T":1700003599999,"i":"1h","o":"100.5","c":"104.0","h":"105.0","l":"99.0","v":"1250.5","x":true}}}`)

	var event klineEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		t.Fatalf("Failed to decode kline event: %v", err)
	}

	k := event.Data.Kline
	if !k.Closed {
		t.Error("Expected closed kline")
	}
	if k.Interval != "1h" || event.Data.Symbol != "BTCUSDT" {
		t.Errorf("Event mis-decoded: %+v", event.Data)
	}
	if parseFloat(k.High) != 105.0 {
		t.Errorf("Expected high 105.0, got %f", parseFloat(k.High))
	}
}
