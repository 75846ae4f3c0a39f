package analysis

import (
	"testing"

	"flowai-ict-bot/internal/market"
)

// tc builds a test candle; OpenTime is assigned by testSeries
func tc(open, high, low, close float64) market.Candle {
	return market.Candle{Open: open, High: high, Low: low, Close: close, Volume: 100}
}

// testSeries wraps candles in a series with minute-spaced timestamps
func testSeries(t *testing.T, candles []market.Candle) *market.Series {
	t.Helper()

	for i := range candles {
		candles[i].OpenTime = int64(i+1) * 60000
		candles[i].CloseTime = int64(i+2)*60000 - 1
	}

	series, err := market.NewSeries("BTCUSDT", market.TF1h, candles)
	if err != nil {
		t.Fatalf("failed to build test series: %v", err)
	}
	return series
}
