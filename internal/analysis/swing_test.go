package analysis

import (
	"reflect"
	"testing"

	"flowai-ict-bot/internal/market"
)

// TestSwingHighDetection verifies the symmetric strict-window rule
func TestSwingHighDetection(t *testing.T) {
	detector := NewSwingDetector(2)

	// Highs [10,12,15,11,9]: index 2 is strictly above every high within 2
	// candles on both sides.
	series := testSeries(t, []market.Candle{
		tc(9, 10, 8, 9.5),
		tc(10, 12, 9, 11),
		tc(11, 15, 10, 14),
		tc(10, 11, 9, 10),
		tc(9, 9, 7, 8),
	})

	swings := detector.DetectSwings(series)

	highs := filterSwings(swings, SwingHigh)
	if len(highs) != 1 {
		t.Fatalf("Expected 1 swing high, got %d", len(highs))
	}
	if highs[0].Index != 2 {
		t.Errorf("Expected swing high at index 2, got %d", highs[0].Index)
	}
	if highs[0].Price != 15 {
		t.Errorf("Expected swing high price 15, got %f", highs[0].Price)
	}
	if highs[0].Strength != 2 {
		t.Errorf("Expected strength 2, got %d", highs[0].Strength)
	}
}

// TestSwingLowDetection verifies the mirror condition on lows
func TestSwingLowDetection(t *testing.T) {
	detector := NewSwingDetector(1)

	series := testSeries(t, []market.Candle{
		tc(9, 10, 8, 9),
		tc(7, 9, 4, 8),
		tc(8, 10, 6, 9),
	})

	swings := detector.DetectSwings(series)

	lows := filterSwings(swings, SwingLow)
	if len(lows) != 1 {
		t.Fatalf("Expected 1 swing low, got %d", len(lows))
	}
	if lows[0].Index != 1 || lows[0].Price != 4 {
		t.Errorf("Expected swing low at index 1 price 4, got index %d price %f", lows[0].Index, lows[0].Price)
	}
}

// TestEqualHighsAreNotSwings verifies that ties never qualify
func TestEqualHighsAreNotSwings(t *testing.T) {
	detector := NewSwingDetector(1)

	series := testSeries(t, []market.Candle{
		tc(9, 10, 8, 9),
		tc(12, 15, 11, 14),
		tc(12, 15, 11, 13),
		tc(9, 10, 8, 9),
	})

	if highs := filterSwings(detector.DetectSwings(series), SwingHigh); len(highs) != 0 {
		t.Errorf("Expected no swing highs for equal highs, got %d", len(highs))
	}
}

// TestInsufficientDataReturnsEmpty verifies the short-series path returns
// an empty result, not an error
func TestInsufficientDataReturnsEmpty(t *testing.T) {
	detector := NewSwingDetector(5)

	series := testSeries(t, []market.Candle{
		tc(9, 10, 8, 9),
		tc(10, 11, 9, 10),
		tc(11, 12, 10, 11),
	})

	if swings := detector.DetectSwings(series); len(swings) != 0 {
		t.Errorf("Expected empty swing list for short series, got %d", len(swings))
	}
}

// TestSwingDetectionIsIdempotent verifies re-running yields identical output
func TestSwingDetectionIsIdempotent(t *testing.T) {
	detector := NewSwingDetector(2)

	series := testSeries(t, []market.Candle{
		tc(9, 10, 8, 9.5),
		tc(10, 12, 9, 11),
		tc(11, 15, 10, 14),
		tc(10, 11, 9, 10),
		tc(9, 9, 7, 8),
		tc(8, 10, 6, 9),
		tc(9, 11, 8, 10),
	})

	first := detector.DetectSwings(series)
	second := detector.DetectSwings(series)

	if !reflect.DeepEqual(first, second) {
		t.Error("DetectSwings is not idempotent: two runs on the same input differ")
	}
}

// TestSwingStrengthExtension verifies strength reports the widest satisfied window
func TestSwingStrengthExtension(t *testing.T) {
	detector := NewSwingDetector(1)

	// Index 3 is the extreme of the entire 7-candle window, so a 1-candle
	// swing extends to strength 3.
	series := testSeries(t, []market.Candle{
		tc(1, 2, 0.5, 1.5),
		tc(2, 3, 1.5, 2.5),
		tc(3, 4, 2.5, 3.5),
		tc(4, 10, 3.5, 9),
		tc(3, 4.5, 2.6, 3.6),
		tc(2, 3.5, 1.6, 2.6),
		tc(1, 2.5, 0.6, 1.6),
	})

	highs := filterSwings(detector.DetectSwings(series), SwingHigh)
	if len(highs) != 1 {
		t.Fatalf("Expected 1 swing high, got %d", len(highs))
	}
	if highs[0].Strength != 3 {
		t.Errorf("Expected strength 3, got %d", highs[0].Strength)
	}
}

func filterSwings(swings []SwingPoint, kind SwingKind) []SwingPoint {
	var out []SwingPoint
	for _, s := range swings {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// BenchmarkDetectSwings benchmarks swing detection over a long series
func BenchmarkDetectSwings(b *testing.B) {
	detector := NewSwingDetector(5)

	candles := make([]market.Candle, 1000)
	for i := range candles {
		base := float64(100 + i%17)
		candles[i] = market.Candle{
			OpenTime:  int64(i+1) * 60000,
			Open:      base,
			High:      base + 2,
			Low:       base - 2,
			Close:     base + 1,
			CloseTime: int64(i+2)*60000 - 1,
		}
	}
	series, err := market.NewSeries("BTCUSDT", market.TF1h, candles)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		detector.DetectSwings(series)
	}
}
