package analysis

import (
	"time"

	"flowai-ict-bot/internal/market"
)

// SwingKind represents the type of swing point
type SwingKind string

const (
	SwingHigh SwingKind = "high"
	SwingLow  SwingKind = "low"
)

// SwingPoint represents a local price extreme
type SwingPoint struct {
	Index    int
	Time     time.Time
	Price    float64
	Kind     SwingKind
	Strength int // Widest symmetric window the extreme satisfies
}

// SwingDetector finds swing highs and lows in candlestick data
type SwingDetector struct {
	lookback int // Candles compared on each side
}

// NewSwingDetector creates a new swing detector
func NewSwingDetector(lookback int) *SwingDetector {
	if lookback < 1 {
		lookback = 5 // Default 5-candle swing
	}
	return &SwingDetector{
		lookback: lookback,
	}
}

// DetectSwings identifies all swing points in the series, ordered by index.
// A candle is a swing high when its high is strictly greater than the highs
// of lookback candles on both sides; equal highs are never swings. Candles
// without a full window on either side are never classified, so a series
// shorter than 2*lookback+1 yields an empty result.
func (sd *SwingDetector) DetectSwings(series *market.Series) []SwingPoint {
	candles := series.Candles()
	if len(candles) < 2*sd.lookback+1 {
		return nil
	}

	var swings []SwingPoint

	for i := sd.lookback; i <= len(candles)-1-sd.lookback; i++ {
		if sd.isSwingHigh(candles, i, sd.lookback) {
			swings = append(swings, SwingPoint{
				Index:    i,
				Time:     candles[i].Time(),
				Price:    candles[i].High,
				Kind:     SwingHigh,
				Strength: sd.strength(candles, i, sd.isSwingHigh),
			})
		}

		// A candle may be both a swing high and a swing low when each
		// condition holds independently.
		if sd.isSwingLow(candles, i, sd.lookback) {
			swings = append(swings, SwingPoint{
				Index:    i,
				Time:     candles[i].Time(),
				Price:    candles[i].Low,
				Kind:     SwingLow,
				Strength: sd.strength(candles, i, sd.isSwingLow),
			})
		}
	}

	return swings
}

// isSwingHigh checks the strict symmetric window condition on highs
func (sd *SwingDetector) isSwingHigh(candles []market.Candle, i, window int) bool {
	if i < window || i > len(candles)-1-window {
		return false
	}
	for j := i - window; j <= i+window; j++ {
		if j == i {
			continue
		}
		if candles[j].High >= candles[i].High {
			return false
		}
	}
	return true
}

// isSwingLow checks the strict symmetric window condition on lows
func (sd *SwingDetector) isSwingLow(candles []market.Candle, i, window int) bool {
	if i < window || i > len(candles)-1-window {
		return false
	}
	for j := i - window; j <= i+window; j++ {
		if j == i {
			continue
		}
		if candles[j].Low <= candles[i].Low {
			return false
		}
	}
	return true
}

// strength widens the window until the extreme stops holding or runs out of
// candles, and returns the widest window satisfied. Used to rank major vs
// minor swings.
func (sd *SwingDetector) strength(candles []market.Candle, i int, holds func([]market.Candle, int, int) bool) int {
	window := sd.lookback
	for {
		next := window + 1
		if i < next || i > len(candles)-1-next {
			return window
		}
		if !holds(candles, i, next) {
			return window
		}
		window = next
	}
}

// LatestSwing returns the most recent swing of the given kind at or before
// maxIndex, or false if none exists
func LatestSwing(swings []SwingPoint, kind SwingKind, maxIndex int) (SwingPoint, bool) {
	for i := len(swings) - 1; i >= 0; i-- {
		if swings[i].Kind == kind && swings[i].Index <= maxIndex {
			return swings[i], true
		}
	}
	return SwingPoint{}, false
}
