package analysis

import (
	"flowai-ict-bot/internal/market"
)

// Zone classifies price relative to the equilibrium of the recent range
type Zone string

const (
	PremiumZone     Zone = "premium"
	DiscountZone    Zone = "discount"
	EquilibriumZone Zone = "equilibrium"
)

// PDArray represents premium/discount levels over a recent trading range
type PDArray struct {
	RangeHigh       float64
	RangeLow        float64
	Equilibrium     float64
	Levels          map[float64]float64 // Retracement ratio -> price
	Zone            Zone
	CurrentPrice    float64
	PositionInRange float64 // 0 at range low, 1 at range high
}

// PDArrayCalculator computes premium/discount arrays over a lookback window
type PDArrayCalculator struct {
	lookback int
	levels   []float64
}

// NewPDArrayCalculator creates a new premium/discount calculator
func NewPDArrayCalculator(lookback int, levels []float64) *PDArrayCalculator {
	if lookback < 2 {
		lookback = 60
	}
	if len(levels) == 0 {
		levels = []float64{0.5, 0.618, 0.786}
	}
	return &PDArrayCalculator{
		lookback: lookback,
		levels:   levels,
	}
}

// Calculate computes the range, equilibrium and retracement levels over the
// last lookback candles and classifies the latest close. Pure function of
// the window; recomputed wholly on each call. Returns nil for series shorter
// than two candles or with a degenerate (zero) range.
func (pc *PDArrayCalculator) Calculate(series *market.Series) *PDArray {
	candles := series.Candles()
	if len(candles) < 2 {
		return nil
	}

	start := len(candles) - pc.lookback
	if start < 0 {
		start = 0
	}
	window := candles[start:]

	rangeHigh := window[0].High
	rangeLow := window[0].Low
	for _, c := range window[1:] {
		if c.High > rangeHigh {
			rangeHigh = c.High
		}
		if c.Low < rangeLow {
			rangeLow = c.Low
		}
	}

	rangeSize := rangeHigh - rangeLow
	if rangeSize <= 0 {
		return nil
	}

	current := candles[len(candles)-1].Close
	equilibrium := (rangeHigh + rangeLow) / 2

	levels := make(map[float64]float64, len(pc.levels))
	for _, ratio := range pc.levels {
		levels[ratio] = rangeLow + ratio*rangeSize
	}

	zone := EquilibriumZone
	if current > equilibrium {
		zone = PremiumZone
	} else if current < equilibrium {
		zone = DiscountZone
	}

	return &PDArray{
		RangeHigh:       rangeHigh,
		RangeLow:        rangeLow,
		Equilibrium:     equilibrium,
		Levels:          levels,
		Zone:            zone,
		CurrentPrice:    current,
		PositionInRange: (current - rangeLow) / rangeSize,
	}
}
