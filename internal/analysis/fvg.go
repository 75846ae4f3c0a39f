package analysis

import (
	"fmt"
	"time"

	"flowai-ict-bot/internal/market"
)

// FVGType represents the type of Fair Value Gap
type FVGType string

const (
	BullishFVG FVGType = "bullish"
	BearishFVG FVGType = "bearish"
)

// FVG represents a Fair Value Gap in price action
type FVG struct {
	ID          string
	Symbol      string
	Timeframe   market.Timeframe
	Type        FVGType
	TopPrice    float64
	BottomPrice float64
	StartIndex  int // Index of the first candle of the triple
	EndIndex    int // Index of the third candle of the triple
	CreatedAt   time.Time
	Filled      bool
	FilledAt    *time.Time
	FilledPrice *float64
}

// Size returns the gap height
func (f FVG) Size() float64 {
	return f.TopPrice - f.BottomPrice
}

// FVGDetector detects Fair Value Gaps in candlestick data
type FVGDetector struct {
	minGapPercent float64 // Minimum gap size as percentage of reference price
}

// NewFVGDetector creates a new FVG detector
func NewFVGDetector(minGapPercent float64) *FVGDetector {
	if minGapPercent <= 0 {
		minGapPercent = 0.1 // Default 0.1% minimum gap
	}
	return &FVGDetector{
		minGapPercent: minGapPercent,
	}
}

// DetectFVGs identifies all Fair Value Gaps in the series. Gaps below the
// minimum size are discarded at formation time. Fill status is not evaluated
// here; use UpdateFillStatus on query.
func (fd *FVGDetector) DetectFVGs(series *market.Series) []FVG {
	candles := series.Candles()
	if len(candles) < 3 {
		return nil
	}

	var fvgs []FVG

	for i := 0; i < len(candles)-2; i++ {
		c1 := candles[i]
		c2 := candles[i+1] // Middle candle (gap creator)
		c3 := candles[i+2]

		// Bullish FVG: gap between c1 high and c3 low
		if c1.High < c3.Low {
			gapPercent := ((c3.Low - c1.High) / c1.High) * 100

			if gapPercent >= fd.minGapPercent {
				fvgs = append(fvgs, FVG{
					ID:          fvgID(series.Symbol, series.Timeframe, i),
					Symbol:      series.Symbol,
					Timeframe:   series.Timeframe,
					Type:        BullishFVG,
					TopPrice:    c3.Low,
					BottomPrice: c1.High,
					StartIndex:  i,
					EndIndex:    i + 2,
					CreatedAt:   c2.Time(),
				})
			}
		}

		// Bearish FVG: gap between c1 low and c3 high
		if c1.Low > c3.High {
			gapPercent := ((c1.Low - c3.High) / c3.High) * 100

			if gapPercent >= fd.minGapPercent {
				fvgs = append(fvgs, FVG{
					ID:          fvgID(series.Symbol, series.Timeframe, i),
					Symbol:      series.Symbol,
					Timeframe:   series.Timeframe,
					Type:        BearishFVG,
					TopPrice:    c1.Low,
					BottomPrice: c3.High,
					StartIndex:  i,
					EndIndex:    i + 2,
					CreatedAt:   c2.Time(),
				})
			}
		}
	}

	return fvgs
}

// UpdateFillStatus marks the gap filled the first time a candle after its
// formation covers the full [bottom, top] interval. Evaluated lazily on
// query rather than eagerly per candle.
func (fd *FVGDetector) UpdateFillStatus(fvg *FVG, series *market.Series) {
	if fvg.Filled {
		return
	}

	candles := series.Candles()
	for i := fvg.EndIndex + 1; i < len(candles); i++ {
		c := candles[i]
		if c.Low <= fvg.BottomPrice && c.High >= fvg.TopPrice {
			fvg.Filled = true
			at := c.Time()
			fvg.FilledAt = &at
			price := c.Close
			fvg.FilledPrice = &price
			return
		}
	}
}

// IsPriceInFVG checks if a price is within the gap zone
func (fd *FVGDetector) IsPriceInFVG(price float64, fvg FVG) bool {
	return price >= fvg.BottomPrice && price <= fvg.TopPrice
}

// UnfilledFVGs refreshes fill status against the series and returns only
// gaps that remain open. Multiple unfilled gaps may coexist; overlapping
// gaps are never merged.
func (fd *FVGDetector) UnfilledFVGs(fvgs []FVG, series *market.Series) []FVG {
	var unfilled []FVG
	for i := range fvgs {
		fd.UpdateFillStatus(&fvgs[i], series)
		if !fvgs[i].Filled {
			unfilled = append(unfilled, fvgs[i])
		}
	}
	return unfilled
}

func fvgID(symbol string, timeframe market.Timeframe, index int) string {
	return fmt.Sprintf("%s_%s_fvg_%d", symbol, timeframe, index)
}
