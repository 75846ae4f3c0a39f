package analysis

import (
	"time"

	"flowai-ict-bot/internal/market"
)

// OrderBlockType represents the type of Order Block
type OrderBlockType string

const (
	BullishOB OrderBlockType = "bullish"
	BearishOB OrderBlockType = "bearish"
)

// OrderBlock represents the last opposing candle preceding an impulsive move
// that produced a Market Structure Shift
type OrderBlock struct {
	Index       int
	Time        time.Time
	Type        OrderBlockType
	TopPrice    float64
	BottomPrice float64
	BodyRatio   float64
	MSSIndex    int // Index of the shift the block anchors
	Mitigated   bool
}

// OrderBlockDetector finds order blocks anchoring Market Structure Shifts
type OrderBlockDetector struct {
	lookbackForMSS int     // Max candles scanned back from a shift
	minBodyRatio   float64 // Filters indecision candles
}

// NewOrderBlockDetector creates a new order block detector
func NewOrderBlockDetector(lookbackForMSS int, minBodyRatio float64) *OrderBlockDetector {
	if lookbackForMSS < 1 {
		lookbackForMSS = 15
	}
	if minBodyRatio <= 0 {
		minBodyRatio = 0.3
	}
	return &OrderBlockDetector{
		lookbackForMSS: lookbackForMSS,
		minBodyRatio:   minBodyRatio,
	}
}

// DetectOrderBlocks scans backward from each shift for the most recent
// candle whose body opposes the shift direction and meets the body ratio
// floor. A window with no qualifying candle emits nothing for that shift;
// that is a valid no-signal outcome, not an error.
func (od *OrderBlockDetector) DetectOrderBlocks(series *market.Series, mssEvents []MSS) []OrderBlock {
	candles := series.Candles()
	if len(candles) == 0 {
		return nil
	}

	var blocks []OrderBlock

	for _, mss := range mssEvents {
		lowest := mss.Index - od.lookbackForMSS
		if lowest < 0 {
			lowest = 0
		}

		for i := mss.Index - 1; i >= lowest; i-- {
			c := candles[i]

			if c.BodyRatio() < od.minBodyRatio {
				continue
			}

			// A bullish shift is anchored by the last bearish-bodied
			// candle before the impulse, and vice versa.
			if mss.Direction == BullishMSS && c.IsBearish() {
				blocks = append(blocks, OrderBlock{
					Index:       i,
					Time:        c.Time(),
					Type:        BullishOB,
					TopPrice:    c.Open,
					BottomPrice: c.Low,
					BodyRatio:   c.BodyRatio(),
					MSSIndex:    mss.Index,
				})
				break
			}

			if mss.Direction == BearishMSS && c.IsBullish() {
				blocks = append(blocks, OrderBlock{
					Index:       i,
					Time:        c.Time(),
					Type:        BearishOB,
					TopPrice:    c.High,
					BottomPrice: c.Open,
					BodyRatio:   c.BodyRatio(),
					MSSIndex:    mss.Index,
				})
				break
			}
		}
	}

	return blocks
}

// UpdateMitigation marks the block mitigated once any candle after the
// anchoring shift trades back into its range. Recomputed per query against
// the live series.
func (od *OrderBlockDetector) UpdateMitigation(ob *OrderBlock, series *market.Series) {
	if ob.Mitigated {
		return
	}

	candles := series.Candles()
	for i := ob.MSSIndex + 1; i < len(candles); i++ {
		c := candles[i]
		if c.Low <= ob.TopPrice && c.High >= ob.BottomPrice {
			ob.Mitigated = true
			return
		}
	}
}

// IsPriceInOrderBlock checks if a price is within the block's zone
func (od *OrderBlockDetector) IsPriceInOrderBlock(price float64, ob OrderBlock) bool {
	return price >= ob.BottomPrice && price <= ob.TopPrice
}
