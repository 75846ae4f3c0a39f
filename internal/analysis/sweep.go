package analysis

import (
	"time"

	"flowai-ict-bot/internal/market"
)

// SweepDirection represents the direction of the raw liquidity grab
type SweepDirection string

const (
	UpsideSweep   SweepDirection = "upside"   // Wick above a swing high
	DownsideSweep SweepDirection = "downside" // Wick below a swing low
)

// LiquiditySweep represents a stop hunt beyond a swing extreme. Candidates
// are always recorded; Confirmed distinguishes sweeps followed by an
// opposite-direction structure shift from raw excursions.
type LiquiditySweep struct {
	Index         int
	Time          time.Time
	Direction     SweepDirection
	SweptSwing    SwingPoint
	WickPrice     float64 // Extreme reached beyond the swing level
	ClosePrice    float64 // Close back inside the prior range
	Confirmed     bool
	ConfirmingMSS *MSS
}

// SweepDetector detects liquidity sweeps of recent swing extremes
type SweepDetector struct {
	mssLookback      int  // Candles after the sweep in which a shift confirms it
	requireFVGTarget bool // Confirmation also needs a retrace into a post-sweep FVG
}

// NewSweepDetector creates a new liquidity sweep detector
func NewSweepDetector(mssLookback int, requireFVGTarget bool) *SweepDetector {
	if mssLookback < 1 {
		mssLookback = 10
	}
	return &SweepDetector{
		mssLookback:      mssLookback,
		requireFVGTarget: requireFVGTarget,
	}
}

// DetectSweeps finds candles whose wick exceeds the most recent unswept
// swing extreme while closing back inside the prior range. Candidate
// detection is always wick-based; confirmation reuses the events of the MSS
// detector, whichever break policy that ran with. Each swing can be swept
// once.
func (sd *SweepDetector) DetectSweeps(series *market.Series, swings []SwingPoint, mssEvents []MSS, fvgs []FVG) []LiquiditySweep {
	candles := series.Candles()
	if len(candles) == 0 || len(swings) == 0 {
		return nil
	}

	swept := make(map[int]bool, len(swings)) // Keyed by position in swings
	var sweeps []LiquiditySweep

	for i := 0; i < len(candles); i++ {
		c := candles[i]

		if pos, ok := latestUnswept(swings, swept, SwingHigh, i); ok {
			sw := swings[pos]
			if c.High > sw.Price && c.Close < sw.Price {
				swept[pos] = true
				sweeps = append(sweeps, sd.buildSweep(candles, i, UpsideSweep, sw, c.High, mssEvents, fvgs))
			}
		}

		if pos, ok := latestUnswept(swings, swept, SwingLow, i); ok {
			sw := swings[pos]
			if c.Low < sw.Price && c.Close > sw.Price {
				swept[pos] = true
				sweeps = append(sweeps, sd.buildSweep(candles, i, DownsideSweep, sw, c.Low, mssEvents, fvgs))
			}
		}
	}

	return sweeps
}

// buildSweep records the candidate and attempts confirmation
func (sd *SweepDetector) buildSweep(candles []market.Candle, index int, direction SweepDirection, sw SwingPoint, wick float64, mssEvents []MSS, fvgs []FVG) LiquiditySweep {
	sweep := LiquiditySweep{
		Index:      index,
		Time:       candles[index].Time(),
		Direction:  direction,
		SweptSwing: sw,
		WickPrice:  wick,
		ClosePrice: candles[index].Close,
	}

	// An upside grab confirms on a bearish shift, and vice versa.
	want := BearishMSS
	if direction == DownsideSweep {
		want = BullishMSS
	}

	for m := range mssEvents {
		mss := mssEvents[m]
		if mss.Index <= index || mss.Index-index > sd.mssLookback {
			continue
		}
		if mss.Direction != want {
			continue
		}
		if sd.requireFVGTarget && !retracedIntoPostSweepFVG(candles, fvgs, index, mss.Index) {
			continue
		}
		sweep.Confirmed = true
		sweep.ConfirmingMSS = &mssEvents[m]
		break
	}

	return sweep
}

// latestUnswept returns the position of the most recent unswept swing of the
// given kind formed before candle i
func latestUnswept(swings []SwingPoint, swept map[int]bool, kind SwingKind, i int) (int, bool) {
	for s := len(swings) - 1; s >= 0; s-- {
		if swings[s].Kind != kind || swings[s].Index >= i || swept[s] {
			continue
		}
		return s, true
	}
	return 0, false
}

// retracedIntoPostSweepFVG checks whether price traded into any gap formed at
// or after the sweep before the confirming shift fired
func retracedIntoPostSweepFVG(candles []market.Candle, fvgs []FVG, sweepIndex, mssIndex int) bool {
	for _, fvg := range fvgs {
		if fvg.StartIndex < sweepIndex {
			continue
		}
		for j := fvg.EndIndex + 1; j <= mssIndex && j < len(candles); j++ {
			if candles[j].Low <= fvg.TopPrice && candles[j].High >= fvg.BottomPrice {
				return true
			}
		}
	}
	return false
}
