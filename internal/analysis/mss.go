package analysis

import (
	"time"

	"flowai-ict-bot/internal/market"
)

// StructureState represents the active structural state of a timeframe
type StructureState string

const (
	StructureUndetermined StructureState = "undetermined"
	StructureBullish      StructureState = "bullish"
	StructureBearish      StructureState = "bearish"
)

// BreakPolicy selects which candle price confirms a structure break
type BreakPolicy string

const (
	BreakOnClose BreakPolicy = "close" // Candle close must cross the swing level
	BreakOnWick  BreakPolicy = "wick"  // Candle extreme is enough
)

// MSSDirection represents the direction of a Market Structure Shift
type MSSDirection string

const (
	BullishMSS MSSDirection = "bullish"
	BearishMSS MSSDirection = "bearish"
)

// MSS represents a Market Structure Shift event
type MSS struct {
	Index       int
	Time        time.Time
	Direction   MSSDirection
	BrokenSwing SwingPoint
	BreakPrice  float64 // Price that confirmed the break
}

// MSSResult holds the events of one detection pass together with the final
// structural state, so callers can thread the state explicitly instead of
// keeping it in shared globals.
type MSSResult struct {
	Events []MSS
	State  StructureState
}

// LastMSS returns the most recent shift, or nil if none fired
func (r MSSResult) LastMSS() *MSS {
	if len(r.Events) == 0 {
		return nil
	}
	return &r.Events[len(r.Events)-1]
}

// MSSDetector detects Market Structure Shifts using a per-pass state machine
type MSSDetector struct {
	swingLookback int // Max candle distance between swing and breaking candle
	policy        BreakPolicy
}

// NewMSSDetector creates a new MSS detector
func NewMSSDetector(swingLookback int, policy BreakPolicy) *MSSDetector {
	if swingLookback < 1 {
		swingLookback = 10
	}
	if policy != BreakOnWick {
		policy = BreakOnClose
	}
	return &MSSDetector{
		swingLookback: swingLookback,
		policy:        policy,
	}
}

// DetectMSS walks the series once and fires a shift whenever the breaking
// price crosses the most recent unbroken opposite swing within the lookback
// window. Each firing flips the structural state and consumes the broken
// swing so it can never retrigger. At most one shift fires per candle;
// while undetermined, a candle breaking both sides resolves by its close
// direction.
func (md *MSSDetector) DetectMSS(series *market.Series, swings []SwingPoint) MSSResult {
	result := MSSResult{State: StructureUndetermined}
	candles := series.Candles()
	if len(candles) == 0 || len(swings) == 0 {
		return result
	}

	consumed := make(map[int]bool, len(swings)) // Keyed by position in swings

	for i := 0; i < len(candles); i++ {
		switch result.State {
		case StructureBullish:
			if mss, ok := md.tryBreak(candles, swings, consumed, i, SwingLow); ok {
				result.Events = append(result.Events, mss)
				result.State = StructureBearish
			}
		case StructureBearish:
			if mss, ok := md.tryBreak(candles, swings, consumed, i, SwingHigh); ok {
				result.Events = append(result.Events, mss)
				result.State = StructureBullish
			}
		case StructureUndetermined:
			up, upOK := md.tryBreakPeek(candles, swings, consumed, i, SwingHigh)
			down, downOK := md.tryBreakPeek(candles, swings, consumed, i, SwingLow)

			if upOK && downOK {
				// Both sides broken on one candle: the close decides.
				if candles[i].IsBearish() {
					upOK = false
				} else {
					downOK = false
				}
			}
			if upOK {
				consumed[up.swingPos] = true
				result.Events = append(result.Events, up.mss)
				result.State = StructureBullish
			} else if downOK {
				consumed[down.swingPos] = true
				result.Events = append(result.Events, down.mss)
				result.State = StructureBearish
			}
		}
	}

	return result
}

type breakCandidate struct {
	mss      MSS
	swingPos int
}

// tryBreak fires and consumes the break of the most recent unbroken swing of
// the given kind, if any
func (md *MSSDetector) tryBreak(candles []market.Candle, swings []SwingPoint, consumed map[int]bool, i int, kind SwingKind) (MSS, bool) {
	cand, ok := md.tryBreakPeek(candles, swings, consumed, i, kind)
	if !ok {
		return MSS{}, false
	}
	consumed[cand.swingPos] = true
	return cand.mss, true
}

// tryBreakPeek evaluates the break condition without consuming the swing
func (md *MSSDetector) tryBreakPeek(candles []market.Candle, swings []SwingPoint, consumed map[int]bool, i int, kind SwingKind) (breakCandidate, bool) {
	// Most recent unconsumed swing of this kind within the lookback window
	pos := -1
	for s := len(swings) - 1; s >= 0; s-- {
		sw := swings[s]
		if sw.Kind != kind || consumed[s] || sw.Index >= i {
			continue
		}
		if i-sw.Index > md.swingLookback {
			break
		}
		pos = s
		break
	}
	if pos < 0 {
		return breakCandidate{}, false
	}

	sw := swings[pos]
	c := candles[i]

	var broken bool
	var breakPrice float64
	var direction MSSDirection

	if kind == SwingHigh {
		breakPrice = c.Close
		if md.policy == BreakOnWick {
			breakPrice = c.High
		}
		broken = breakPrice > sw.Price
		direction = BullishMSS
	} else {
		breakPrice = c.Close
		if md.policy == BreakOnWick {
			breakPrice = c.Low
		}
		broken = breakPrice < sw.Price
		direction = BearishMSS
	}

	if !broken {
		return breakCandidate{}, false
	}

	return breakCandidate{
		mss: MSS{
			Index:       i,
			Time:        c.Time(),
			Direction:   direction,
			BrokenSwing: sw,
			BreakPrice:  breakPrice,
		},
		swingPos: pos,
	}, true
}
