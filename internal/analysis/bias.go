package analysis

import (
	"flowai-ict-bot/internal/market"
)

// BiasDirection represents a directional trading bias
type BiasDirection string

const (
	BullishBias BiasDirection = "bullish"
	BearishBias BiasDirection = "bearish"
	NeutralBias BiasDirection = "neutral"
)

// TimeframeBias is the structural bias of a single timeframe, derived from
// its most recent Market Structure Shift. Neutral until a shift is observed.
type TimeframeBias struct {
	Timeframe market.Timeframe `json:"timeframe"`
	Direction BiasDirection    `json:"direction"`
	LastMSS   *MSS             `json:"lastMSS,omitempty"`
}

// ConsolidatedBias is the aggregation of per-timeframe biases into one
// directional context
type ConsolidatedBias struct {
	Direction    BiasDirection   `json:"direction"`
	PerTimeframe []TimeframeBias `json:"perTimeframe"`
	Consensus    bool            `json:"consensus"` // All configured timeframes agree and none are neutral
}

// BiasFromMSS derives a timeframe bias from an MSS detection pass
func BiasFromMSS(timeframe market.Timeframe, result MSSResult) TimeframeBias {
	bias := TimeframeBias{
		Timeframe: timeframe,
		Direction: NeutralBias,
	}

	if last := result.LastMSS(); last != nil {
		bias.LastMSS = last
		if last.Direction == BullishMSS {
			bias.Direction = BullishBias
		} else {
			bias.Direction = BearishBias
		}
	}

	return bias
}

// BiasAggregator combines per-timeframe biases into a consolidated bias
type BiasAggregator struct {
	consensusRequired bool
}

// NewBiasAggregator creates a new bias aggregator
func NewBiasAggregator(consensusRequired bool) *BiasAggregator {
	return &BiasAggregator{
		consensusRequired: consensusRequired,
	}
}

// Aggregate consolidates the given biases. With consensus required the
// result is directional only when every timeframe agrees and none are
// neutral; otherwise it is the majority vote among non-neutral timeframes
// with ties resolved to neutral.
func (ba *BiasAggregator) Aggregate(biases []TimeframeBias) ConsolidatedBias {
	result := ConsolidatedBias{
		Direction:    NeutralBias,
		PerTimeframe: biases,
	}

	if len(biases) == 0 {
		return result
	}

	bullish, bearish := 0, 0
	for _, b := range biases {
		switch b.Direction {
		case BullishBias:
			bullish++
		case BearishBias:
			bearish++
		}
	}

	if bullish == len(biases) {
		result.Consensus = true
	} else if bearish == len(biases) {
		result.Consensus = true
	}

	if ba.consensusRequired {
		if result.Consensus {
			result.Direction = biases[0].Direction
		}
		return result
	}

	if bullish > bearish {
		result.Direction = BullishBias
	} else if bearish > bullish {
		result.Direction = BearishBias
	}

	return result
}
