package analysis

import (
	"testing"

	"flowai-ict-bot/internal/market"
)

func tfBias(tf market.Timeframe, dir BiasDirection) TimeframeBias {
	return TimeframeBias{Timeframe: tf, Direction: dir}
}

// TestConsensusAgreement: two bullish higher timeframes with consensus
// required yield a bullish consolidated bias
func TestConsensusAgreement(t *testing.T) {
	agg := NewBiasAggregator(true)

	result := agg.Aggregate([]TimeframeBias{
		tfBias(market.TF1d, BullishBias),
		tfBias(market.TF4h, BullishBias),
	})

	if result.Direction != BullishBias {
		t.Errorf("Expected bullish direction, got %s", result.Direction)
	}
	if !result.Consensus {
		t.Error("Expected consensus true")
	}
}

// TestConsensusRequiredBlocksDisagreement verifies any disagreement or
// neutral timeframe forces a neutral result
func TestConsensusRequiredBlocksDisagreement(t *testing.T) {
	agg := NewBiasAggregator(true)

	tests := []struct {
		name   string
		biases []TimeframeBias
	}{
		{
			name: "opposing directions",
			biases: []TimeframeBias{
				tfBias(market.TF1d, BullishBias),
				tfBias(market.TF4h, BearishBias),
			},
		},
		{
			name: "one neutral",
			biases: []TimeframeBias{
				tfBias(market.TF1d, BullishBias),
				tfBias(market.TF4h, NeutralBias),
			},
		},
		{
			name: "all neutral",
			biases: []TimeframeBias{
				tfBias(market.TF1d, NeutralBias),
				tfBias(market.TF4h, NeutralBias),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := agg.Aggregate(tt.biases)
			if result.Direction != NeutralBias {
				t.Errorf("Expected neutral direction, got %s", result.Direction)
			}
			if result.Consensus {
				t.Error("Expected consensus false")
			}
		})
	}
}

// TestMajorityVote verifies aggregation without mandatory consensus
func TestMajorityVote(t *testing.T) {
	agg := NewBiasAggregator(false)

	tests := []struct {
		name     string
		biases   []TimeframeBias
		expected BiasDirection
	}{
		{
			name: "bearish majority over neutral",
			biases: []TimeframeBias{
				tfBias(market.TF1d, BearishBias),
				tfBias(market.TF4h, BearishBias),
				tfBias(market.TF1h, NeutralBias),
			},
			expected: BearishBias,
		},
		{
			name: "tie resolves to neutral",
			biases: []TimeframeBias{
				tfBias(market.TF1d, BullishBias),
				tfBias(market.TF4h, BearishBias),
			},
			expected: NeutralBias,
		},
		{
			name: "single bullish timeframe",
			biases: []TimeframeBias{
				tfBias(market.TF1d, BullishBias),
				tfBias(market.TF4h, NeutralBias),
			},
			expected: BullishBias,
		},
		{
			name:     "no timeframes",
			biases:   nil,
			expected: NeutralBias,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := agg.Aggregate(tt.biases)
			if result.Direction != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, result.Direction)
			}
		})
	}
}

// TestBiasFromMSS derives timeframe bias from the last shift
func TestBiasFromMSS(t *testing.T) {
	neutral := BiasFromMSS(market.TF4h, MSSResult{State: StructureUndetermined})
	if neutral.Direction != NeutralBias || neutral.LastMSS != nil {
		t.Error("No MSS observed should yield a neutral bias without a last shift")
	}

	result := MSSResult{
		Events: []MSS{
			{Index: 3, Direction: BullishMSS},
			{Index: 9, Direction: BearishMSS},
		},
		State: StructureBearish,
	}

	bias := BiasFromMSS(market.TF4h, result)
	if bias.Direction != BearishBias {
		t.Errorf("Expected bearish bias from last MSS, got %s", bias.Direction)
	}
	if bias.LastMSS == nil || bias.LastMSS.Index != 9 {
		t.Error("LastMSS should reference the most recent shift")
	}
}
