package analysis

import (
	"testing"

	"flowai-ict-bot/internal/market"
)

func TestPriceContextEmptySeries(t *testing.T) {
	analyzer, err := NewAnalyzer(DefaultConfig())
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}

	series, err := market.NewSeries("BTCUSDT", market.TF1h, nil)
	if err != nil {
		t.Fatalf("NewSeries failed: %v", err)
	}

	if pc := analyzer.PriceContext(series, &Result{}); pc != nil {
		t.Errorf("Expected nil context for empty series, got %+v", pc)
	}
}

func TestPriceContextLocatesActiveStructures(t *testing.T) {
	analyzer, err := NewAnalyzer(DefaultConfig())
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}

	series := testSeries(t, []market.Candle{
		tc(100, 101, 99, 100),
		tc(100, 102, 99, 101),
		tc(101, 101.5, 100, 100.5),
	})

	result := &Result{
		Swings: []SwingPoint{
			{Index: 0, Price: 99, Kind: SwingLow},
			{Index: 1, Price: 102, Kind: SwingHigh},
		},
		FVGs: []FVG{
			{Type: BullishFVG, TopPrice: 101, BottomPrice: 100, Filled: true},
			{Type: BullishFVG, TopPrice: 101, BottomPrice: 100},
		},
		OrderBlocks: []OrderBlock{
			{Type: BullishOB, TopPrice: 101, BottomPrice: 100, Mitigated: true},
			{Type: BullishOB, TopPrice: 100.8, BottomPrice: 100.2},
		},
	}

	pc := analyzer.PriceContext(series, result)
	if pc == nil {
		t.Fatal("Expected a price context")
	}

	// Last close is 100.5
	if pc.Price != 100.5 {
		t.Errorf("Expected price 100.5, got %f", pc.Price)
	}
	if pc.InFVG == nil || pc.InFVG.Filled {
		t.Errorf("Expected the open gap, got %+v", pc.InFVG)
	}
	if pc.InOrderBlock == nil || pc.InOrderBlock.Mitigated {
		t.Errorf("Expected the unmitigated block, got %+v", pc.InOrderBlock)
	}
	if pc.LastSwingHigh == nil || pc.LastSwingHigh.Price != 102 {
		t.Errorf("Expected swing high at 102, got %+v", pc.LastSwingHigh)
	}
	if pc.LastSwingLow == nil || pc.LastSwingLow.Price != 99 {
		t.Errorf("Expected swing low at 99, got %+v", pc.LastSwingLow)
	}
}

func TestPriceContextOutsideAllZones(t *testing.T) {
	analyzer, err := NewAnalyzer(DefaultConfig())
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}

	series := testSeries(t, []market.Candle{
		tc(100, 101, 99, 100),
		tc(100, 121, 99, 120),
	})

	result := &Result{
		FVGs:        []FVG{{Type: BullishFVG, TopPrice: 101, BottomPrice: 100}},
		OrderBlocks: []OrderBlock{{Type: BullishOB, TopPrice: 101, BottomPrice: 100}},
	}

	pc := analyzer.PriceContext(series, result)
	if pc == nil {
		t.Fatal("Expected a price context")
	}
	if pc.InFVG != nil || pc.InOrderBlock != nil {
		t.Errorf("Price 120 is outside all zones, got FVG %+v OB %+v", pc.InFVG, pc.InOrderBlock)
	}
}
