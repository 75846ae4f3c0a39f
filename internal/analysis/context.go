package analysis

import (
	"flowai-ict-bot/internal/market"
)

// PriceContext locates the latest close relative to the active structures:
// the open gap or unmitigated block containing it, and the most recent
// swing on each side. When several structures contain the price the most
// recently formed one wins.
type PriceContext struct {
	Price         float64     `json:"price"`
	InFVG         *FVG        `json:"inFVG,omitempty"`
	InOrderBlock  *OrderBlock `json:"inOrderBlock,omitempty"`
	LastSwingHigh *SwingPoint `json:"lastSwingHigh,omitempty"`
	LastSwingLow  *SwingPoint `json:"lastSwingLow,omitempty"`
}

// PriceContext evaluates the result's structures against the series' last
// close. Returns nil for an empty series.
func (a *Analyzer) PriceContext(series *market.Series, result *Result) *PriceContext {
	last, ok := series.Last()
	if !ok {
		return nil
	}

	pc := &PriceContext{Price: last.Close}

	for i := range result.FVGs {
		fvg := &result.FVGs[i]
		if !fvg.Filled && a.fvgs.IsPriceInFVG(pc.Price, *fvg) {
			pc.InFVG = fvg
		}
	}

	for i := range result.OrderBlocks {
		ob := &result.OrderBlocks[i]
		if !ob.Mitigated && a.blocks.IsPriceInOrderBlock(pc.Price, *ob) {
			pc.InOrderBlock = ob
		}
	}

	if sw, ok := LatestSwing(result.Swings, SwingHigh, series.Len()-1); ok {
		pc.LastSwingHigh = &sw
	}
	if sw, ok := LatestSwing(result.Swings, SwingLow, series.Len()-1); ok {
		pc.LastSwingLow = &sw
	}

	return pc
}
