package scanner

import (
	"time"

	"flowai-ict-bot/internal/analysis"
	"flowai-ict-bot/internal/market"
)

// SymbolScan is the full structural picture for one symbol: the lower
// timeframe detection pass plus the consolidated higher timeframe bias.
type SymbolScan struct {
	Symbol    string                    `json:"symbol"`
	Timeframe market.Timeframe          `json:"timeframe"`
	Result    *analysis.Result          `json:"result"`
	Context   *analysis.PriceContext    `json:"context,omitempty"`
	HTFBias   analysis.ConsolidatedBias `json:"htfBias"`
	Cached    bool                      `json:"cached"`
	ScannedAt time.Time                 `json:"scannedAt"`
}

// ScanResult aggregates all symbol scans from one cycle
type ScanResult struct {
	ScanID         string        `json:"scanId"`
	StartTime      time.Time     `json:"startTime"`
	EndTime        time.Time     `json:"endTime"`
	Duration       time.Duration `json:"duration"`
	SymbolsScanned int           `json:"symbolsScanned"`
	Errors         int           `json:"errors"`
	Scans          []SymbolScan  `json:"scans"`
}

// Scan returns the scan for a symbol, or nil when the symbol was not
// covered by this cycle
func (sr *ScanResult) Scan(symbol string) *SymbolScan {
	for i := range sr.Scans {
		if sr.Scans[i].Symbol == symbol {
			return &sr.Scans[i]
		}
	}
	return nil
}
