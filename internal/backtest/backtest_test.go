package backtest

import (
	"testing"

	"flowai-ict-bot/internal/analysis"
	"flowai-ict-bot/internal/market"

	"github.com/rs/zerolog"
)

func replaySeries(t *testing.T, count int, drift float64) *market.Series {
	t.Helper()

	candles := make([]market.Candle, count)
	base := int64(1700000000000)
	price := 100.0
	for i := range candles {
		open := price
		price += drift
		high := open
		if price > open {
			high = price
		}
		low := price
		if open < price {
			low = open
		}
		candles[i] = market.Candle{
			OpenTime:  base + int64(i)*3600000,
			Open:      open,
			High:      high + 0.2,
			Low:       low - 0.2,
			Close:     price,
			Volume:    10,
			CloseTime: base + int64(i+1)*3600000 - 1,
		}
	}

	series, err := market.NewSeries("BTCUSDT", market.TF1h, candles)
	if err != nil {
		t.Fatalf("NewSeries failed: %v", err)
	}
	return series
}

func replayEngine(t *testing.T, opts Options) *Engine {
	t.Helper()

	analyzer, err := analysis.NewAnalyzer(analysis.DefaultConfig())
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}
	return NewEngine(analyzer, opts, zerolog.Nop())
}

func TestRunRejectsShortSeries(t *testing.T) {
	engine := replayEngine(t, Options{Warmup: 60, Step: 1, Horizon: 12})
	series := replaySeries(t, 30, 0.5)

	if _, err := engine.Run(series); err == nil {
		t.Error("Expected error for series shorter than warmup")
	}
}

func TestRunGradesBiasAgainstForwardMove(t *testing.T) {
	engine := replayEngine(t, Options{Warmup: 40, Step: 5, Horizon: 10})
	series := replaySeries(t, 150, 0.5) // Steady uptrend

	report, err := engine.Run(series)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.CandlesReplayed != 150 {
		t.Errorf("Expected 150 candles replayed, got %d", report.CandlesReplayed)
	}
	if report.BiasSamples+report.NeutralSamples == 0 {
		t.Fatal("Expected at least one walk-forward sample")
	}
	// In a monotone uptrend any non-neutral sample must be bullish and
	// must agree with the forward move
	if report.BiasSamples > 0 && report.BiasAgreements != report.BiasSamples {
		t.Errorf("Expected full agreement in uptrend, got %d/%d", report.BiasAgreements, report.BiasSamples)
	}
	if report.BiasSamples > 0 && report.BiasAgreeRate != 1.0 {
		t.Errorf("Expected agree rate 1.0, got %f", report.BiasAgreeRate)
	}
}

func TestRunTalliesFinalPassEvents(t *testing.T) {
	engine := replayEngine(t, Options{Warmup: 40, Step: 10, Horizon: 5})
	series := replaySeries(t, 120, 0.5)

	report, err := engine.Run(series)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.ConfirmedSweeps > report.Sweeps {
		t.Errorf("Confirmed sweeps %d exceed total %d", report.ConfirmedSweeps, report.Sweeps)
	}
	if report.FilledFVGs > report.FVGs {
		t.Errorf("Filled FVGs %d exceed total %d", report.FilledFVGs, report.FVGs)
	}
	if report.Sweeps > 0 {
		want := float64(report.ConfirmedSweeps) / float64(report.Sweeps)
		if report.SweepConfirmRate != want {
			t.Errorf("Sweep confirm rate %f, want %f", report.SweepConfirmRate, want)
		}
	}
	if report.Duration <= 0 {
		t.Error("Expected a positive replay duration")
	}
}

func TestNewEngineDefaultsOptions(t *testing.T) {
	engine := replayEngine(t, Options{})

	def := DefaultOptions()
	if engine.opts != def {
		t.Errorf("Expected defaulted options %+v, got %+v", def, engine.opts)
	}
}
