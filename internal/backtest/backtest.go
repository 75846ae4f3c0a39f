// Package backtest replays historical candles through the detection
// pipeline and reports structural statistics: event counts, sweep
// confirmation rates, and how often the derived bias agreed with the
// subsequent price move. It places no trades.
package backtest

import (
	"fmt"
	"time"

	"flowai-ict-bot/internal/analysis"
	"flowai-ict-bot/internal/market"

	"github.com/rs/zerolog"
)

// Options controls the walk-forward replay
type Options struct {
	Warmup  int // Candles before the first evaluation
	Step    int // Candles between evaluations
	Horizon int // Forward candles used to grade each bias sample
}

// DefaultOptions returns replay settings suited to intraday windows
func DefaultOptions() Options {
	return Options{
		Warmup:  60,
		Step:    1,
		Horizon: 12,
	}
}

// Report summarizes a replay over one series
type Report struct {
	Symbol          string           `json:"symbol"`
	Timeframe       market.Timeframe `json:"timeframe"`
	CandlesReplayed int              `json:"candlesReplayed"`
	Duration        time.Duration    `json:"duration"`

	// Final-pass event totals
	Swings           int     `json:"swings"`
	FVGs             int     `json:"fvgs"`
	FilledFVGs       int     `json:"filledFVGs"`
	OrderBlocks      int     `json:"orderBlocks"`
	MitigatedOBs     int     `json:"mitigatedOBs"`
	BullishMSS       int     `json:"bullishMSS"`
	BearishMSS       int     `json:"bearishMSS"`
	Sweeps           int     `json:"sweeps"`
	ConfirmedSweeps  int     `json:"confirmedSweeps"`
	SweepConfirmRate float64 `json:"sweepConfirmRate"`

	// Walk-forward bias grading
	BiasSamples    int     `json:"biasSamples"`
	BiasAgreements int     `json:"biasAgreements"`
	BiasAgreeRate  float64 `json:"biasAgreeRate"`
	NeutralSamples int     `json:"neutralSamples"`
}

// Engine replays candle history through an analyzer
type Engine struct {
	analyzer *analysis.Analyzer
	opts     Options
	logger   zerolog.Logger
}

// NewEngine creates a replay engine. Non-positive option fields fall back
// to defaults.
func NewEngine(analyzer *analysis.Analyzer, opts Options, logger zerolog.Logger) *Engine {
	def := DefaultOptions()
	if opts.Warmup <= 0 {
		opts.Warmup = def.Warmup
	}
	if opts.Step <= 0 {
		opts.Step = def.Step
	}
	if opts.Horizon <= 0 {
		opts.Horizon = def.Horizon
	}

	return &Engine{
		analyzer: analyzer,
		opts:     opts,
		logger:   logger.With().Str("component", "Backtest").Logger(),
	}
}

// Run replays the series and grades each intermediate bias against the
// move over the following horizon candles
func (e *Engine) Run(series *market.Series) (*Report, error) {
	if series.Len() <= e.opts.Warmup {
		return nil, fmt.Errorf("series too short: %d candles, warmup is %d", series.Len(), e.opts.Warmup)
	}

	start := time.Now()
	report := &Report{
		Symbol:          series.Symbol,
		Timeframe:       series.Timeframe,
		CandlesReplayed: series.Len(),
	}

	// Walk forward: analyze each prefix and grade the bias it produced
	for i := e.opts.Warmup; i+e.opts.Horizon < series.Len(); i += e.opts.Step {
		prefix, err := market.NewSeries(series.Symbol, series.Timeframe, series.Slice(0, i+1))
		if err != nil {
			return nil, fmt.Errorf("slicing replay window: %w", err)
		}

		result := e.analyzer.Analyze(prefix)
		e.gradeBias(report, series, i, result.Bias.Direction)
	}

	if report.BiasSamples > 0 {
		report.BiasAgreeRate = float64(report.BiasAgreements) / float64(report.BiasSamples)
	}

	e.tallyEvents(report, e.analyzer.Analyze(series))

	report.Duration = time.Since(start)
	e.logger.Info().
		Str("symbol", report.Symbol).
		Int("candles", report.CandlesReplayed).
		Int("bias_samples", report.BiasSamples).
		Float64("bias_agree_rate", report.BiasAgreeRate).
		Float64("sweep_confirm_rate", report.SweepConfirmRate).
		Dur("duration", report.Duration).
		Msg("Replay completed")

	return report, nil
}

// gradeBias scores one walk-forward sample: a bullish bias agrees when the
// close rises over the horizon, bearish when it falls. Neutral samples are
// counted separately and never graded.
func (e *Engine) gradeBias(report *Report, series *market.Series, index int, bias analysis.BiasDirection) {
	if bias == analysis.NeutralBias {
		report.NeutralSamples++
		return
	}

	now := series.At(index)
	future := series.At(index + e.opts.Horizon)

	report.BiasSamples++
	move := future.Close - now.Close
	if (bias == analysis.BullishBias && move > 0) || (bias == analysis.BearishBias && move < 0) {
		report.BiasAgreements++
	}
}

func (e *Engine) tallyEvents(report *Report, result *analysis.Result) {
	report.Swings = len(result.Swings)
	report.FVGs = len(result.FVGs)
	for _, fvg := range result.FVGs {
		if fvg.Filled {
			report.FilledFVGs++
		}
	}
	report.OrderBlocks = len(result.OrderBlocks)
	for _, ob := range result.OrderBlocks {
		if ob.Mitigated {
			report.MitigatedOBs++
		}
	}
	for _, mss := range result.MSS.Events {
		if mss.Direction == analysis.BullishMSS {
			report.BullishMSS++
		} else {
			report.BearishMSS++
		}
	}
	report.Sweeps = len(result.Sweeps)
	for _, sweep := range result.Sweeps {
		if sweep.Confirmed {
			report.ConfirmedSweeps++
		}
	}
	if report.Sweeps > 0 {
		report.SweepConfirmRate = float64(report.ConfirmedSweeps) / float64(report.Sweeps)
	}
}
