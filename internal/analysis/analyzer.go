package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"flowai-ict-bot/internal/market"
)

// ErrInvalidConfig is returned when an ICT parameter is outside its valid
// domain. Rejected at load time, before any candle data is processed.
var ErrInvalidConfig = errors.New("invalid ICT configuration")

// Config holds the ICT detection parameters
type Config struct {
	SwingLookback       int                `json:"swing_lookback"`
	MSSSwingLookback    int                `json:"mss_swing_lookback"`
	MSSBreakPolicy      BreakPolicy        `json:"mss_break_policy"`
	OBLookbackForMSS    int                `json:"ob_lookback_for_mss"`
	OBMinBodyRatio      float64            `json:"ob_min_body_ratio"`
	FVGThresholdPercent float64            `json:"fvg_threshold_percent"`
	PDLookback          int                `json:"pd_lookback"`
	PDRetracementLevels []float64          `json:"pd_retracement_levels"`
	SweepMSSLookback    int                `json:"sweep_mss_lookback"`
	SweepTargetsFVG     bool               `json:"sweep_targets_fvg"`
	HTFTimeframes       []market.Timeframe `json:"htf_timeframes"`
	ConsensusRequired   bool               `json:"consensus_required"`
}

// DefaultConfig returns the standard ICT parameter set
func DefaultConfig() Config {
	return Config{
		SwingLookback:       5,
		MSSSwingLookback:    10,
		MSSBreakPolicy:      BreakOnClose,
		OBLookbackForMSS:    15,
		OBMinBodyRatio:      0.3,
		FVGThresholdPercent: 0.1,
		PDLookback:          60,
		PDRetracementLevels: []float64{0.5, 0.618, 0.786},
		SweepMSSLookback:    10,
		SweepTargetsFVG:     true,
		HTFTimeframes:       []market.Timeframe{market.TF1d, market.TF4h},
		ConsensusRequired:   false,
	}
}

// Validate rejects parameters outside their valid domain
func (c Config) Validate() error {
	if c.SwingLookback < 1 {
		return fmt.Errorf("%w: swing_lookback must be >= 1, got %d", ErrInvalidConfig, c.SwingLookback)
	}
	if c.MSSSwingLookback < 1 {
		return fmt.Errorf("%w: mss_swing_lookback must be >= 1, got %d", ErrInvalidConfig, c.MSSSwingLookback)
	}
	if c.MSSBreakPolicy != BreakOnClose && c.MSSBreakPolicy != BreakOnWick {
		return fmt.Errorf("%w: mss_break_policy must be close or wick, got %q", ErrInvalidConfig, c.MSSBreakPolicy)
	}
	if c.OBLookbackForMSS < 1 {
		return fmt.Errorf("%w: ob_lookback_for_mss must be >= 1, got %d", ErrInvalidConfig, c.OBLookbackForMSS)
	}
	if c.OBMinBodyRatio <= 0 || c.OBMinBodyRatio > 1 {
		return fmt.Errorf("%w: ob_min_body_ratio must be in (0, 1], got %f", ErrInvalidConfig, c.OBMinBodyRatio)
	}
	if c.FVGThresholdPercent <= 0 {
		return fmt.Errorf("%w: fvg_threshold_percent must be > 0, got %f", ErrInvalidConfig, c.FVGThresholdPercent)
	}
	if c.PDLookback < 2 {
		return fmt.Errorf("%w: pd_lookback must be >= 2, got %d", ErrInvalidConfig, c.PDLookback)
	}
	for _, level := range c.PDRetracementLevels {
		if level <= 0 || level >= 1 {
			return fmt.Errorf("%w: retracement level must be in (0, 1), got %f", ErrInvalidConfig, level)
		}
	}
	if c.SweepMSSLookback < 1 {
		return fmt.Errorf("%w: sweep_mss_lookback must be >= 1, got %d", ErrInvalidConfig, c.SweepMSSLookback)
	}
	for _, tf := range c.HTFTimeframes {
		if !tf.Valid() {
			return fmt.Errorf("%w: unknown timeframe %q", ErrInvalidConfig, tf)
		}
	}
	return nil
}

// Result holds every entity produced by one analysis pass over a single
// (symbol, timeframe) series. Entities reference candles by integer index
// only and are discarded wholesale on the next pass.
type Result struct {
	Symbol      string           `json:"symbol"`
	Timeframe   market.Timeframe `json:"timeframe"`
	AnalyzedAt  time.Time        `json:"analyzedAt"`
	CandleCount int              `json:"candleCount"`
	Swings      []SwingPoint     `json:"swings"`
	FVGs        []FVG            `json:"fvgs"`
	OrderBlocks []OrderBlock     `json:"orderBlocks"`
	MSS         MSSResult        `json:"mss"`
	Sweeps      []LiquiditySweep `json:"sweeps"`
	PDArray     *PDArray         `json:"pdArray,omitempty"`
	Bias        TimeframeBias    `json:"bias"`
}

// Analyzer runs the full ICT detection pipeline over candle series
type Analyzer struct {
	cfg        Config
	swings     *SwingDetector
	fvgs       *FVGDetector
	mss        *MSSDetector
	blocks     *OrderBlockDetector
	sweeps     *SweepDetector
	pd         *PDArrayCalculator
	aggregator *BiasAggregator
}

// NewAnalyzer creates an analyzer after validating the configuration
func NewAnalyzer(cfg Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Analyzer{
		cfg:        cfg,
		swings:     NewSwingDetector(cfg.SwingLookback),
		fvgs:       NewFVGDetector(cfg.FVGThresholdPercent),
		mss:        NewMSSDetector(cfg.MSSSwingLookback, cfg.MSSBreakPolicy),
		blocks:     NewOrderBlockDetector(cfg.OBLookbackForMSS, cfg.OBMinBodyRatio),
		sweeps:     NewSweepDetector(cfg.SweepMSSLookback, cfg.SweepTargetsFVG),
		pd:         NewPDArrayCalculator(cfg.PDLookback, cfg.PDRetracementLevels),
		aggregator: NewBiasAggregator(cfg.ConsensusRequired),
	}, nil
}

// Config returns the active parameter set
func (a *Analyzer) Config() Config {
	return a.cfg
}

// Analyze runs one synchronous pass over the series: swings first, then the
// detectors that consume them, then the premium/discount array and the
// timeframe bias. A series too short for a given detector yields empty
// results for that detector, never an error. Deterministic and
// side-effect-free, so re-running the same window yields the same result.
func (a *Analyzer) Analyze(series *market.Series) *Result {
	result := &Result{
		Symbol:      series.Symbol,
		Timeframe:   series.Timeframe,
		AnalyzedAt:  time.Now(),
		CandleCount: series.Len(),
	}

	result.Swings = a.swings.DetectSwings(series)
	result.FVGs = a.fvgs.DetectFVGs(series)
	result.MSS = a.mss.DetectMSS(series, result.Swings)
	result.OrderBlocks = a.blocks.DetectOrderBlocks(series, result.MSS.Events)
	result.Sweeps = a.sweeps.DetectSweeps(series, result.Swings, result.MSS.Events, result.FVGs)
	result.PDArray = a.pd.Calculate(series)
	result.Bias = BiasFromMSS(series.Timeframe, result.MSS)

	for i := range result.FVGs {
		a.fvgs.UpdateFillStatus(&result.FVGs[i], series)
	}
	for i := range result.OrderBlocks {
		a.blocks.UpdateMitigation(&result.OrderBlocks[i], series)
	}

	return result
}

// AnalyzeHTF runs an independent structure pass per higher timeframe in
// parallel and aggregates the biases. A missing or too-short series counts
// as neutral; timeframes never block each other, the only synchronization
// point is the join before aggregation.
func (a *Analyzer) AnalyzeHTF(ctx context.Context, series map[market.Timeframe]*market.Series) (ConsolidatedBias, error) {
	biases := make([]TimeframeBias, len(a.cfg.HTFTimeframes))

	g, ctx := errgroup.WithContext(ctx)
	for i, tf := range a.cfg.HTFTimeframes {
		i, tf := i, tf
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			s, ok := series[tf]
			if !ok || s == nil {
				biases[i] = TimeframeBias{Timeframe: tf, Direction: NeutralBias}
				return nil
			}

			swings := a.swings.DetectSwings(s)
			biases[i] = BiasFromMSS(tf, a.mss.DetectMSS(s, swings))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return ConsolidatedBias{Direction: NeutralBias}, err
	}

	return a.aggregator.Aggregate(biases), nil
}

// SortedTimeframes returns the configured higher timeframes largest first,
// for stable display ordering
func (a *Analyzer) SortedTimeframes() []market.Timeframe {
	tfs := make([]market.Timeframe, len(a.cfg.HTFTimeframes))
	copy(tfs, a.cfg.HTFTimeframes)
	sort.Slice(tfs, func(i, j int) bool {
		return tfs[i].Duration() > tfs[j].Duration()
	})
	return tfs
}
