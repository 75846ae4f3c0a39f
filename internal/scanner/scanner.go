// Package scanner runs the ICT detection pipeline across the configured
// symbols on a fixed interval and keeps the latest results for the API.
package scanner

import (
	"context"
	"sort"
	"sync"
	"time"

	"flowai-ict-bot/config"
	"flowai-ict-bot/internal/analysis"
	"flowai-ict-bot/internal/binance"
	"flowai-ict-bot/internal/cache"
	"flowai-ict-bot/internal/market"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CandleSource fetches candle windows for analysis. Implemented by the
// exchange client; a cache-backed wrapper satisfies it too.
type CandleSource interface {
	GetKlines(ctx context.Context, symbol string, timeframe market.Timeframe, limit int) ([]market.Candle, error)
}

// Scanner orchestrates structural analysis across multiple symbols
type Scanner struct {
	source      CandleSource
	analyzer    *analysis.Analyzer
	resultCache *cache.ResultCache
	candleCache *cache.CandleCache // nil when Redis is disabled
	config      config.ScannerConfig
	binanceCfg  config.BinanceConfig
	logger      zerolog.Logger
	stopChan    chan struct{}
	wg          sync.WaitGroup
	mu          sync.RWMutex
	lastResult  *ScanResult

	// Live candle windows maintained by the kline stream. Seeded on first
	// fetch, appended to as candles close, so scans skip the REST round trip.
	windowsMu sync.Mutex
	windows   map[string][]market.Candle
}

// NewScanner creates a new scanner instance
func NewScanner(
	source CandleSource,
	analyzer *analysis.Analyzer,
	candleCache *cache.CandleCache,
	cfg config.ScannerConfig,
	binanceCfg config.BinanceConfig,
	logger zerolog.Logger,
) *Scanner {
	return &Scanner{
		source:      source,
		analyzer:    analyzer,
		resultCache: cache.NewResultCache(time.Duration(cfg.CacheTTL) * time.Second),
		candleCache: candleCache,
		config:      cfg,
		binanceCfg:  binanceCfg,
		logger:      logger.With().Str("component", "Scanner").Logger(),
		stopChan:    make(chan struct{}),
		windows:     make(map[string][]market.Candle),
	}
}

// Start begins the background scan loop
func (sc *Scanner) Start() {
	if !sc.config.Enabled {
		sc.logger.Info().Msg("Scanner is disabled")
		return
	}

	sc.wg.Add(1)
	go sc.runScanLoop()
	sc.logger.Info().
		Int("symbols", len(sc.config.Symbols)).
		Str("timeframe", sc.config.Timeframe).
		Int("interval_seconds", sc.config.ScanInterval).
		Msg("Scanner started")
}

// Stop halts the scan loop and waits for in-flight work
func (sc *Scanner) Stop() {
	close(sc.stopChan)
	sc.wg.Wait()
}

func (sc *Scanner) runScanLoop() {
	defer sc.wg.Done()

	ticker := time.NewTicker(time.Duration(sc.config.ScanInterval) * time.Second)
	defer ticker.Stop()

	// Run immediately
	sc.scan()

	for {
		select {
		case <-ticker.C:
			sc.scan()
		case <-sc.stopChan:
			sc.logger.Info().Msg("Scanner stopped")
			return
		}
	}
}

// Scan executes a single scan cycle (public method for manual triggering)
func (sc *Scanner) Scan() *ScanResult {
	return sc.scan()
}

func (sc *Scanner) scan() *ScanResult {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	startTime := time.Now()
	scanID := uuid.New().String()

	sc.logger.Debug().Str("scan_id", scanID).Msg("Starting scan")

	symbols := sc.config.Symbols
	scanChan := make(chan SymbolScan, len(symbols))
	errChan := make(chan error, len(symbols))

	// Worker pool for concurrent scanning
	symbolChan := make(chan string, len(symbols))
	var wg sync.WaitGroup

	workers := sc.config.WorkerCount
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go sc.worker(ctx, symbolChan, scanChan, errChan, &wg)
	}

	go func() {
		for _, symbol := range symbols {
			select {
			case symbolChan <- symbol:
			case <-ctx.Done():
			}
		}
		close(symbolChan)
	}()

	go func() {
		wg.Wait()
		close(scanChan)
		close(errChan)
	}()

	scans := make([]SymbolScan, 0, len(symbols))
	for scan := range scanChan {
		scans = append(scans, scan)
	}
	errors := 0
	for range errChan {
		errors++
	}

	sort.Slice(scans, func(i, j int) bool {
		return scans[i].Symbol < scans[j].Symbol
	})

	result := &ScanResult{
		ScanID:         scanID,
		StartTime:      startTime,
		EndTime:        time.Now(),
		Duration:       time.Since(startTime),
		SymbolsScanned: len(symbols),
		Errors:         errors,
		Scans:          scans,
	}

	sc.mu.Lock()
	sc.lastResult = result
	sc.mu.Unlock()

	sc.logger.Info().
		Str("scan_id", scanID).
		Dur("duration", result.Duration).
		Int("scanned", len(scans)).
		Int("errors", errors).
		Msg("Scan completed")

	return result
}

func (sc *Scanner) worker(
	ctx context.Context,
	symbolChan <-chan string,
	scanChan chan<- SymbolScan,
	errChan chan<- error,
	wg *sync.WaitGroup,
) {
	defer wg.Done()

	for symbol := range symbolChan {
		select {
		case <-ctx.Done():
			return
		default:
			scan, err := sc.ScanSymbol(ctx, symbol)
			if err != nil {
				sc.logger.Warn().Str("symbol", symbol).Err(err).Msg("Symbol scan failed")
				errChan <- err
				continue
			}
			scanChan <- *scan
		}
	}
}

// ScanSymbol analyzes one symbol: a full detection pass on the configured
// lower timeframe plus the consolidated bias across the higher timeframes.
func (sc *Scanner) ScanSymbol(ctx context.Context, symbol string) (*SymbolScan, error) {
	timeframe := market.Timeframe(sc.config.Timeframe)

	series, err := sc.fetchSeries(ctx, symbol, timeframe, sc.binanceCfg.CandleLimit)
	if err != nil {
		return nil, err
	}

	cached := true
	result := sc.resultCache.Get(series)
	if result == nil {
		cached = false
		result = sc.analyzer.Analyze(series)
		sc.resultCache.Put(series, result)
	}

	htfSeries := make(map[market.Timeframe]*market.Series)
	for _, tf := range sc.analyzer.SortedTimeframes() {
		s, err := sc.fetchSeries(ctx, symbol, tf, sc.binanceCfg.HTFCandles)
		if err != nil {
			// A missing higher timeframe degrades that timeframe to
			// neutral rather than failing the whole symbol
			sc.logger.Debug().Str("symbol", symbol).Str("timeframe", string(tf)).Err(err).Msg("HTF fetch failed")
			continue
		}
		htfSeries[tf] = s
	}

	htfBias, err := sc.analyzer.AnalyzeHTF(ctx, htfSeries)
	if err != nil {
		return nil, err
	}

	return &SymbolScan{
		Symbol:    symbol,
		Timeframe: timeframe,
		Result:    result,
		Context:   sc.analyzer.PriceContext(series, result),
		HTFBias:   htfBias,
		Cached:    cached,
		ScannedAt: time.Now(),
	}, nil
}

// OnCandle ingests a closed candle from the kline stream. Windows the
// scanner has already fetched stay current, and the Redis cache is written
// through, so the next scan of that symbol needs no REST round trip.
// Candles for windows never fetched are dropped: a partial window seeded
// from the stream alone would understate history.
func (sc *Scanner) OnCandle(symbol string, timeframe market.Timeframe, candle market.Candle) {
	key := windowKey(symbol, timeframe)

	sc.windowsMu.Lock()
	window, seeded := sc.windows[key]
	if !seeded {
		sc.windowsMu.Unlock()
		return
	}

	if n := len(window); n > 0 && candle.OpenTime <= window[n-1].OpenTime {
		if candle.OpenTime == window[n-1].OpenTime {
			window[n-1] = candle
		}
		sc.windowsMu.Unlock()
		return
	}

	window = append(window, candle)
	if limit := sc.windowLimit(timeframe); len(window) > limit {
		window = window[len(window)-limit:]
	}
	sc.windows[key] = window

	snapshot := make([]market.Candle, len(window))
	copy(snapshot, window)
	sc.windowsMu.Unlock()

	sc.logger.Debug().
		Str("symbol", symbol).
		Str("timeframe", string(timeframe)).
		Int("window", len(snapshot)).
		Msg("Candle closed")

	if sc.candleCache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		sc.candleCache.SetCandles(ctx, symbol, timeframe, snapshot)
	}
}

// liveSeries returns the stream-maintained window for the key, or nil
func (sc *Scanner) liveSeries(symbol string, timeframe market.Timeframe) *market.Series {
	sc.windowsMu.Lock()
	window := sc.windows[windowKey(symbol, timeframe)]
	snapshot := make([]market.Candle, len(window))
	copy(snapshot, window)
	sc.windowsMu.Unlock()

	if len(snapshot) == 0 {
		return nil
	}
	series, err := market.NewSeries(symbol, timeframe, snapshot)
	if err != nil {
		return nil
	}
	return series
}

func (sc *Scanner) windowLimit(timeframe market.Timeframe) int {
	if string(timeframe) == sc.config.Timeframe {
		return sc.binanceCfg.CandleLimit
	}
	return sc.binanceCfg.HTFCandles
}

func windowKey(symbol string, timeframe market.Timeframe) string {
	return symbol + ":" + string(timeframe)
}

// fetchSeries loads a candle window: the stream-maintained window when one
// exists, then the Redis cache, then the exchange
func (sc *Scanner) fetchSeries(ctx context.Context, symbol string, timeframe market.Timeframe, limit int) (*market.Series, error) {
	if sc.binanceCfg.StreamKlines {
		if series := sc.liveSeries(symbol, timeframe); series != nil {
			return series, nil
		}
	}

	if sc.candleCache != nil {
		if candles := sc.candleCache.GetCandles(ctx, symbol, timeframe); len(candles) > 0 {
			if series, err := market.NewSeries(symbol, timeframe, candles); err == nil {
				if sc.binanceCfg.StreamKlines {
					sc.seedWindow(symbol, timeframe, candles)
				}
				return series, nil
			}
			// Corrupt cache entry; fall through to the exchange
		}
	}

	candles, err := sc.source.GetKlines(ctx, symbol, timeframe, limit)
	if err != nil {
		return nil, err
	}

	series, err := market.NewSeries(symbol, timeframe, candles)
	if err != nil {
		return nil, err
	}

	if sc.candleCache != nil {
		sc.candleCache.SetCandles(ctx, symbol, timeframe, candles)
	}

	if sc.binanceCfg.StreamKlines {
		sc.seedWindow(symbol, timeframe, candles)
	}

	return series, nil
}

func (sc *Scanner) seedWindow(symbol string, timeframe market.Timeframe, candles []market.Candle) {
	window := make([]market.Candle, len(candles))
	copy(window, candles)

	sc.windowsMu.Lock()
	sc.windows[windowKey(symbol, timeframe)] = window
	sc.windowsMu.Unlock()
}

// LastResult returns the most recent completed scan, or nil before the
// first cycle finishes
func (sc *Scanner) LastResult() *ScanResult {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.lastResult
}

// LatestScan returns the most recent scan of a symbol, scanning on demand
// when the symbol is not covered by the background loop
func (sc *Scanner) LatestScan(ctx context.Context, symbol string) (*SymbolScan, error) {
	sc.mu.RLock()
	last := sc.lastResult
	sc.mu.RUnlock()

	if last != nil {
		if scan := last.Scan(symbol); scan != nil {
			return scan, nil
		}
	}

	return sc.ScanSymbol(ctx, symbol)
}

var _ CandleSource = (*binance.Client)(nil)
