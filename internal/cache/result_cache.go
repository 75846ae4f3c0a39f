package cache

import (
	"fmt"
	"sync"
	"time"

	"flowai-ict-bot/internal/analysis"
	"flowai-ict-bot/internal/market"
)

// ResultCache holds per-timeframe analysis results in memory, keyed by the
// last-seen candle index. Detection is deterministic over a fixed window, so
// a result stays valid until a new candle closes or the TTL expires.
type ResultCache struct {
	mu   sync.RWMutex
	data map[string]*resultEntry
	ttl  time.Duration
}

type resultEntry struct {
	result     *analysis.Result
	lastCandle int64 // Open time of the newest candle analyzed
	expiresAt  time.Time
}

// NewResultCache creates a result cache with the given TTL
func NewResultCache(ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &ResultCache{
		data: make(map[string]*resultEntry),
		ttl:  ttl,
	}
}

// Get returns the cached result for the series if it was computed over the
// same last candle and has not expired
func (rc *ResultCache) Get(series *market.Series) *analysis.Result {
	last, ok := series.Last()
	if !ok {
		return nil
	}

	rc.mu.RLock()
	defer rc.mu.RUnlock()

	entry, exists := rc.data[resultKey(series.Symbol, series.Timeframe)]
	if !exists {
		return nil
	}
	if entry.lastCandle != last.OpenTime {
		return nil
	}
	if time.Now().After(entry.expiresAt) {
		return nil
	}

	return entry.result
}

// Put stores the result of an analysis pass over the series
func (rc *ResultCache) Put(series *market.Series, result *analysis.Result) {
	last, ok := series.Last()
	if !ok {
		return
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.data[resultKey(series.Symbol, series.Timeframe)] = &resultEntry{
		result:     result,
		lastCandle: last.OpenTime,
		expiresAt:  time.Now().Add(rc.ttl),
	}
}

// Evict removes expired entries
func (rc *ResultCache) Evict() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	now := time.Now()
	for key, entry := range rc.data {
		if now.After(entry.expiresAt) {
			delete(rc.data, key)
		}
	}
}

func resultKey(symbol string, timeframe market.Timeframe) string {
	return fmt.Sprintf("%s:%s", symbol, timeframe)
}
