package market

import (
	"errors"
	"fmt"
	"time"
)

// ErrNonMonotonic is returned when candle timestamps are not strictly
// increasing. Callers must fix their feed; the series is never sorted
// silently because all structural analysis assumes temporal order.
var ErrNonMonotonic = errors.New("candle timestamps not strictly increasing")

// Candle represents a single OHLCV bar
type Candle struct {
	OpenTime  int64   `json:"openTime"` // Unix milliseconds
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	CloseTime int64   `json:"closeTime"`
}

// Time returns the candle open time as time.Time
func (c Candle) Time() time.Time {
	return time.Unix(c.OpenTime/1000, 0)
}

// Body returns the absolute body size
func (c Candle) Body() float64 {
	if c.Close >= c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Range returns the full high-low range
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// BodyRatio returns body size relative to the full range (0 for zero-range candles)
func (c Candle) BodyRatio() float64 {
	r := c.Range()
	if r <= 0 {
		return 0
	}
	return c.Body() / r
}

// IsBullish reports whether the candle closed above its open
func (c Candle) IsBullish() bool {
	return c.Close > c.Open
}

// IsBearish reports whether the candle closed below its open
func (c Candle) IsBearish() bool {
	return c.Close < c.Open
}

// Series is an immutable ordered candle sequence for one (symbol, timeframe) pair.
// Candles are strictly ordered by open time with no duplicates.
type Series struct {
	Symbol    string
	Timeframe Timeframe
	candles   []Candle
}

// NewSeries validates ordering and wraps the candles. The slice is copied so
// later mutation by the caller cannot rewrite analyzed history.
func NewSeries(symbol string, timeframe Timeframe, candles []Candle) (*Series, error) {
	for i := 1; i < len(candles); i++ {
		if candles[i].OpenTime <= candles[i-1].OpenTime {
			return nil, fmt.Errorf("%w: index %d (%d) after %d", ErrNonMonotonic, i, candles[i].OpenTime, candles[i-1].OpenTime)
		}
	}

	owned := make([]Candle, len(candles))
	copy(owned, candles)

	return &Series{
		Symbol:    symbol,
		Timeframe: timeframe,
		candles:   owned,
	}, nil
}

// Len returns the number of candles in the series
func (s *Series) Len() int {
	return len(s.candles)
}

// At returns the candle at index i
func (s *Series) At(i int) Candle {
	return s.candles[i]
}

// Last returns the most recent candle and false if the series is empty
func (s *Series) Last() (Candle, bool) {
	if len(s.candles) == 0 {
		return Candle{}, false
	}
	return s.candles[len(s.candles)-1], true
}

// Candles returns the backing slice. Callers must treat it as read-only.
func (s *Series) Candles() []Candle {
	return s.candles
}

// Slice returns candles[from:to] without copying. Callers must treat it as read-only.
func (s *Series) Slice(from, to int) []Candle {
	if from < 0 {
		from = 0
	}
	if to > len(s.candles) {
		to = len(s.candles)
	}
	if from >= to {
		return nil
	}
	return s.candles[from:to]
}

// Append returns a new series extended with later candles. The receiver is
// left untouched; an analysis pass never rewrites history, only appends.
func (s *Series) Append(candles ...Candle) (*Series, error) {
	merged := make([]Candle, 0, len(s.candles)+len(candles))
	merged = append(merged, s.candles...)
	merged = append(merged, candles...)
	return NewSeries(s.Symbol, s.Timeframe, merged)
}
