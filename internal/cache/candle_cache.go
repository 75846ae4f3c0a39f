// Package cache provides in-memory result caching and an optional
// Redis-backed candle cache with graceful degradation.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"flowai-ict-bot/config"
	"flowai-ict-bot/internal/logging"
	"flowai-ict-bot/internal/market"

	"github.com/redis/go-redis/v9"
)

// CandleCache caches fetched candle windows in Redis. When Redis is
// unavailable the cache degrades to a no-op and callers fall back to the
// exchange API.
type CandleCache struct {
	client  *redis.Client
	config  config.RedisConfig
	ttl     time.Duration
	logger  *logging.Logger
	mu      sync.RWMutex
	healthy bool

	failureCount int
	maxFailures  int
}

const keyCandles = "candles:%s:%s" // symbol, timeframe

// NewCandleCache creates a candle cache with the provided configuration.
// It attempts to connect to Redis and verifies connectivity.
func NewCandleCache(cfg config.RedisConfig, ttl time.Duration, logger *logging.Logger) (*CandleCache, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("redis is not enabled in configuration")
	}
	if logger == nil {
		logger = logging.Default().WithComponent("cache")
	}
	logger = logger.WithField("address", cfg.Address)

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	cc := &CandleCache{
		client:      client,
		config:      cfg,
		ttl:         ttl,
		logger:      logger,
		healthy:     false,
		maxFailures: 3,
	}

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("Initial Redis connection failed")
		return cc, nil // Return cache in degraded mode
	}

	cc.healthy = true
	logger.Info("Redis connected")

	return cc, nil
}

// IsHealthy returns whether Redis is currently available
func (cc *CandleCache) IsHealthy() bool {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return cc.healthy
}

func (cc *CandleCache) recordFailure() {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	cc.failureCount++
	if cc.failureCount >= cc.maxFailures {
		if cc.healthy {
			cc.logger.Warn("Redis marked unhealthy", "failures", cc.failureCount)
		}
		cc.healthy = false
	}
}

func (cc *CandleCache) recordSuccess() {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	if !cc.healthy && cc.failureCount >= cc.maxFailures {
		cc.logger.Info("Redis recovered")
	}
	cc.healthy = true
	cc.failureCount = 0
}

// GetCandles returns the cached candle window for the symbol and timeframe,
// or nil on a miss or when Redis is unavailable.
func (cc *CandleCache) GetCandles(ctx context.Context, symbol string, timeframe market.Timeframe) []market.Candle {
	if !cc.IsHealthy() {
		return nil
	}

	key := fmt.Sprintf(keyCandles, symbol, timeframe)
	data, err := cc.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		cc.recordSuccess()
		return nil
	}
	if err != nil {
		cc.recordFailure()
		return nil
	}
	cc.recordSuccess()

	var candles []market.Candle
	if err := json.Unmarshal(data, &candles); err != nil {
		cc.logger.Warn("Failed to decode cached candles", "key", key, "error", err.Error())
		return nil
	}

	return candles
}

// SetCandles stores a candle window with the configured TTL
func (cc *CandleCache) SetCandles(ctx context.Context, symbol string, timeframe market.Timeframe, candles []market.Candle) {
	if !cc.IsHealthy() || len(candles) == 0 {
		return
	}

	data, err := json.Marshal(candles)
	if err != nil {
		return
	}

	key := fmt.Sprintf(keyCandles, symbol, timeframe)
	if err := cc.client.Set(ctx, key, data, cc.ttl).Err(); err != nil {
		cc.recordFailure()
		return
	}
	cc.recordSuccess()
}

// Close releases the Redis connection
func (cc *CandleCache) Close() error {
	if cc.client != nil {
		return cc.client.Close()
	}
	return nil
}
