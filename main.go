package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flowai-ict-bot/config"
	"flowai-ict-bot/internal/analysis"
	"flowai-ict-bot/internal/api"
	"flowai-ict-bot/internal/binance"
	"flowai-ict-bot/internal/cache"
	"flowai-ict-bot/internal/logging"
	"flowai-ict-bot/internal/market"
	"flowai-ict-bot/internal/scanner"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	godotenv.Load()

	// Load configuration. Invalid detection parameters fail here, before
	// any market data is touched.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(&logging.Config{
		Level:      cfg.LoggingConfig.Level,
		Output:     cfg.LoggingConfig.Output,
		JSONFormat: cfg.LoggingConfig.JSONFormat,
		Component:  "main",
	})
	logging.SetDefault(logger)
	logger.Info("Structured logging initialized")

	scanLogger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Detection pipeline
	analyzer, err := analysis.NewAnalyzer(cfg.ICTConfig)
	if err != nil {
		log.Fatalf("Failed to build analyzer: %v", err)
	}
	logger.Info("Analyzer initialized",
		"swing_lookback", cfg.ICTConfig.SwingLookback,
		"htf_timeframes", len(cfg.ICTConfig.HTFTimeframes))

	// Exchange client
	client := binance.NewClient(cfg.BinanceConfig.BaseURL)

	// Optional Redis candle cache; a failed connection degrades to
	// direct exchange fetches
	var candleCache *cache.CandleCache
	if cfg.RedisConfig.Enabled {
		candleCache, err = cache.NewCandleCache(cfg.RedisConfig, cfg.RedisTTL(), logger.WithComponent("cache"))
		if err != nil {
			logger.WithError(err).Warn("Candle cache unavailable")
			candleCache = nil
		}
	}

	// Scanner
	sc := scanner.NewScanner(client, analyzer, candleCache, cfg.ScannerConfig, cfg.BinanceConfig, scanLogger)
	sc.Start()

	// Optional kline stream feeds closed candles into the scanner's live
	// windows so scans between candle closes skip the REST round trip
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.BinanceConfig.StreamKlines {
		streamLogger := logger.WithComponent("stream")
		stream := binance.NewKlineStream(cfg.BinanceConfig.WSBaseURL, sc.OnCandle, streamLogger)

		tf := market.Timeframe(cfg.ScannerConfig.Timeframe)
		for _, symbol := range cfg.ScannerConfig.Symbols {
			stream.Subscribe(symbol, tf)
		}

		go func() {
			if err := stream.Run(ctx); err != nil && ctx.Err() == nil {
				streamLogger.WithError(err).Error("Kline stream stopped")
			}
		}()
	}

	// HTTP API
	var server *api.Server
	if cfg.ServerConfig.Enabled {
		server = api.NewServer(cfg.ServerConfig, sc, client, logger.WithComponent("api"))
		go func() {
			if err := server.Start(); err != nil {
				log.Fatalf("API server failed: %v", err)
			}
		}()
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Error shutting down API server")
		}
	}

	sc.Stop()

	if candleCache != nil {
		candleCache.Close()
	}

	logger.Info("Shutdown complete")
}
