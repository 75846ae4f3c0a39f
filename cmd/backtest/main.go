// Command backtest replays historical candles for one symbol through the
// detection pipeline and prints the structural report as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"flowai-ict-bot/config"
	"flowai-ict-bot/internal/analysis"
	"flowai-ict-bot/internal/backtest"
	"flowai-ict-bot/internal/binance"
	"flowai-ict-bot/internal/market"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	symbol := flag.String("symbol", "BTCUSDT", "Symbol to replay")
	timeframe := flag.String("timeframe", "1h", "Timeframe to replay")
	limit := flag.Int("limit", 500, "Number of candles to fetch")
	warmup := flag.Int("warmup", 60, "Candles before the first evaluation")
	step := flag.Int("step", 1, "Candles between evaluations")
	horizon := flag.Int("horizon", 12, "Forward candles used to grade each bias sample")
	flag.Parse()

	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	tf := market.Timeframe(*timeframe)
	if !tf.Valid() {
		fmt.Fprintf(os.Stderr, "invalid timeframe %q\n", *timeframe)
		os.Exit(1)
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	analyzer, err := analysis.NewAnalyzer(cfg.ICTConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analyzer error: %v\n", err)
		os.Exit(1)
	}

	client := binance.NewClient(cfg.BinanceConfig.BaseURL)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	series, err := client.GetSeries(ctx, *symbol, tf, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetch error: %v\n", err)
		os.Exit(1)
	}

	engine := backtest.NewEngine(analyzer, backtest.Options{
		Warmup:  *warmup,
		Step:    *step,
		Horizon: *horizon,
	}, logger)

	report, err := engine.Run(series)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay error: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encoding error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
