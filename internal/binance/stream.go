package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"flowai-ict-bot/internal/logging"
	"flowai-ict-bot/internal/market"
)

// CandleHandler receives closed candles from the stream
type CandleHandler func(symbol string, timeframe market.Timeframe, candle market.Candle)

// KlineStream keeps candle series current over the Binance combined kline
// websocket. Only closed candles are forwarded: the engine analyzes a fixed,
// already-ingested window and never partial bars.
type KlineStream struct {
	wsBaseURL string
	handler   CandleHandler
	logger    *logging.Logger

	mu      sync.Mutex
	streams []string
	conn    *websocket.Conn
	done    chan struct{}
}

// klineEvent is the combined-stream payload for kline updates
type klineEvent struct {
	Stream string `json:"stream"`
	Data   struct {
		Symbol string `json:"s"`
		Kline  struct {
			OpenTime  int64  `json:"t"`
			CloseTime int64  `json:"T"`
			Interval  string `json:"i"`
			Open      string `json:"o"`
			Close     string `json:"c"`
			High      string `json:"h"`
			Low       string `json:"l"`
			Volume    string `json:"v"`
			Closed    bool   `json:"x"`
		} `json:"k"`
	} `json:"data"`
}

// NewKlineStream creates a stream for the given subscriptions
func NewKlineStream(wsBaseURL string, handler CandleHandler, logger *logging.Logger) *KlineStream {
	if wsBaseURL == "" {
		wsBaseURL = "wss://stream.binance.com:9443"
	}
	return &KlineStream{
		wsBaseURL: wsBaseURL,
		handler:   handler,
		logger:    logger.WithComponent("kline-stream"),
		done:      make(chan struct{}),
	}
}

// Subscribe registers a (symbol, timeframe) kline stream. Must be called
// before Run.
func (ks *KlineStream) Subscribe(symbol string, timeframe market.Timeframe) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.streams = append(ks.streams, fmt.Sprintf("%s@kline_%s", strings.ToLower(symbol), timeframe))
}

// Run connects and dispatches closed candles until the context is cancelled,
// reconnecting with backoff on failures.
func (ks *KlineStream) Run(ctx context.Context) error {
	ks.mu.Lock()
	if len(ks.streams) == 0 {
		ks.mu.Unlock()
		return fmt.Errorf("no kline streams subscribed")
	}
	endpoint := fmt.Sprintf("%s/stream?streams=%s", ks.wsBaseURL, strings.Join(ks.streams, "/"))
	ks.mu.Unlock()

	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := ks.readLoop(ctx, endpoint)
		if err != nil && ctx.Err() == nil {
			ks.logger.Warn("Stream disconnected, reconnecting", "error", err, "backoff", backoff.String())
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (ks *KlineStream) readLoop(ctx context.Context, endpoint string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}
	defer conn.Close()

	ks.logger.Info("Kline stream connected", "streams", len(ks.streams))

	// The watcher must not outlive this attempt: done releases it when the
	// read loop exits on its own, otherwise reconnects would each strand a
	// goroutine on ctx.Done.
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var event klineEvent
		if err := json.Unmarshal(message, &event); err != nil {
			ks.logger.Debug("Skipping unparseable stream message", "error", err)
			continue
		}

		k := event.Data.Kline
		if !k.Closed {
			continue
		}

		candle := market.Candle{
			OpenTime:  k.OpenTime,
			Open:      parseFloat(k.Open),
			High:      parseFloat(k.High),
			Low:       parseFloat(k.Low),
			Close:     parseFloat(k.Close),
			Volume:    parseFloat(k.Volume),
			CloseTime: k.CloseTime,
		}

		ks.handler(event.Data.Symbol, market.Timeframe(k.Interval), candle)
	}
}