package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"flowai-ict-bot/internal/logging"
	"flowai-ict-bot/internal/market"

	"github.com/gorilla/websocket"
)

func streamTestLogger() *logging.Logger {
	return logging.New(&logging.Config{Level: "ERROR", Output: "stderr"})
}

// klineServer upgrades each connection, writes the given messages and closes
func klineServer(t *testing.T, messages []string) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		for _, msg := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestReadLoopForwardsOnlyClosedCandles(t *testing.T) {
	openKline := `{"stream":"btcusdt@kline_1m","data":{"s":"BTCUSDT","k":{"t":1700000000000,"T":1700000059999,"i":"1m","o":"100","c":"101","h":"102","l":"99","v":"10","x":false}}}`
	closedKline := `{"stream":"btcusdt@kline_1m","data":{"s":"BTCUSDT","k":{"t":1700000000000,"T":1700000059999,"i":"1m","o":"100","c":"101","h":"102","l":"99","v":"10","x":true}}}`

	server := klineServer(t, []string{openKline, closedKline})
	defer server.Close()

	received := make(chan market.Candle, 2)
	stream := NewKlineStream(wsURL(server), func(symbol string, timeframe market.Timeframe, candle market.Candle) {
		if symbol != "BTCUSDT" {
			t.Errorf("Unexpected symbol %s", symbol)
		}
		if timeframe != market.TF1m {
			t.Errorf("Unexpected timeframe %s", timeframe)
		}
		received <- candle
	}, streamTestLogger())
	stream.Subscribe("BTCUSDT", market.TF1m)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// The server closes after its messages, so the loop returns on its own
	stream.readLoop(ctx, wsURL(server))

	select {
	case candle := <-received:
		if candle.OpenTime != 1700000000000 || candle.Close != 101 {
			t.Errorf("Unexpected candle %+v", candle)
		}
	default:
		t.Fatal("Expected the closed candle to reach the handler")
	}

	select {
	case extra := <-received:
		t.Errorf("Open candle must not be forwarded, got %+v", extra)
	default:
	}
}

func TestReadLoopDoesNotStrandWatchers(t *testing.T) {
	server := klineServer(t, nil)
	defer server.Close()

	stream := NewKlineStream(wsURL(server), func(string, market.Timeframe, market.Candle) {}, streamTestLogger())
	stream.Subscribe("BTCUSDT", market.TF1m)

	baseline := runtime.NumGoroutine()

	// Each attempt fails once the server hangs up; the connection watcher
	// must exit with the attempt rather than waiting on a context that
	// never cancels
	for i := 0; i < 5; i++ {
		stream.readLoop(context.Background(), wsURL(server))
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= baseline+1 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}

	t.Errorf("Goroutines did not settle: baseline %d, now %d", baseline, runtime.NumGoroutine())
}
