package market

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tickerbot/internal/model"
)

const (
	tickerStreamURL = "wss://stream.binance.com:9443/ws/!ticker@arr"

	streamMaxBackoff = 60 * time.Second
)

// TickerStream keeps an in-memory snapshot of 24h statistics for every
// Binance pair, fed by the combined ticker websocket stream. It
// reconnects with exponential backoff and never returns an error from
// Run until the context is cancelled.
//
// Consumers call Snapshot and must check the returned freshness: after a
// prolonged disconnect the snapshot is stale and callers should fall back
// to the REST source.
type TickerStream struct {
	url string

	// OnReconnect, when set, is invoked once per reconnect attempt.
	OnReconnect func()

	mu      sync.RWMutex
	tickers map[string]model.Ticker24h
	updated time.Time
}

func NewTickerStream() *TickerStream {
	return &TickerStream{
		url:     tickerStreamURL,
		tickers: make(map[string]model.Ticker24h),
	}
}

// binanceTickerEvent is one element of the !ticker@arr payload.
type binanceTickerEvent struct {
	Symbol        string `json:"s"`
	LastPrice     string `json:"c"`
	ChangePercent string `json:"P"`
	High          string `json:"h"`
	Low           string `json:"l"`
	Volume        string `json:"v"`
}

// Run connects and consumes ticker events until ctx is cancelled,
// reconnecting on any read or dial failure.
func (ts *TickerStream) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if err := ts.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[stream] disconnected: %v (reconnect in %s)", err, backoff)
			if ts.OnReconnect != nil {
				ts.OnReconnect()
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > streamMaxBackoff {
				backoff = streamMaxBackoff
			}
			continue
		}
		return
	}
}

func (ts *TickerStream) consume(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, ts.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Close the socket when ctx dies so the blocked read returns.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	log.Printf("[stream] connected to %s", ts.url)
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		var events []binanceTickerEvent
		if err := json.Unmarshal(message, &events); err != nil {
			// Ignore non-array frames (pings, control payloads).
			continue
		}
		ts.apply(events)
	}
}

func (ts *TickerStream) apply(events []binanceTickerEvent) {
	now := time.Now()

	ts.mu.Lock()
	defer ts.mu.Unlock()
	for _, ev := range events {
		t := model.Ticker24h{Symbol: ev.Symbol}
		var err error
		if t.LastPrice, err = strconv.ParseFloat(ev.LastPrice, 64); err != nil {
			continue
		}
		if t.ChangePercent, err = strconv.ParseFloat(ev.ChangePercent, 64); err != nil {
			continue
		}
		t.High, _ = strconv.ParseFloat(ev.High, 64)
		t.Low, _ = strconv.ParseFloat(ev.Low, 64)
		t.Volume, _ = strconv.ParseFloat(ev.Volume, 64)
		ts.tickers[ev.Symbol] = t
	}
	ts.updated = now
}

// Snapshot returns every known ticker plus the time of the last update.
// An empty slice with a zero time means no data has been received yet.
func (ts *TickerStream) Snapshot() ([]model.Ticker24h, time.Time) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	out := make([]model.Ticker24h, 0, len(ts.tickers))
	for _, t := range ts.tickers {
		out = append(out, t)
	}
	return out, ts.updated
}

// Fresh reports whether the snapshot was updated within maxAge.
func (ts *TickerStream) Fresh(maxAge time.Duration) bool {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return !ts.updated.IsZero() && time.Since(ts.updated) <= maxAge
}
