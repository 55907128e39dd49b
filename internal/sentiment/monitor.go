// Package sentiment runs the scheduled market sweeps: the hourly
// market-wide mover scan and the StochRSI alert sweep over stored
// history.
package sentiment

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"tickerbot/internal/indicator"
	"tickerbot/internal/market"
	"tickerbot/internal/metrics"
	"tickerbot/internal/model"
	"tickerbot/internal/notification"
)

const (
	// DefaultThreshold is the 24h percent move that makes a pair count as
	// a mover.
	DefaultThreshold = 5.0

	// notifyMinCount is how many movers on one side it takes before the
	// alert chat is notified.
	notifyMinCount = 10

	// streamMaxAge bounds how stale a websocket snapshot may be before
	// the scan falls back to the REST API.
	streamMaxAge = 2 * time.Minute
)

// ReportStore persists sentiment snapshots.
type ReportStore interface {
	SaveSentimentReport(ctx context.Context, r model.SentimentReport) error
}

// Monitor scans all tickers, grades the market mood, and alerts on
// significant movement.
type Monitor struct {
	source  market.Source
	stream  *market.TickerStream // optional live snapshot
	store   ReportStore          // optional persistence
	sink    notification.Sink
	metrics *metrics.Metrics // optional

	threshold   float64
	alertChatID int64
}

// NewMonitor builds a sentiment monitor. stream, store, and m may be nil.
func NewMonitor(source market.Source, stream *market.TickerStream, store ReportStore, sink notification.Sink, alertChatID int64, threshold float64, m *metrics.Metrics) *Monitor {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Monitor{
		source:      source,
		stream:      stream,
		store:       store,
		sink:        sink,
		metrics:     m,
		threshold:   threshold,
		alertChatID: alertChatID,
	}
}

// Run performs one scan. Only USDT pairs count; each side of the market
// is graded independently so a volatile day can be both a Moon and a
// Crash reading.
func (m *Monitor) Run(ctx context.Context) error {
	tickers, err := m.tickers(ctx)
	if err != nil {
		return fmt.Errorf("sentiment scan: %w", err)
	}

	var moonCount, crashCount int
	for _, t := range tickers {
		if !strings.HasSuffix(t.Symbol, "USDT") {
			continue
		}
		switch {
		case t.ChangePercent >= m.threshold:
			moonCount++
		case t.ChangePercent <= -m.threshold:
			crashCount++
		}
	}

	moon := indicator.MarketSentiment(moonCount, true)
	crash := indicator.MarketSentiment(crashCount, false)
	log.Printf("[sentiment] moon=%d (%s) crash=%d (%s)", moonCount, moon.Label(), crashCount, crash.Label())

	if m.store != nil {
		report := model.SentimentReport{
			MoonCount:  moonCount,
			MoonLevel:  moon.Label(),
			CrashCount: crashCount,
			CrashLevel: crash.Label(),
		}
		if err := m.store.SaveSentimentReport(ctx, report); err != nil {
			log.Printf("[sentiment] save report: %v", err)
		}
	}

	if moonCount >= notifyMinCount || crashCount >= notifyMinCount {
		if err := m.sink.SendText(ctx, m.alertChatID, m.alertMessage(moon, crash, moonCount, crashCount)); err != nil {
			log.Printf("[sentiment] send alert: %v", err)
		}
	}

	if m.metrics != nil {
		m.metrics.SentimentRuns.Inc()
	}
	return nil
}

// tickers prefers the live websocket snapshot and falls back to REST when
// the snapshot is missing or stale.
func (m *Monitor) tickers(ctx context.Context) ([]model.Ticker24h, error) {
	if m.stream != nil && m.stream.Fresh(streamMaxAge) {
		snap, _ := m.stream.Snapshot()
		if len(snap) > 0 {
			return snap, nil
		}
	}
	return m.source.AllTickers(ctx)
}

func (m *Monitor) alertMessage(moon, crash indicator.Sentiment, moonCount, crashCount int) string {
	msg := "🔔 *Market Sentiment Alert*\n\n"
	if moonCount >= notifyMinCount {
		msg += "🚀 *Bullish Movement*\n"
		msg += moon.Label() + "\n"
		msg += fmt.Sprintf("Coins up >%.1f%%: %d\n\n", m.threshold, moonCount)
	}
	if crashCount >= notifyMinCount {
		msg += "📉 *Bearish Movement*\n"
		msg += crash.Label() + "\n"
		msg += fmt.Sprintf("Coins down <-%.1f%%: %d\n", m.threshold, crashCount)
	}
	return msg
}
