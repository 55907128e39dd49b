package sentiment

import (
	"context"
	"fmt"
	"log"
	"time"

	"tickerbot/internal/indicator"
	"tickerbot/internal/metrics"
	"tickerbot/internal/notification"
)

// minCloses is the shortest daily series worth grading.
const minCloses = 30

// ClosesStore supplies stored daily closing series per pair.
type ClosesStore interface {
	Symbols(ctx context.Context) ([]string, error)
	RecentCloses(ctx context.Context, symbol string, count int) ([]float64, error)
}

// Checker sweeps stored history for StochRSI signals and sends one
// grouped alert for everything non-neutral it finds.
type Checker struct {
	store   ClosesStore
	sink    notification.Sink
	metrics *metrics.Metrics // optional

	symbols     []string // empty means every stored pair
	alertChatID int64
}

// NewChecker builds a StochRSI sweep. symbols may be nil to sweep every
// pair the store knows.
func NewChecker(store ClosesStore, sink notification.Sink, alertChatID int64, symbols []string, m *metrics.Metrics) *Checker {
	return &Checker{
		store:       store,
		sink:        sink,
		metrics:     m,
		symbols:     symbols,
		alertChatID: alertChatID,
	}
}

type pairSignal struct {
	symbol string
	signal indicator.Signal
}

// Run performs one sweep. Pairs with short or broken series are skipped
// with a log line; one bad pair never stops the sweep.
func (c *Checker) Run(ctx context.Context) error {
	symbols := c.symbols
	if len(symbols) == 0 {
		var err error
		symbols, err = c.store.Symbols(ctx)
		if err != nil {
			return fmt.Errorf("stochrsi sweep: %w", err)
		}
	}

	var signals []pairSignal
	for _, symbol := range symbols {
		closes, err := c.store.RecentCloses(ctx, symbol, 100)
		if err != nil {
			log.Printf("[stochrsi] %s: %v", symbol, err)
			continue
		}
		if len(closes) < minCloses {
			log.Printf("[stochrsi] %s: insufficient data (%d closes)", symbol, len(closes))
			continue
		}

		result := indicator.StochRSI(closes, 14, 14, 3, 3)
		k, d, ok := result.Latest()
		if !ok {
			log.Printf("[stochrsi] %s: series too short after smoothing", symbol)
			continue
		}

		signal := indicator.InterpretSignal(k, d)
		if signal.Condition != indicator.Neutral {
			signals = append(signals, pairSignal{symbol: symbol, signal: signal})
		}
	}

	if len(signals) > 0 {
		if err := c.sink.SendText(ctx, c.alertChatID, formatAlert(signals)); err != nil {
			return fmt.Errorf("stochrsi sweep: send alert: %w", err)
		}
	}
	if c.metrics != nil {
		c.metrics.StochRSIAlertRuns.Inc()
	}
	return nil
}

// formatAlert groups signals by condition, preserving first-seen order.
func formatAlert(signals []pairSignal) string {
	msg := "🔔 *StochRSI Alert*\n"
	msg += "⏰ " + time.Now().UTC().Format("2006-01-02 15:04:05") + "\n\n"

	var order []indicator.Condition
	grouped := make(map[indicator.Condition][]pairSignal)
	for _, s := range signals {
		if _, seen := grouped[s.signal.Condition]; !seen {
			order = append(order, s.signal.Condition)
		}
		grouped[s.signal.Condition] = append(grouped[s.signal.Condition], s)
	}

	for _, condition := range order {
		items := grouped[condition]
		msg += fmt.Sprintf("%s *%s*\n", items[0].signal.Emoji, condition)
		for _, item := range items {
			msg += fmt.Sprintf("• `%s`: K=%.2f, D=%.2f - %s\n",
				item.symbol, item.signal.K, item.signal.D, item.signal.Action)
		}
		msg += "\n"
	}
	return msg
}
