// Package market supplies price series from exchange APIs.
//
// All sources return candles and closes ordered oldest to newest; adapters
// over feeds that report newest-first reverse before returning. Transient
// upstream failures are retried locally with exponential backoff before an
// error is surfaced.
package market

import (
	"context"
	"errors"
	"strings"
	"time"

	"tickerbot/internal/model"
)

// ErrNoData is returned when an upstream call succeeds but yields no usable
// series. Handlers must convert this into a user-visible failure rather
// than sending a partial result.
var ErrNoData = errors.New("no market data")

// Source supplies ordered price series for a trading pair.
type Source interface {
	// RecentCloses returns up to count closing prices, oldest first.
	RecentCloses(ctx context.Context, symbol string, count int) ([]float64, error)

	// Candles returns up to limit OHLC candles at the given interval
	// (exchange notation, e.g. "5m", "4h", "1d"), oldest first.
	Candles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error)

	// Ticker24h returns rolling 24-hour statistics for one pair.
	Ticker24h(ctx context.Context, symbol string) (*model.Ticker24h, error)

	// AllTickers returns 24-hour statistics for every listed pair.
	AllTickers(ctx context.Context) ([]model.Ticker24h, error)
}

// Symbol builds a normalized exchange symbol from base and quote assets.
// Only alphanumeric characters survive; everything else is stripped so
// user-supplied input can never smuggle separators into storage keys or
// API paths. sep is the exchange's joiner ("" for Binance, "_" for Indodax).
func Symbol(base, quote, sep string) string {
	return sanitize(base) + sep + sanitize(quote)
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// withRetry runs fn up to attempts times, sleeping 1s, 2s, 4s, ... between
// failures. Context cancellation cuts the wait short.
func withRetry(ctx context.Context, attempts int, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(1<<i) * time.Second):
			}
		}
	}
	return err
}
