package market

import (
	"context"
	"fmt"
	"strconv"

	binance "github.com/adshao/go-binance/v2"

	"tickerbot/internal/model"
)

const (
	binanceRetries = 3

	// closesInterval is the timeframe used when a caller asks only for a
	// closing-price series rather than full candles.
	closesInterval = "4h"
)

// Binance adapts the Binance spot REST API to Source.
type Binance struct {
	client *binance.Client
}

var _ Source = (*Binance)(nil)

// NewBinance builds a read-only client. Market data endpoints need no
// credentials, so keys may be empty.
func NewBinance(apiKey, secretKey string) *Binance {
	return &Binance{client: binance.NewClient(apiKey, secretKey)}
}

func (b *Binance) RecentCloses(ctx context.Context, symbol string, count int) ([]float64, error) {
	candles, err := b.Candles(ctx, symbol, closesInterval, count)
	if err != nil {
		return nil, err
	}
	return model.Closes(candles), nil
}

func (b *Binance) Candles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	var klines []*binance.Kline
	err := withRetry(ctx, binanceRetries, func() error {
		var err error
		klines, err = b.client.NewKlinesService().
			Symbol(symbol).Interval(interval).
			Limit(limit).Do(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("binance klines %s %s: %w", symbol, interval, err)
	}
	if len(klines) == 0 {
		return nil, fmt.Errorf("binance klines %s %s: %w", symbol, interval, ErrNoData)
	}

	candles := make([]model.Candle, 0, len(klines))
	for _, k := range klines {
		c, err := candleFromKline(k)
		if err != nil {
			return nil, fmt.Errorf("binance klines %s %s: %w", symbol, interval, err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func (b *Binance) Ticker24h(ctx context.Context, symbol string) (*model.Ticker24h, error) {
	var stats []*binance.PriceChangeStats
	err := withRetry(ctx, binanceRetries, func() error {
		var err error
		stats, err = b.client.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("binance 24h stats %s: %w", symbol, err)
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("binance 24h stats %s: %w", symbol, ErrNoData)
	}
	return tickerFromStats(stats[0])
}

func (b *Binance) AllTickers(ctx context.Context) ([]model.Ticker24h, error) {
	var stats []*binance.PriceChangeStats
	err := withRetry(ctx, binanceRetries, func() error {
		var err error
		stats, err = b.client.NewListPriceChangeStatsService().Do(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("binance all tickers: %w", err)
	}

	tickers := make([]model.Ticker24h, 0, len(stats))
	for _, s := range stats {
		t, err := tickerFromStats(s)
		if err != nil {
			// Skip pairs with malformed numbers instead of failing the
			// whole market scan.
			continue
		}
		tickers = append(tickers, *t)
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("binance all tickers: %w", ErrNoData)
	}
	return tickers, nil
}

func candleFromKline(k *binance.Kline) (model.Candle, error) {
	var (
		c   model.Candle
		err error
	)
	c.Timestamp = k.OpenTime
	if c.Open, err = strconv.ParseFloat(k.Open, 64); err != nil {
		return c, fmt.Errorf("parse open %q: %w", k.Open, err)
	}
	if c.High, err = strconv.ParseFloat(k.High, 64); err != nil {
		return c, fmt.Errorf("parse high %q: %w", k.High, err)
	}
	if c.Low, err = strconv.ParseFloat(k.Low, 64); err != nil {
		return c, fmt.Errorf("parse low %q: %w", k.Low, err)
	}
	if c.Close, err = strconv.ParseFloat(k.Close, 64); err != nil {
		return c, fmt.Errorf("parse close %q: %w", k.Close, err)
	}
	if c.Volume, err = strconv.ParseFloat(k.Volume, 64); err != nil {
		return c, fmt.Errorf("parse volume %q: %w", k.Volume, err)
	}
	return c, nil
}

func tickerFromStats(s *binance.PriceChangeStats) (*model.Ticker24h, error) {
	t := &model.Ticker24h{Symbol: s.Symbol}
	var err error
	if t.LastPrice, err = strconv.ParseFloat(s.LastPrice, 64); err != nil {
		return nil, fmt.Errorf("parse last price %q: %w", s.LastPrice, err)
	}
	if t.ChangePercent, err = strconv.ParseFloat(s.PriceChangePercent, 64); err != nil {
		return nil, fmt.Errorf("parse change percent %q: %w", s.PriceChangePercent, err)
	}
	if t.High, err = strconv.ParseFloat(s.HighPrice, 64); err != nil {
		return nil, fmt.Errorf("parse high %q: %w", s.HighPrice, err)
	}
	if t.Low, err = strconv.ParseFloat(s.LowPrice, 64); err != nil {
		return nil, fmt.Errorf("parse low %q: %w", s.LowPrice, err)
	}
	if t.Volume, err = strconv.ParseFloat(s.Volume, 64); err != nil {
		return nil, fmt.Errorf("parse volume %q: %w", s.Volume, err)
	}
	return t, nil
}
