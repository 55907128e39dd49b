package market

import (
	"context"

	"tickerbot/internal/model"
)

// Observed wraps a Source and invokes onError for every failed upstream
// call. It keeps instrumentation out of the source implementations.
type Observed struct {
	inner   Source
	onError func()
}

var _ Source = (*Observed)(nil)

// NewObserved decorates src. onError may be nil.
func NewObserved(src Source, onError func()) *Observed {
	return &Observed{inner: src, onError: onError}
}

func (o *Observed) RecentCloses(ctx context.Context, symbol string, count int) ([]float64, error) {
	closes, err := o.inner.RecentCloses(ctx, symbol, count)
	o.observe(err)
	return closes, err
}

func (o *Observed) Candles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	candles, err := o.inner.Candles(ctx, symbol, interval, limit)
	o.observe(err)
	return candles, err
}

func (o *Observed) Ticker24h(ctx context.Context, symbol string) (*model.Ticker24h, error) {
	t, err := o.inner.Ticker24h(ctx, symbol)
	o.observe(err)
	return t, err
}

func (o *Observed) AllTickers(ctx context.Context) ([]model.Ticker24h, error) {
	tickers, err := o.inner.AllTickers(ctx)
	o.observe(err)
	return tickers, err
}

func (o *Observed) observe(err error) {
	if err != nil && o.onError != nil {
		o.onError()
	}
}
