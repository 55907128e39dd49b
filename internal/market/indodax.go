package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"tickerbot/internal/model"
)

const indodaxBaseURL = "https://indodax.com/api"

// Indodax adapts the Indodax public API to Source. Pairs use the
// BASE_QUOTE form ("BTC_IDR"); the quote defaults to IDR upstream, so
// Symbol(base, "IDR", "_") is the usual constructor.
//
// Indodax reports candle times in Unix seconds and only daily OHLC, so
// Candles ignores the interval argument and always returns the daily
// series, timestamps normalized to milliseconds.
type Indodax struct {
	httpClient *http.Client
	baseURL    string
}

var _ Source = (*Indodax)(nil)

func NewIndodax() *Indodax {
	return &Indodax{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    indodaxBaseURL,
	}
}

type indodaxTicker struct {
	High      json.Number `json:"high"`
	Low       json.Number `json:"low"`
	Last      json.Number `json:"last"`
	VolumeIDR json.Number `json:"vol_idr"`
}

type indodaxCandle struct {
	Time   int64       `json:"Time"`
	Open   json.Number `json:"Open"`
	High   json.Number `json:"High"`
	Low    json.Number `json:"Low"`
	Close  json.Number `json:"Close"`
	Volume json.Number `json:"Volume"`
}

func (x *Indodax) RecentCloses(ctx context.Context, symbol string, count int) ([]float64, error) {
	candles, err := x.Candles(ctx, symbol, "1d", count)
	if err != nil {
		return nil, err
	}
	if len(candles) > count {
		candles = candles[len(candles)-count:]
	}
	return model.Closes(candles), nil
}

func (x *Indodax) Candles(ctx context.Context, symbol, _ string, limit int) ([]model.Candle, error) {
	var raw []indodaxCandle
	path := fmt.Sprintf("/v2/ohcl/%s?period=D", strings.ToLower(symbol))
	if err := x.get(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("indodax ohlc %s: %w", symbol, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("indodax ohlc %s: %w", symbol, ErrNoData)
	}

	candles := make([]model.Candle, 0, len(raw))
	for _, r := range raw {
		c := model.Candle{Timestamp: r.Time * 1000}
		var err error
		if c.Open, err = r.Open.Float64(); err != nil {
			return nil, fmt.Errorf("indodax ohlc %s: parse open %q: %w", symbol, r.Open, err)
		}
		if c.High, err = r.High.Float64(); err != nil {
			return nil, fmt.Errorf("indodax ohlc %s: parse high %q: %w", symbol, r.High, err)
		}
		if c.Low, err = r.Low.Float64(); err != nil {
			return nil, fmt.Errorf("indodax ohlc %s: parse low %q: %w", symbol, r.Low, err)
		}
		if c.Close, err = r.Close.Float64(); err != nil {
			return nil, fmt.Errorf("indodax ohlc %s: parse close %q: %w", symbol, r.Close, err)
		}
		c.Volume, _ = r.Volume.Float64()
		candles = append(candles, c)
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Timestamp < candles[j].Timestamp })
	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

func (x *Indodax) Ticker24h(ctx context.Context, symbol string) (*model.Ticker24h, error) {
	var resp struct {
		Ticker *indodaxTicker `json:"ticker"`
	}
	path := "/ticker/" + strings.ToLower(symbol)
	if err := x.get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("indodax ticker %s: %w", symbol, err)
	}
	if resp.Ticker == nil {
		return nil, fmt.Errorf("indodax ticker %s: %w", symbol, ErrNoData)
	}
	return tickerFromIndodax(strings.ToUpper(symbol), resp.Ticker)
}

func (x *Indodax) AllTickers(ctx context.Context) ([]model.Ticker24h, error) {
	var resp struct {
		Tickers map[string]indodaxTicker `json:"tickers"`
	}
	if err := x.get(ctx, "/tickers", &resp); err != nil {
		return nil, fmt.Errorf("indodax tickers: %w", err)
	}
	if len(resp.Tickers) == 0 {
		return nil, fmt.Errorf("indodax tickers: %w", ErrNoData)
	}

	tickers := make([]model.Ticker24h, 0, len(resp.Tickers))
	for pair, raw := range resp.Tickers {
		t, err := tickerFromIndodax(strings.ToUpper(pair), &raw)
		if err != nil {
			continue
		}
		tickers = append(tickers, *t)
	}
	sort.Slice(tickers, func(i, j int) bool { return tickers[i].Symbol < tickers[j].Symbol })
	return tickers, nil
}

// tickerFromIndodax converts a raw ticker. The endpoint carries no change
// percentage, so ChangePercent is derived from the daily high/low midpoint
// as a rough proxy and callers wanting exact movement should use Binance.
func tickerFromIndodax(symbol string, raw *indodaxTicker) (*model.Ticker24h, error) {
	t := &model.Ticker24h{Symbol: symbol}
	var err error
	if t.LastPrice, err = raw.Last.Float64(); err != nil {
		return nil, fmt.Errorf("parse last %q: %w", raw.Last, err)
	}
	if t.High, err = raw.High.Float64(); err != nil {
		return nil, fmt.Errorf("parse high %q: %w", raw.High, err)
	}
	if t.Low, err = raw.Low.Float64(); err != nil {
		return nil, fmt.Errorf("parse low %q: %w", raw.Low, err)
	}
	t.Volume, _ = raw.VolumeIDR.Float64()
	if mid := (t.High + t.Low) / 2; mid > 0 {
		t.ChangePercent = (t.LastPrice - mid) / mid * 100
	}
	return t, nil
}

func (x *Indodax) get(ctx context.Context, path string, out any) error {
	return withRetry(ctx, 3, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, x.baseURL+path, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := x.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
}
