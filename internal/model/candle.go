package model

import "time"

// Candle represents one OHLC interval for a trading pair.
// Timestamps are Unix milliseconds (Binance native); adapters for sources
// that report seconds must normalize before constructing a Candle.
type Candle struct {
	Timestamp int64   `json:"timestamp"` // open time, Unix ms
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// OpenTime returns the candle open time as a UTC time.Time.
func (c Candle) OpenTime() time.Time {
	return time.UnixMilli(c.Timestamp).UTC()
}

// Closes extracts the closing prices of a candle series, preserving order.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Reverse returns a reversed copy of the series. Sources that report
// newest-first use it to restore oldest-first processing order.
func Reverse(candles []Candle) []Candle {
	out := make([]Candle, len(candles))
	for i, c := range candles {
		out[len(candles)-1-i] = c
	}
	return out
}
