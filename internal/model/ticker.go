package model

// Ticker24h holds rolling 24-hour statistics for a trading pair.
type Ticker24h struct {
	Symbol        string  `json:"symbol"`
	LastPrice     float64 `json:"last_price"`
	ChangePercent float64 `json:"change_percent"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Volume        float64 `json:"volume"`
}

// PriceSample is a recorded spot price observation for the history store.
type PriceSample struct {
	Symbol     string  `json:"symbol"`
	Price      float64 `json:"price"`
	High24h    float64 `json:"high_24h"`
	Low24h     float64 `json:"low_24h"`
	RecordedAt int64   `json:"recorded_at"` // Unix ms
}
