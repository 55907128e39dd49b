package model

// SentimentReport is one persisted snapshot of market-wide mover counts
// and the sentiment levels derived from them.
type SentimentReport struct {
	ID         int64  `json:"id"`
	MoonCount  int    `json:"moon_count"`
	MoonLevel  string `json:"moon_level"`
	CrashCount int    `json:"crash_count"`
	CrashLevel string `json:"crash_level"`
	CreatedAt  int64  `json:"created_at"` // Unix ms
}
