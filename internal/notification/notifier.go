// Package notification delivers bot output to users
// (Telegram today; the Sink interface keeps other channels possible).
package notification

import (
	"context"
	"fmt"
	"log"
)

// Sink is the interface for message delivery backends.
type Sink interface {
	// SendText delivers a plain text message to a chat.
	SendText(ctx context.Context, chatID int64, text string) error

	// SendPhoto delivers an image by URL with an optional caption.
	SendPhoto(ctx context.Context, chatID int64, photoURL, caption string) error
}

// LogSink logs messages instead of sending them (useful for development).
type LogSink struct{}

// NewLogSink creates a log-based sink.
func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) SendText(ctx context.Context, chatID int64, text string) error {
	log.Printf("[notify] chat=%d text: %s", chatID, text)
	return nil
}

func (s *LogSink) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string) error {
	log.Printf("[notify] chat=%d photo: %s caption: %s", chatID, photoURL, caption)
	return nil
}

// FormatPrice renders a price with precision scaled to its magnitude, so
// large-cap and micro-cap pairs both stay readable.
func FormatPrice(price float64) string {
	switch {
	case price >= 1000:
		return humanize(fmt.Sprintf("%.2f", price))
	case price >= 1:
		return fmt.Sprintf("%.4f", price)
	default:
		return fmt.Sprintf("%.8f", price)
	}
}

// FormatPercentage renders a signed percentage with a green/red marker.
func FormatPercentage(change float64) string {
	emoji := "🟢"
	sign := "+"
	if change < 0 {
		emoji = "🔴"
		sign = ""
	}
	return fmt.Sprintf("%s %s%.2f%%", emoji, sign, change)
}

// humanize inserts thousands separators into the integer part of a
// formatted decimal ("1234567.89" -> "1,234,567.89").
func humanize(s string) string {
	dot := len(s)
	for i, r := range s {
		if r == '.' {
			dot = i
			break
		}
	}
	intPart, frac := s[:dot], s[dot:]

	n := len(intPart)
	if n <= 3 {
		return s
	}
	var out []byte
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	return string(out) + frac
}
