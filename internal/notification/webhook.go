package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Webhook mirrors bot output to a generic HTTP endpoint, useful for
// piping alerts into dashboards or chat bridges besides Telegram.
type Webhook struct {
	url    string
	client *http.Client
}

var _ Sink = (*Webhook)(nil)

// NewWebhook creates a webhook sink.
// url: The HTTP endpoint to POST messages to.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (w *Webhook) SendText(ctx context.Context, chatID int64, text string) error {
	return w.post(ctx, map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (w *Webhook) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string) error {
	return w.post(ctx, map[string]interface{}{
		"chat_id": chatID,
		"photo":   photoURL,
		"caption": caption,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (w *Webhook) post(ctx context.Context, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}
