package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const telegramAPIBase = "https://api.telegram.org"

// Telegram sends messages via the Telegram Bot API.
// Failed sends are retried once after a short pause before the error is
// returned to the caller.
type Telegram struct {
	botToken string
	baseURL  string
	client   *http.Client

	// OnSent, when set, is invoked after each delivered message with the
	// payload kind ("text" or "photo").
	OnSent func(kind string)
}

var _ Sink = (*Telegram)(nil)

// NewTelegram creates a Telegram sink.
// botToken: Bot API token from @BotFather
func NewTelegram(botToken string) *Telegram {
	return &Telegram{
		botToken: botToken,
		baseURL:  telegramAPIBase,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *Telegram) SendText(ctx context.Context, chatID int64, text string) error {
	err := t.call(ctx, "sendMessage", map[string]interface{}{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err == nil && t.OnSent != nil {
		t.OnSent("text")
	}
	return err
}

func (t *Telegram) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string) error {
	params := map[string]interface{}{
		"chat_id": chatID,
		"photo":   photoURL,
	}
	if caption != "" {
		params["caption"] = caption
		params["parse_mode"] = "Markdown"
	}
	err := t.call(ctx, "sendPhoto", params)
	if err == nil && t.OnSent != nil {
		t.OnSent("photo")
	}
	return err
}

func (t *Telegram) call(ctx context.Context, method string, params map[string]interface{}) error {
	err := t.post(ctx, method, params)
	if err == nil {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Second):
	}
	if retryErr := t.post(ctx, method, params); retryErr == nil {
		return nil
	}
	return fmt.Errorf("telegram %s: %w", method, err)
}

func (t *Telegram) post(ctx context.Context, method string, params map[string]interface{}) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.botToken, method)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	data, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if !result.OK {
		return fmt.Errorf("api error (status %d): %s", resp.StatusCode, result.Description)
	}

	log.Printf("[telegram] %s delivered to chat", method)
	return nil
}
