package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// UpdateHandler is called for each incoming text message.
type UpdateHandler func(ctx context.Context, chatID int64, text string)

// telegramUpdate represents a Telegram update from long polling.
type telegramUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// StartPolling long-polls getUpdates and dispatches each text message to
// handler. Blocks until ctx is cancelled. Transport failures back off for
// five seconds and resume; the offset only advances past updates that
// were actually decoded, so nothing is silently skipped.
func (t *Telegram) StartPolling(ctx context.Context, handler UpdateHandler) {
	offset := 0
	client := &http.Client{Timeout: 35 * time.Second}

	for {
		select {
		case <-ctx.Done():
			log.Println("[telegram] polling stopped")
			return
		default:
		}

		apiURL := fmt.Sprintf("%s/bot%s/getUpdates?offset=%d&timeout=30", t.baseURL, t.botToken, offset)
		req, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
		if err != nil {
			log.Printf("[telegram] create polling request: %v", err)
			time.Sleep(5 * time.Second)
			continue
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[telegram] polling request failed: %v", err)
			time.Sleep(5 * time.Second)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			log.Printf("[telegram] read polling response: %v", err)
			continue
		}

		var result struct {
			OK     bool             `json:"ok"`
			Result []telegramUpdate `json:"result"`
		}
		if err := json.Unmarshal(body, &result); err != nil {
			log.Printf("[telegram] decode polling response: %v", err)
			continue
		}

		for _, update := range result.Result {
			offset = update.UpdateID + 1
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			text := strings.TrimSpace(update.Message.Text)
			handler(ctx, update.Message.Chat.ID, text)
		}
	}
}
