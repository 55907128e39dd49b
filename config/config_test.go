package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Worker.BatchSize != 10 {
		t.Errorf("batch size = %d, want 10", cfg.Worker.BatchSize)
	}
	if cfg.Worker.JobDelayMS != 500 {
		t.Errorf("job delay = %d, want 500", cfg.Worker.JobDelayMS)
	}
	if cfg.Sentiment.Threshold != 5.0 {
		t.Errorf("threshold = %v, want 5.0", cfg.Sentiment.Threshold)
	}
	if cfg.Database.QueuePath != "data/queue.db" {
		t.Errorf("queue path = %q", cfg.Database.QueuePath)
	}
	if cfg.Schedule.DispatchCron != "0 * * * * *" {
		t.Errorf("dispatch cron = %q", cfg.Schedule.DispatchCron)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
telegram:
  bot_token: file-token
  alert_chat_id: 42
worker:
  batch_size: 5
sentiment:
  alert_symbols: [BTCUSDT, ETHUSDT]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("WORKER_BATCH_SIZE", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.BotToken != "env-token" {
		t.Errorf("bot token = %q, want env override", cfg.Telegram.BotToken)
	}
	if cfg.Telegram.AlertChatID != 42 {
		t.Errorf("alert chat id = %d, want 42", cfg.Telegram.AlertChatID)
	}
	if cfg.Worker.BatchSize != 7 {
		t.Errorf("batch size = %d, want env override 7", cfg.Worker.BatchSize)
	}
	if len(cfg.Sentiment.AlertSymbols) != 2 || cfg.Sentiment.AlertSymbols[0] != "BTCUSDT" {
		t.Errorf("alert symbols = %v", cfg.Sentiment.AlertSymbols)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.Worker.BatchSize = 10
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing bot token")
	}
	cfg.Telegram.BotToken = "t"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing alert chat id")
	}
	cfg.Telegram.AlertChatID = 1
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
