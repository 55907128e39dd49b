// Package config loads application configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken    string `yaml:"bot_token"`
		AlertChatID int64  `yaml:"alert_chat_id"`
	} `yaml:"telegram"`
	Binance struct {
		APIKey    string `yaml:"api_key"`
		SecretKey string `yaml:"secret_key"`
	} `yaml:"binance"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTLSec   int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`
	Database struct {
		QueuePath   string `yaml:"queue_path"`
		HistoryPath string `yaml:"history_path"`
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"database"`
	Worker struct {
		BatchSize  int `yaml:"batch_size"`
		JobDelayMS int `yaml:"job_delay_ms"`
	} `yaml:"worker"`
	Sentiment struct {
		Threshold    float64  `yaml:"threshold"`
		AlertSymbols []string `yaml:"alert_symbols"`
	} `yaml:"sentiment"`
	Schedule struct {
		DispatchCron  string `yaml:"dispatch_cron"`
		SentimentCron string `yaml:"sentiment_cron"`
		StochRSICron  string `yaml:"stochrsi_cron"`
	} `yaml:"schedule"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_ALERT_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Telegram.AlertChatID = id
		}
	}
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		cfg.Binance.APIKey = v
	}
	if v := os.Getenv("BINANCE_SECRET_KEY"); v != "" {
		cfg.Binance.SecretKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("QUEUE_DB_PATH"); v != "" {
		cfg.Database.QueuePath = v
	}
	if v := os.Getenv("HISTORY_DB_PATH"); v != "" {
		cfg.Database.HistoryPath = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Database.PostgresDSN = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("WORKER_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Worker.BatchSize = n
		}
	}
	if v := os.Getenv("SENTIMENT_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Sentiment.Threshold = f
		}
	}

	// Defaults
	if cfg.Database.QueuePath == "" {
		cfg.Database.QueuePath = "data/queue.db"
	}
	if cfg.Database.HistoryPath == "" {
		cfg.Database.HistoryPath = "data/history.db"
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = ":9090"
	}
	if cfg.Worker.BatchSize == 0 {
		cfg.Worker.BatchSize = 10
	}
	if cfg.Worker.JobDelayMS == 0 {
		cfg.Worker.JobDelayMS = 500
	}
	if cfg.Sentiment.Threshold == 0 {
		cfg.Sentiment.Threshold = 5.0
	}
	if cfg.Schedule.DispatchCron == "" {
		cfg.Schedule.DispatchCron = "0 * * * * *"
	}
	if cfg.Schedule.SentimentCron == "" {
		cfg.Schedule.SentimentCron = "0 0 * * * *"
	}
	if cfg.Schedule.StochRSICron == "" {
		cfg.Schedule.StochRSICron = "0 0 */4 * * *"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.AlertChatID == 0 {
		return fmt.Errorf("telegram.alert_chat_id is required")
	}
	if c.Worker.BatchSize < 1 {
		return fmt.Errorf("worker.batch_size must be positive")
	}
	return nil
}
