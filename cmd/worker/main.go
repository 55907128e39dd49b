// The worker binary claims and processes job batches on a fixed interval.
// Run it alongside a bot process started with an empty dispatch cron when
// the two roles are deployed separately against a shared Postgres queue.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"tickerbot/config"
	"tickerbot/internal/dispatch"
	"tickerbot/internal/history"
	"tickerbot/internal/logger"
	"tickerbot/internal/market"
	"tickerbot/internal/metrics"
	"tickerbot/internal/notification"
	"tickerbot/internal/queue"
	pgqueue "tickerbot/internal/queue/postgres"
	sqlitequeue "tickerbot/internal/queue/sqlite"
)

const pollInterval = 5 * time.Second

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	logger.Init("worker", slog.LevelInfo)
	log.Println("[worker] starting...")

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[worker] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[worker] config validation: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Job queue store ----
	os.MkdirAll(filepath.Dir(cfg.Database.QueuePath), 0o755)
	var store queue.Store
	if cfg.Database.PostgresDSN != "" {
		pool, err := pgqueue.NewPool(ctx, cfg.Database.PostgresDSN)
		if err != nil {
			log.Fatalf("[worker] postgres init failed: %v", err)
		}
		defer pool.Close()
		pg := pgqueue.New(pool)
		if err := pg.CreateSchema(ctx); err != nil {
			log.Fatalf("[worker] postgres schema: %v", err)
		}
		store = pg
	} else {
		sq, err := sqlitequeue.New(cfg.Database.QueuePath)
		if err != nil {
			log.Fatalf("[worker] sqlite queue init failed: %v", err)
		}
		defer sq.Close()
		store = sq
	}

	// ---- History store ----
	os.MkdirAll(filepath.Dir(cfg.Database.HistoryPath), 0o755)
	hist, err := history.New(cfg.Database.HistoryPath)
	if err != nil {
		log.Fatalf("[worker] history init failed: %v", err)
	}
	defer hist.Close()
	health.SetSQLiteOK(true)
	health.StartLivenessChecker(ctx, nil, hist.DB(), 10*time.Second)

	// ---- Telegram ----
	tg := notification.NewTelegram(cfg.Telegram.BotToken)
	tg.OnSent = func(kind string) {
		prom.NotificationsSent.WithLabelValues(kind).Inc()
	}
	health.SetTelegramOK(true)

	// ---- Market data source ----
	var source market.Source = market.NewBinance(cfg.Binance.APIKey, cfg.Binance.SecretKey)
	if cfg.Redis.Addr != "" {
		cache, err := market.NewCache(source, market.CacheConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      time.Duration(cfg.Redis.TTLSec) * time.Second,
		})
		if err != nil {
			log.Printf("[worker] WARNING: redis cache unavailable: %v (continuing uncached)", err)
		} else {
			defer cache.Close()
			source = cache
			health.SetRedisConnected(true)
		}
	}
	source = market.NewObserved(source, func() {
		prom.UpstreamFailures.WithLabelValues("binance").Inc()
	})

	handlers := dispatch.NewHandlers(source, tg, hist)
	disp := dispatch.New(store, handlers.Map(), tg,
		dispatch.WithBatchSize(cfg.Worker.BatchSize),
		dispatch.WithJobDelay(time.Duration(cfg.Worker.JobDelayMS)*time.Millisecond),
		dispatch.WithMetrics(prom),
	)

	// ---- Dispatch loop ----
	log.Printf("[worker] running, polling every %s", pollInterval)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			metricsSrv.Stop(shutdownCtx)
			cancel()
			log.Println("[worker] stopped")
			return
		case <-ticker.C:
			n, err := disp.RunBatch(ctx)
			if err != nil {
				log.Printf("[worker] batch: %v", err)
			}
			if n > 0 {
				log.Printf("[worker] processed %d jobs", n)
			}
			health.SetLastDispatchAt(time.Now())
		}
	}
}
