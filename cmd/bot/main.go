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

	goredis "github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"

	"tickerbot/config"
	"tickerbot/internal/bot"
	"tickerbot/internal/dispatch"
	"tickerbot/internal/history"
	"tickerbot/internal/logger"
	"tickerbot/internal/market"
	"tickerbot/internal/metrics"
	"tickerbot/internal/notification"
	"tickerbot/internal/queue"
	pgqueue "tickerbot/internal/queue/postgres"
	sqlitequeue "tickerbot/internal/queue/sqlite"
	"tickerbot/internal/scheduler"
	"tickerbot/internal/sentiment"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	logger.Init("bot", slog.LevelInfo)
	log.Println("[bot] starting...")

	// ---- Load config ----
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[bot] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[bot] config validation: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- Metrics & health ----
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
			log.Fatalf("[bot] postgres init failed: %v", err)
		}
		defer pool.Close()
		pg := pgqueue.New(pool)
		if err := pg.CreateSchema(ctx); err != nil {
			log.Fatalf("[bot] postgres schema: %v", err)
		}
		store = pg
		log.Println("[bot] queue store: postgres")
	} else {
		sq, err := sqlitequeue.New(cfg.Database.QueuePath)
		if err != nil {
			log.Fatalf("[bot] sqlite queue init failed: %v", err)
		}
		defer sq.Close()
		store = sq
		log.Println("[bot] queue store: sqlite")
	}

	// ---- History store ----
	os.MkdirAll(filepath.Dir(cfg.Database.HistoryPath), 0o755)
	hist, err := history.New(cfg.Database.HistoryPath)
	if err != nil {
		log.Fatalf("[bot] history init failed: %v", err)
	}
	defer hist.Close()
	health.SetSQLiteOK(true)

	// ---- Telegram ----
	tg := notification.NewTelegram(cfg.Telegram.BotToken)
	tg.OnSent = func(kind string) {
		prom.NotificationsSent.WithLabelValues(kind).Inc()
	}
	health.SetTelegramOK(true)

	// ---- Market data source ----
	var source market.Source = market.NewBinance(cfg.Binance.APIKey, cfg.Binance.SecretKey)
	var redisClient *goredis.Client
	if cfg.Redis.Addr != "" {
		cache, err := market.NewCache(source, market.CacheConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      time.Duration(cfg.Redis.TTLSec) * time.Second,
		})
		if err != nil {
			log.Printf("[bot] WARNING: redis cache unavailable: %v (continuing uncached)", err)
		} else {
			defer cache.Close()
			source = cache
			redisClient = cache.Client()
			health.SetRedisConnected(true)
		}
	}
	source = market.NewObserved(source, func() {
		prom.UpstreamFailures.WithLabelValues("binance").Inc()
	})

	health.StartLivenessChecker(ctx, redisClient, hist.DB(), 10*time.Second)

	// ---- Live ticker stream ----
	stream := market.NewTickerStream()
	stream.OnReconnect = func() {
		prom.StreamReconnects.Inc()
		health.SetStreamConnected(false)
	}

	// ---- Dispatcher ----
	handlers := dispatch.NewHandlers(source, tg, hist)
	disp := dispatch.New(store, handlers.Map(), tg,
		dispatch.WithBatchSize(cfg.Worker.BatchSize),
		dispatch.WithJobDelay(time.Duration(cfg.Worker.JobDelayMS)*time.Millisecond),
		dispatch.WithMetrics(prom),
	)

	// ---- Command router ----
	router := bot.NewRouter(store, tg, prom)

	// ---- Periodic tasks ----
	monitor := sentiment.NewMonitor(source, stream, hist, tg, cfg.Telegram.AlertChatID, cfg.Sentiment.Threshold, prom)
	checker := sentiment.NewChecker(hist, tg, cfg.Telegram.AlertChatID, cfg.Sentiment.AlertSymbols, prom)

	sched := scheduler.New(ctx)
	mustRegister(sched, "dispatch", cfg.Schedule.DispatchCron, func(ctx context.Context) error {
		n, err := disp.RunBatch(ctx)
		if n > 0 {
			log.Printf("[bot] dispatched %d jobs", n)
		}
		health.SetLastDispatchAt(time.Now())
		return err
	})
	mustRegister(sched, "sentiment", cfg.Schedule.SentimentCron, monitor.Run)
	mustRegister(sched, "stochrsi", cfg.Schedule.StochRSICron, checker.Run)
	sched.Start()
	defer sched.Stop()

	// ---- Run ----
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		health.SetStreamConnected(true)
		stream.Run(gctx)
		health.SetStreamConnected(false)
		return nil
	})
	g.Go(func() error {
		tg.StartPolling(gctx, router.HandleMessage)
		return nil
	})
	log.Println("[bot] running, press Ctrl+C to stop")

	if err := g.Wait(); err != nil {
		log.Printf("[bot] run error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	metricsSrv.Stop(shutdownCtx)
	log.Println("[bot] stopped")
}

func mustRegister(s *scheduler.Scheduler, name, spec string, task scheduler.Task) {
	if err := s.Register(name, spec, task); err != nil {
		log.Fatalf("[bot] register %s task: %v", name, err)
	}
}
