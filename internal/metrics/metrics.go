package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the bot and worker.
type Metrics struct {
	JobsEnqueued  prometheus.Counter
	JobsClaimed   prometheus.Counter
	JobsDone      prometheus.Counter
	JobsFailed    prometheus.Counter
	JobsCancelled prometheus.Counter

	JobDuration *prometheus.HistogramVec // labels: command
	QueueDepth  *prometheus.GaugeVec     // labels: status

	UpstreamFailures  *prometheus.CounterVec // labels: source
	NotificationsSent *prometheus.CounterVec // labels: kind
	StreamReconnects  prometheus.Counter

	SentimentRuns     prometheus.Counter
	StochRSIAlertRuns prometheus.Counter
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		JobsEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickerbot_jobs_enqueued_total",
			Help: "Jobs accepted from user commands",
		}),
		JobsClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickerbot_jobs_claimed_total",
			Help: "Jobs claimed by dispatcher runs",
		}),
		JobsDone: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickerbot_jobs_done_total",
			Help: "Jobs completed successfully",
		}),
		JobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickerbot_jobs_failed_total",
			Help: "Jobs that ended in failure",
		}),
		JobsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickerbot_jobs_cancelled_total",
			Help: "Pending jobs cancelled by users",
		}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tickerbot_job_duration_seconds",
			Help:    "Handler latency per command",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tickerbot_queue_depth",
			Help: "Jobs per queue status",
		}, []string{"status"}),
		UpstreamFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tickerbot_upstream_failures_total",
			Help: "Exchange API calls that failed after retries (by source)",
		}, []string{"source"}),
		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tickerbot_notifications_sent_total",
			Help: "Messages delivered to users (by kind: text, photo)",
		}, []string{"kind"}),
		StreamReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickerbot_stream_reconnects_total",
			Help: "Ticker websocket reconnection attempts",
		}),
		SentimentRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickerbot_sentiment_runs_total",
			Help: "Completed market sentiment scans",
		}),
		StochRSIAlertRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickerbot_stochrsi_alert_runs_total",
			Help: "Completed StochRSI alert sweeps",
		}),
	}

	prometheus.MustRegister(
		m.JobsEnqueued,
		m.JobsClaimed,
		m.JobsDone,
		m.JobsFailed,
		m.JobsCancelled,
		m.JobDuration,
		m.QueueDepth,
		m.UpstreamFailures,
		m.NotificationsSent,
		m.StreamReconnects,
		m.SentimentRuns,
		m.StochRSIAlertRuns,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	TelegramOK      bool      `json:"telegram_ok"`
	RedisConnected  bool      `json:"redis_connected"`
	SQLiteOK        bool      `json:"sqlite_ok"`
	StreamConnected bool      `json:"stream_connected"`
	LastDispatchAt  time.Time `json:"last_dispatch_at"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetTelegramOK(v bool) {
	h.mu.Lock()
	h.TelegramOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetStreamConnected(v bool) {
	h.mu.Lock()
	h.StreamConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastDispatchAt(t time.Time) {
	h.mu.Lock()
	h.LastDispatchAt = t
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// Determine overall status
	overallStatus := "healthy"
	httpCode := http.StatusOK

	if !h.TelegramOK || !h.SQLiteOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.TelegramOK && !h.SQLiteOK {
		overallStatus = "unhealthy"
	}

	// Dispatch age
	dispatchAge := ""
	if !h.LastDispatchAt.IsZero() {
		dispatchAge = time.Since(h.LastDispatchAt).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		TelegramOK      bool    `json:"telegram_ok"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		StreamConnected bool    `json:"stream_connected"`
		LastDispatchAt  string  `json:"last_dispatch_at"`
		DispatchAge     string  `json:"dispatch_age"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		TelegramOK:      h.TelegramOK,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		StreamConnected: h.StreamConnected,
		LastDispatchAt:  h.LastDispatchAt.Format(time.RFC3339),
		DispatchAge:     dispatchAge,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
