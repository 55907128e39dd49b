// Package history persists market observations: spot price samples per
// pair, daily OHLC series for offline indicator runs, and sentiment
// report snapshots.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tickerbot/internal/model"
)

// Store is a SQLite-backed history store.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the history database with WAL mode and the schema.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[history] opened sqlite database at %s", path)
	return &Store{db: db}, nil
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS price_history (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol      TEXT    NOT NULL,
			price       REAL    NOT NULL,
			high        REAL    NOT NULL,
			low         REAL    NOT NULL,
			recorded_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_price_history_symbol_recorded
			ON price_history (symbol, recorded_at);

		CREATE TABLE IF NOT EXISTS daily_candles (
			symbol TEXT    NOT NULL,
			ts     INTEGER NOT NULL,
			open   REAL    NOT NULL,
			high   REAL    NOT NULL,
			low    REAL    NOT NULL,
			close  REAL    NOT NULL,
			volume REAL    NOT NULL,
			PRIMARY KEY (symbol, ts)
		);

		CREATE TABLE IF NOT EXISTS sentiment_reports (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			moon_count  INTEGER NOT NULL,
			moon_level  TEXT    NOT NULL,
			crash_count INTEGER NOT NULL,
			crash_level TEXT    NOT NULL,
			created_at  INTEGER NOT NULL
		);
	`)
	return err
}

// SavePriceSample appends one price observation for a pair.
func (s *Store) SavePriceSample(ctx context.Context, sample model.PriceSample) error {
	recordedAt := sample.RecordedAt
	if recordedAt == 0 {
		recordedAt = time.Now().UnixMilli()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO price_history (symbol, price, high, low, recorded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sample.Symbol, sample.Price, sample.High24h, sample.Low24h, recordedAt,
	)
	if err != nil {
		return fmt.Errorf("save price sample: %w", err)
	}
	return nil
}

// UpsertDailyCandles writes a daily OHLC series, replacing rows that share
// the same (symbol, ts). Returns how many candles were written.
func (s *Store) UpsertDailyCandles(ctx context.Context, symbol string, candles []model.Candle) (int64, error) {
	if len(candles) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("upsert candles: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO daily_candles (symbol, ts, open, high, low, close, volume)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (symbol, ts) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume`,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert candles: %w", err)
	}
	defer stmt.Close()

	var written int64
	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, symbol, c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			return 0, fmt.Errorf("upsert candle %s@%d: %w", symbol, c.Timestamp, err)
		}
		written++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("upsert candles: %w", err)
	}
	return written, nil
}

// RecentCloses returns up to count daily closing prices for symbol,
// ordered oldest first.
func (s *Store) RecentCloses(ctx context.Context, symbol string, count int) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT close FROM daily_candles
		 WHERE symbol = ?
		 ORDER BY ts DESC
		 LIMIT ?`,
		symbol, count,
	)
	if err != nil {
		return nil, fmt.Errorf("recent closes: %w", err)
	}
	defer rows.Close()

	var closes []float64
	for rows.Next() {
		var c float64
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan close: %w", err)
		}
		closes = append(closes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query walks newest first; restore chronological order.
	for i, j := 0, len(closes)-1; i < j; i, j = i+1, j-1 {
		closes[i], closes[j] = closes[j], closes[i]
	}
	return closes, nil
}

// Symbols returns every pair that has daily candles stored.
func (s *Store) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT symbol FROM daily_candles ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// SaveSentimentReport appends one sentiment snapshot.
func (s *Store) SaveSentimentReport(ctx context.Context, r model.SentimentReport) error {
	createdAt := r.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sentiment_reports (moon_count, moon_level, crash_count, crash_level, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		r.MoonCount, r.MoonLevel, r.CrashCount, r.CrashLevel, createdAt,
	)
	if err != nil {
		return fmt.Errorf("save sentiment report: %w", err)
	}
	return nil
}

// LatestSentimentReport returns the most recent snapshot, or nil when the
// table is empty.
func (s *Store) LatestSentimentReport(ctx context.Context) (*model.SentimentReport, error) {
	var r model.SentimentReport
	err := s.db.QueryRowContext(ctx,
		`SELECT id, moon_count, moon_level, crash_count, crash_level, created_at
		 FROM sentiment_reports
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
	).Scan(&r.ID, &r.MoonCount, &r.MoonLevel, &r.CrashCount, &r.CrashLevel, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest sentiment report: %w", err)
	}
	return &r, nil
}
