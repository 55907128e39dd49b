// The backfill binary is a one-shot loader of daily candles into the
// history store, so StochRSI sweeps have closes to work with on a fresh
// deployment.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tickerbot/config"
	"tickerbot/internal/history"
	"tickerbot/internal/logger"
	"tickerbot/internal/market"
)

const defaultSymbols = "BTCUSDT,ETHUSDT,BNBUSDT,SOLUSDT,XRPUSDT"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	logger.Init("backfill", slog.LevelInfo)

	symbolsFlag := flag.String("symbols", defaultSymbols, "comma-separated symbols to backfill")
	days := flag.Int("days", 365, "number of daily candles per symbol")
	flag.Parse()

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[backfill] load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	os.MkdirAll(filepath.Dir(cfg.Database.HistoryPath), 0o755)
	hist, err := history.New(cfg.Database.HistoryPath)
	if err != nil {
		log.Fatalf("[backfill] history init failed: %v", err)
	}
	defer hist.Close()

	source := market.NewBinance(cfg.Binance.APIKey, cfg.Binance.SecretKey)

	var failed int
	for _, symbol := range strings.Split(*symbolsFlag, ",") {
		symbol = market.Symbol(symbol, "", "")
		if symbol == "" {
			continue
		}
		candles, err := source.Candles(ctx, symbol, "1d", *days)
		if err != nil {
			log.Printf("[backfill] %s: fetch: %v", symbol, err)
			failed++
			continue
		}
		n, err := hist.UpsertDailyCandles(ctx, symbol, candles)
		if err != nil {
			log.Printf("[backfill] %s: store: %v", symbol, err)
			failed++
			continue
		}
		log.Printf("[backfill] %s: %d candles upserted", symbol, n)
	}

	if failed > 0 {
		log.Fatalf("[backfill] finished with %d failed symbols", failed)
	}
	log.Println("[backfill] done")
}
