package dispatch

import (
	"context"
	"fmt"
	"log"
	"time"

	"tickerbot/internal/chart"
	"tickerbot/internal/indicator"
	"tickerbot/internal/market"
	"tickerbot/internal/model"
	"tickerbot/internal/notification"
)

const (
	lineChartInterval = "5m"
	lineChartCandles  = 12

	candlestickInterval = "1d"
	candlestickCandles  = 30

	stochRSIInterval = "4h"
	stochRSICandles  = 100
)

// PriceRecorder persists price observations made while serving commands.
type PriceRecorder interface {
	SavePriceSample(ctx context.Context, sample model.PriceSample) error
}

// Handlers binds each command to its market data flow and reply format.
type Handlers struct {
	source   market.Source
	sink     notification.Sink
	recorder PriceRecorder // may be nil
}

// NewHandlers builds the command handler set. recorder may be nil to skip
// price persistence.
func NewHandlers(source market.Source, sink notification.Sink, recorder PriceRecorder) *Handlers {
	return &Handlers{source: source, sink: sink, recorder: recorder}
}

// Map returns the command table for a Dispatcher.
func (h *Handlers) Map() map[model.Command]Handler {
	return map[model.Command]Handler{
		model.CommandPrice:       h.Price,
		model.CommandChart:       h.LineChart,
		model.CommandCandlestick: h.Candlestick,
		model.CommandIndicator:   h.StochRSI,
	}
}

// Price replies with the pair's 24h statistics and records the sample.
func (h *Handlers) Price(ctx context.Context, job model.Job) error {
	ticker, err := h.source.Ticker24h(ctx, job.Pair)
	if err != nil {
		return fmt.Errorf("fetch price data for %s: %w", job.Pair, err)
	}

	message := fmt.Sprintf("💰 *%s Price*\n\n", ticker.Symbol)
	message += fmt.Sprintf("💵 Price: `%s`\n", notification.FormatPrice(ticker.LastPrice))
	message += fmt.Sprintf("📊 24h Change: %s\n", notification.FormatPercentage(ticker.ChangePercent))
	message += fmt.Sprintf("📈 24h High: `%s`\n", notification.FormatPrice(ticker.High))
	message += fmt.Sprintf("📉 24h Low: `%s`\n", notification.FormatPrice(ticker.Low))
	message += fmt.Sprintf("📦 24h Volume: `%.2f`\n", ticker.Volume)
	message += fmt.Sprintf("\n⏰ Updated: %s", time.Now().UTC().Format("2006-01-02 15:04:05"))

	if err := h.sink.SendText(ctx, job.ChatID, message); err != nil {
		return err
	}

	if h.recorder != nil {
		sample := model.PriceSample{
			Symbol:  ticker.Symbol,
			Price:   ticker.LastPrice,
			High24h: ticker.High,
			Low24h:  ticker.Low,
		}
		if err := h.recorder.SavePriceSample(ctx, sample); err != nil {
			// The user already has their answer; persistence is advisory.
			log.Printf("[dispatch] save price sample %s: %v", ticker.Symbol, err)
		}
	}
	return nil
}

// LineChart replies with a 5-minute line chart covering the last hour.
func (h *Handlers) LineChart(ctx context.Context, job model.Job) error {
	candles, err := h.source.Candles(ctx, job.Pair, lineChartInterval, lineChartCandles)
	if err != nil {
		return fmt.Errorf("fetch chart data for %s: %w", job.Pair, err)
	}

	chartURL := chart.LineChart(candles, job.Pair, lineChartInterval)
	if chartURL == "" {
		return fmt.Errorf("generate chart for %s: empty series", job.Pair)
	}

	caption := fmt.Sprintf("📈 *%s Line Chart*\n5-minute intervals (Last hour)", job.Pair)
	return h.sink.SendPhoto(ctx, job.ChatID, chartURL, caption)
}

// Candlestick replies with a 30-day daily candlestick chart.
func (h *Handlers) Candlestick(ctx context.Context, job model.Job) error {
	candles, err := h.source.Candles(ctx, job.Pair, candlestickInterval, candlestickCandles)
	if err != nil {
		return fmt.Errorf("fetch candlestick data for %s: %w", job.Pair, err)
	}

	chartURL := chart.CandlestickChart(candles, job.Pair)
	if chartURL == "" {
		return fmt.Errorf("generate candlestick chart for %s: empty series", job.Pair)
	}

	caption := fmt.Sprintf("🕯️ *%s Candlestick Chart*\nDaily candles (Last 30 days)", job.Pair)
	return h.sink.SendPhoto(ctx, job.ChatID, chartURL, caption)
}

// StochRSI computes StochRSI(14,14,3,3) over 4h closes, replies with the
// interpreted signal, and follows up with the indicator chart.
func (h *Handlers) StochRSI(ctx context.Context, job model.Job) error {
	closes, err := h.source.RecentCloses(ctx, job.Pair, stochRSICandles)
	if err != nil {
		return fmt.Errorf("fetch data for indicator calculation: %w", err)
	}

	result := indicator.StochRSI(closes, 14, 14, 3, 3)
	k, d, ok := result.Latest()
	if !ok {
		return fmt.Errorf("insufficient data for StochRSI calculation (%d closes)", len(closes))
	}

	signal := indicator.InterpretSignal(k, d)

	message := fmt.Sprintf("📊 *%s Stochastic RSI*\n\n", job.Pair)
	message += fmt.Sprintf("%s *%s*\n", signal.Emoji, signal.Condition)
	message += fmt.Sprintf("📌 Signal: *%s*\n\n", signal.Action)
	message += fmt.Sprintf("📈 K Line: `%.2f`\n", signal.K)
	message += fmt.Sprintf("📉 D Line: `%.2f`\n\n", signal.D)
	message += fmt.Sprintf("💡 %s\n", signal.Description)
	message += fmt.Sprintf("\n⏰ Calculated: %s", time.Now().UTC().Format("2006-01-02 15:04:05"))

	if err := h.sink.SendText(ctx, job.ChatID, message); err != nil {
		return err
	}

	if chartURL := chart.StochRSIChart(result.K, result.D, job.Pair); chartURL != "" {
		caption := fmt.Sprintf("StochRSI Chart for %s", job.Pair)
		if err := h.sink.SendPhoto(ctx, job.ChatID, chartURL, caption); err != nil {
			log.Printf("[dispatch] send stochrsi chart %s: %v", job.Pair, err)
		}
	}
	return nil
}
