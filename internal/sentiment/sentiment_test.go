package sentiment

import (
	"context"
	"strings"
	"testing"

	"tickerbot/internal/model"
)

type recordingSink struct {
	texts []string
	chats []int64
}

func (s *recordingSink) SendText(_ context.Context, chatID int64, text string) error {
	s.texts = append(s.texts, text)
	s.chats = append(s.chats, chatID)
	return nil
}

func (s *recordingSink) SendPhoto(_ context.Context, _ int64, _, _ string) error {
	return nil
}

type fakeTickers struct {
	tickers []model.Ticker24h
}

func (f *fakeTickers) RecentCloses(context.Context, string, int) ([]float64, error) {
	return nil, nil
}
func (f *fakeTickers) Candles(context.Context, string, string, int) ([]model.Candle, error) {
	return nil, nil
}
func (f *fakeTickers) Ticker24h(context.Context, string) (*model.Ticker24h, error) {
	return nil, nil
}
func (f *fakeTickers) AllTickers(context.Context) ([]model.Ticker24h, error) {
	return f.tickers, nil
}

type reportRecorder struct {
	reports []model.SentimentReport
}

func (r *reportRecorder) SaveSentimentReport(_ context.Context, rep model.SentimentReport) error {
	r.reports = append(r.reports, rep)
	return nil
}

func tickersWithMovers(moon, crash, flat int) []model.Ticker24h {
	var out []model.Ticker24h
	for i := 0; i < moon; i++ {
		out = append(out, model.Ticker24h{Symbol: "MOONUSDT", ChangePercent: 8})
	}
	for i := 0; i < crash; i++ {
		out = append(out, model.Ticker24h{Symbol: "DUMPUSDT", ChangePercent: -9})
	}
	for i := 0; i < flat; i++ {
		out = append(out, model.Ticker24h{Symbol: "FLATUSDT", ChangePercent: 0.3})
	}
	// Non-USDT pairs never count, however hard they move.
	out = append(out, model.Ticker24h{Symbol: "BTCEUR", ChangePercent: 50})
	return out
}

func TestMonitorCountsAndPersists(t *testing.T) {
	sink := &recordingSink{}
	recorder := &reportRecorder{}
	source := &fakeTickers{tickers: tickersWithMovers(15, 3, 20)}

	m := NewMonitor(source, nil, recorder, sink, 99, 5.0, nil)
	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(recorder.reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(recorder.reports))
	}
	rep := recorder.reports[0]
	if rep.MoonCount != 15 || rep.CrashCount != 3 {
		t.Errorf("counts = %d/%d, want 15/3", rep.MoonCount, rep.CrashCount)
	}
	if !strings.Contains(rep.MoonLevel, "Go Moon") {
		t.Errorf("moon level = %q, want Go Moon tier for count 15", rep.MoonLevel)
	}
	if !strings.Contains(rep.CrashLevel, "Go Crash") {
		t.Errorf("crash level = %q", rep.CrashLevel)
	}

	// 15 movers crosses the notify threshold.
	if len(sink.texts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(sink.texts))
	}
	if sink.chats[0] != 99 {
		t.Errorf("alert chat = %d, want 99", sink.chats[0])
	}
	if !strings.Contains(sink.texts[0], "Bullish Movement") {
		t.Errorf("alert = %q", sink.texts[0])
	}
	if strings.Contains(sink.texts[0], "Bearish Movement") {
		t.Error("crash side below threshold must not appear")
	}
}

func TestMonitorQuietMarketStaysSilent(t *testing.T) {
	sink := &recordingSink{}
	source := &fakeTickers{tickers: tickersWithMovers(2, 1, 50)}

	m := NewMonitor(source, nil, nil, sink, 99, 5.0, nil)
	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.texts) != 0 {
		t.Errorf("alerts = %d, want 0", len(sink.texts))
	}
}

// fakeCloses serves canned daily series.
type fakeCloses struct {
	series map[string][]float64
}

func (f *fakeCloses) Symbols(context.Context) ([]string, error) {
	var out []string
	for s := range f.series {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeCloses) RecentCloses(_ context.Context, symbol string, count int) ([]float64, error) {
	closes := f.series[symbol]
	if len(closes) > count {
		closes = closes[len(closes)-count:]
	}
	return closes, nil
}

// trendingDown builds a series whose StochRSI ends pinned at zero
// (oversold).
func trendingDown(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1000 - float64(i)
	}
	return out
}

func TestCheckerAlertsOnSignals(t *testing.T) {
	sink := &recordingSink{}
	store := &fakeCloses{series: map[string][]float64{
		"BTC_IDR": trendingDown(100),
		"ETH_IDR": {1, 2, 3}, // too short, skipped
	}}

	c := NewChecker(store, sink, 42, []string{"BTC_IDR", "ETH_IDR"}, nil)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(sink.texts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(sink.texts))
	}
	msg := sink.texts[0]
	if !strings.Contains(msg, "StochRSI Alert") {
		t.Errorf("alert = %q", msg)
	}
	if !strings.Contains(msg, "BTC_IDR") {
		t.Errorf("alert missing signal pair:\n%s", msg)
	}
	if strings.Contains(msg, "ETH_IDR") {
		t.Error("short series must not produce a signal")
	}
	if !strings.Contains(msg, "Oversold") {
		t.Errorf("steady downtrend should grade oversold:\n%s", msg)
	}
}

func TestCheckerSilentWhenNothingToReport(t *testing.T) {
	sink := &recordingSink{}
	store := &fakeCloses{series: map[string][]float64{}}

	c := NewChecker(store, sink, 42, nil, nil)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.texts) != 0 {
		t.Errorf("alerts = %d, want 0 for empty store", len(sink.texts))
	}
}
