package chart

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"tickerbot/internal/model"
)

func sampleCandles(n int) []model.Candle {
	candles := make([]model.Candle, n)
	ts := int64(1700000000000)
	for i := range candles {
		price := 100 + float64(i)
		candles[i] = model.Candle{
			Timestamp: ts + int64(i)*300_000,
			Open:      price,
			High:      price + 2,
			Low:       price - 2,
			Close:     price + 1,
			Volume:    10,
		}
	}
	return candles
}

// decodeConfig extracts and parses the Chart.js config from a built URL.
func decodeConfig(t *testing.T, raw string) map[string]any {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("built URL does not parse: %v", err)
	}
	c := u.Query().Get("c")
	if c == "" {
		t.Fatal("missing c= chart config parameter")
	}
	var cfg map[string]any
	if err := json.Unmarshal([]byte(c), &cfg); err != nil {
		t.Fatalf("chart config is not valid JSON: %v", err)
	}
	return cfg
}

func TestLineChart(t *testing.T) {
	got := LineChart(sampleCandles(12), "BTCUSDT", "5m")
	if !strings.HasPrefix(got, "https://quickchart.io/chart?") {
		t.Fatalf("unexpected URL prefix: %s", got)
	}
	cfg := decodeConfig(t, got)
	if cfg["type"] != "line" {
		t.Errorf("type = %v, want line", cfg["type"])
	}
	if !strings.Contains(got, "width=800") || !strings.Contains(got, "height=400") {
		t.Error("missing width/height parameters")
	}
}

func TestLineChart_EmptyInput(t *testing.T) {
	if got := LineChart(nil, "BTCUSDT", "5m"); got != "" {
		t.Errorf("expected empty sentinel, got %q", got)
	}
}

func TestCandlestickChart(t *testing.T) {
	got := CandlestickChart(sampleCandles(30), "ETHUSDT")
	cfg := decodeConfig(t, got)
	if cfg["type"] != "candlestick" {
		t.Errorf("type = %v, want candlestick", cfg["type"])
	}

	data := cfg["data"].(map[string]any)
	datasets := data["datasets"].([]any)
	points := datasets[0].(map[string]any)["data"].([]any)
	if len(points) != 30 {
		t.Fatalf("expected 30 OHLC points, got %d", len(points))
	}
	first := points[0].(map[string]any)
	for _, key := range []string{"o", "h", "l", "c"} {
		if _, ok := first[key]; !ok {
			t.Errorf("OHLC point missing %q", key)
		}
	}

	if got := CandlestickChart(nil, "ETHUSDT"); got != "" {
		t.Errorf("expected empty sentinel, got %q", got)
	}
}

func TestStochRSIChart_ThresholdBands(t *testing.T) {
	k := []float64{10, 20, 30, 40}
	d := []float64{15, 25, 35}
	got := StochRSIChart(k, d, "BTCUSDT")
	cfg := decodeConfig(t, got)

	annotations := cfg["options"].(map[string]any)["annotation"].(map[string]any)["annotations"].([]any)
	if len(annotations) != 2 {
		t.Fatalf("expected 2 threshold bands, got %d", len(annotations))
	}
	values := map[float64]bool{}
	for _, a := range annotations {
		values[a.(map[string]any)["value"].(float64)] = true
	}
	if !values[20] || !values[80] {
		t.Errorf("expected reference lines at 20 and 80, got %v", values)
	}

	data := cfg["data"].(map[string]any)
	datasets := data["datasets"].([]any)
	if len(datasets) != 2 {
		t.Fatalf("expected K and D datasets, got %d", len(datasets))
	}
}

func TestStochRSIChart_EmptyInput(t *testing.T) {
	if got := StochRSIChart(nil, []float64{1}, "X"); got != "" {
		t.Errorf("expected empty sentinel for empty K, got %q", got)
	}
	if got := StochRSIChart([]float64{1}, nil, "X"); got != "" {
		t.Errorf("expected empty sentinel for empty D, got %q", got)
	}
}

func TestComparisonChart_Colors(t *testing.T) {
	got := ComparisonChart([]string{"BTCUSDT", "ETHUSDT"}, []float64{5.5, -3.2})
	cfg := decodeConfig(t, got)
	if cfg["type"] != "bar" {
		t.Errorf("type = %v, want bar", cfg["type"])
	}
	datasets := cfg["data"].(map[string]any)["datasets"].([]any)
	colors := datasets[0].(map[string]any)["backgroundColor"].([]any)
	if !strings.Contains(colors[0].(string), "75, 192, 192") {
		t.Errorf("gainer color = %v, want green", colors[0])
	}
	if !strings.Contains(colors[1].(string), "255, 99, 132") {
		t.Errorf("loser color = %v, want red", colors[1])
	}

	if got := ComparisonChart(nil, nil); got != "" {
		t.Errorf("expected empty sentinel, got %q", got)
	}
}
