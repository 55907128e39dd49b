// Package chart builds quickchart.io render URLs from price series.
//
// Building is a pure transform: no network I/O happens here, the returned
// URL is handed to the notification sink which lets Telegram fetch the
// rendered image. Every builder returns the empty string when given an
// empty series; callers treat that as "nothing to render", not an error.
package chart

import (
	"encoding/json"
	"net/url"
	"strconv"

	"tickerbot/internal/model"
)

const baseURL = "https://quickchart.io/chart"

type config map[string]any

// LineChart renders closing prices as a single line over time.
func LineChart(candles []model.Candle, symbol, interval string) string {
	if len(candles) == 0 {
		return ""
	}

	labels := make([]string, len(candles))
	prices := make([]float64, len(candles))
	for i, c := range candles {
		labels[i] = c.OpenTime().Format("15:04")
		prices[i] = c.Close
	}

	cfg := config{
		"type": "line",
		"data": config{
			"labels": labels,
			"datasets": []config{{
				"label":            symbol,
				"data":             prices,
				"fill":             false,
				"borderColor":      "rgb(75, 192, 192)",
				"tension":          0.1,
				"pointRadius":      2,
				"pointHoverRadius": 5,
			}},
		},
		"options": config{
			"title": config{
				"display":  true,
				"text":     symbol + " Price Chart (" + interval + ")",
				"fontSize": 16,
			},
			"legend": config{"display": false},
			"scales": config{
				"xAxes": []config{axis("Time")},
				"yAxes": []config{axis("Price (USDT)")},
			},
		},
	}

	return buildURL(cfg, 800, 400)
}

// CandlestickChart renders daily OHLC candles.
func CandlestickChart(candles []model.Candle, symbol string) string {
	if len(candles) == 0 {
		return ""
	}

	labels := make([]string, len(candles))
	ohlc := make([]config, len(candles))
	for i, c := range candles {
		labels[i] = c.OpenTime().Format("Jan 02")
		ohlc[i] = config{"o": c.Open, "h": c.High, "l": c.Low, "c": c.Close}
	}

	cfg := config{
		"type": "candlestick",
		"data": config{
			"labels": labels,
			"datasets": []config{{
				"label": symbol,
				"data":  ohlc,
			}},
		},
		"options": config{
			"title": config{
				"display":  true,
				"text":     symbol + " Candlestick Chart (30 Days)",
				"fontSize": 16,
			},
			"legend": config{"display": false},
			"scales": config{
				"xAxes": []config{axis("Date")},
				"yAxes": []config{axis("Price (USDT)")},
			},
		},
	}

	return buildURL(cfg, 800, 500)
}

// StochRSIChart renders the K and D lines with dashed reference bands at
// the 20 (oversold) and 80 (overbought) thresholds.
func StochRSIChart(k, d []float64, symbol string) string {
	if len(k) == 0 || len(d) == 0 {
		return ""
	}

	labels := make([]int, len(k))
	for i := range labels {
		labels[i] = i + 1
	}

	yAxis := axis("StochRSI Value")
	yAxis["ticks"] = config{"min": 0, "max": 100}

	cfg := config{
		"type": "line",
		"data": config{
			"labels": labels,
			"datasets": []config{
				{
					"label":       "K Line",
					"data":        k,
					"fill":        false,
					"borderColor": "rgb(54, 162, 235)",
					"tension":     0.1,
					"pointRadius": 2,
				},
				{
					"label":       "D Line",
					"data":        d,
					"fill":        false,
					"borderColor": "rgb(255, 99, 132)",
					"tension":     0.1,
					"pointRadius": 2,
				},
			},
		},
		"options": config{
			"title": config{
				"display":  true,
				"text":     symbol + " Stochastic RSI",
				"fontSize": 16,
			},
			"legend": config{"display": true, "position": "top"},
			"scales": config{
				"xAxes": []config{axis("Period")},
				"yAxes": []config{yAxis},
			},
			"annotation": config{
				"annotations": []config{
					thresholdLine(80, "red", "Overbought"),
					thresholdLine(20, "green", "Oversold"),
				},
			},
		},
	}

	return buildURL(cfg, 800, 400)
}

// ComparisonChart renders 24h percentage changes as a bar chart, green for
// gainers and red for losers.
func ComparisonChart(symbols []string, changes []float64) string {
	if len(symbols) == 0 || len(changes) == 0 {
		return ""
	}

	colors := make([]string, len(changes))
	for i, v := range changes {
		if v >= 0 {
			colors[i] = "rgba(75, 192, 192, 0.8)"
		} else {
			colors[i] = "rgba(255, 99, 132, 0.8)"
		}
	}

	cfg := config{
		"type": "bar",
		"data": config{
			"labels": symbols,
			"datasets": []config{{
				"label":           "24h Change (%)",
				"data":            changes,
				"backgroundColor": colors,
			}},
		},
		"options": config{
			"title": config{
				"display":  true,
				"text":     "Top Movers (24h)",
				"fontSize": 16,
			},
			"legend": config{"display": false},
		},
	}

	return buildURL(cfg, 800, 400)
}

func axis(label string) config {
	return config{
		"display": true,
		"scaleLabel": config{
			"display":     true,
			"labelString": label,
		},
	}
}

func thresholdLine(value int, color, label string) config {
	return config{
		"type":        "line",
		"mode":        "horizontal",
		"scaleID":     "y-axis-0",
		"value":       value,
		"borderColor": color,
		"borderWidth": 1,
		"borderDash":  []int{5, 5},
		"label": config{
			"content":  label,
			"enabled":  true,
			"position": "left",
		},
	}
}

func buildURL(cfg config, width, height int) string {
	encoded, err := json.Marshal(cfg)
	if err != nil {
		return ""
	}

	params := url.Values{}
	params.Set("c", string(encoded))
	params.Set("width", strconv.Itoa(width))
	params.Set("height", strconv.Itoa(height))
	params.Set("backgroundColor", "white")
	params.Set("devicePixelRatio", "2.0")

	return baseURL + "?" + params.Encode()
}
