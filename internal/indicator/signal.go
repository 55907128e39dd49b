package indicator

import "math"

// Condition classifies the current StochRSI reading.
type Condition string

const (
	Oversold         Condition = "Oversold"
	Overbought       Condition = "Overbought"
	BullishCrossover Condition = "Bullish Crossover"
	BearishCrossover Condition = "Bearish Crossover"
	Neutral          Condition = "Neutral"
)

// Action is the trade suggestion attached to a condition.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Signal is a derived, display-only interpretation of the K/D lines.
// K and D carry the inputs rounded to two decimals; the classification
// itself always compares the unrounded values.
type Signal struct {
	Condition   Condition
	Action      Action
	Emoji       string
	Description string
	K           float64
	D           float64
}

// InterpretSignal classifies a K/D pair. Rules are evaluated in order and
// the first match wins: oversold, overbought, bullish crossover, bearish
// crossover, neutral.
func InterpretSignal(k, d float64) Signal {
	s := Signal{K: round2(k), D: round2(d)}

	switch {
	case k < 20 && d < 20:
		s.Condition = Oversold
		s.Action = ActionBuy
		s.Emoji = "🟢"
		s.Description = "Market is oversold, potential buying opportunity"
	case k > 80 && d > 80:
		s.Condition = Overbought
		s.Action = ActionSell
		s.Emoji = "🔴"
		s.Description = "Market is overbought, potential selling opportunity"
	case k > d && k < 50:
		s.Condition = BullishCrossover
		s.Action = ActionBuy
		s.Emoji = "🚀"
		s.Description = "K line crossed above D line, bullish signal"
	case k < d && k > 50:
		s.Condition = BearishCrossover
		s.Action = ActionSell
		s.Emoji = "📉"
		s.Description = "K line crossed below D line, bearish signal"
	default:
		s.Condition = Neutral
		s.Action = ActionHold
		s.Emoji = "⚪"
		s.Description = "No clear signal, hold position"
	}
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
