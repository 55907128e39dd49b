package indicator

import "fmt"

// Direction marks which side of the market a sentiment reading describes.
type Direction string

const (
	DirectionMoon    Direction = "Moon"
	DirectionCrash   Direction = "Crash"
	DirectionNeutral Direction = "Neutral"
)

// Sentiment is a tiered reading of how many pairs moved significantly
// in one direction over 24 hours.
type Sentiment struct {
	Count     int
	Name      string
	Level     string // "", "1" or "2" within a tier
	Emoji     string
	Direction Direction
}

// Label renders the full display name, e.g. "🌙 Moon 2" or "⚪ Neutral Market".
func (s Sentiment) Label() string {
	if s.Direction == DirectionNeutral {
		return s.Emoji + " Neutral Market"
	}
	if s.Level == "" {
		return fmt.Sprintf("%s %s %s", s.Emoji, s.Name, s.Direction)
	}
	return fmt.Sprintf("%s %s %s %s", s.Emoji, s.Name, s.Direction, s.Level)
}

type sentimentTier struct {
	threshold int
	name      string
	level     string
	emoji     string
}

// Thresholds are strictly decreasing; the ladder is scanned top-down and
// the first satisfied tier wins.
var sharedTiers = []sentimentTier{
	{121, "Diamond", "", "💎"},
	{111, "Golden", "2", "🥇"},
	{101, "Golden", "1", "🥇"},
	{91, "Ultra", "2", "🔥"},
	{81, "Ultra", "1", "🔥"},
	{71, "Mega", "2", "⚡"},
	{61, "Mega", "1", "⚡"},
	{51, "Super", "2", "🌟"},
	{41, "Super", "1", "🌟"},
}

var moonTiers = []sentimentTier{
	{31, "Moon", "2", "🌙"},
	{21, "Moon", "1", "🌙"},
	{11, "Go Moon", "2", "🚀"},
	{1, "Go Moon", "1", "🚀"},
}

var crashTiers = []sentimentTier{
	{31, "Crash", "2", "📉"},
	{21, "Crash", "1", "📉"},
	{11, "Go Crash", "2", "🔻"},
	{1, "Go Crash", "1", "🔻"},
}

// MarketSentiment maps a mover count onto the sentiment ladder.
// isMoon selects the bullish tail tiers; count 0 (or any count below every
// threshold) yields the Neutral reading.
func MarketSentiment(count int, isMoon bool) Sentiment {
	direction := DirectionMoon
	tail := moonTiers
	if !isMoon {
		direction = DirectionCrash
		tail = crashTiers
	}

	for _, tiers := range [][]sentimentTier{sharedTiers, tail} {
		for _, tier := range tiers {
			if count >= tier.threshold {
				return Sentiment{
					Count:     count,
					Name:      tier.name,
					Level:     tier.level,
					Emoji:     tier.emoji,
					Direction: direction,
				}
			}
		}
	}

	return Sentiment{Count: count, Name: "Neutral", Emoji: "⚪", Direction: DirectionNeutral}
}
