package indicator

import "testing"

func TestInterpretSignal_RuleOrder(t *testing.T) {
	cases := []struct {
		k, d      float64
		condition Condition
		action    Action
	}{
		{10, 15, Oversold, ActionBuy},
		{85, 90, Overbought, ActionSell},
		{45, 40, BullishCrossover, ActionBuy},
		{55, 60, BearishCrossover, ActionSell},
		{50, 50, Neutral, ActionHold},
		// Oversold is checked before the crossover rules even though k>d.
		{15, 10, Oversold, ActionBuy},
		// k>d but k>=50: no bullish rule, and the bearish rule needs k<d.
		{60, 55, Neutral, ActionHold},
	}

	for _, tc := range cases {
		got := InterpretSignal(tc.k, tc.d)
		if got.Condition != tc.condition {
			t.Errorf("InterpretSignal(%.0f, %.0f): condition = %s, want %s", tc.k, tc.d, got.Condition, tc.condition)
		}
		if got.Action != tc.action {
			t.Errorf("InterpretSignal(%.0f, %.0f): action = %s, want %s", tc.k, tc.d, got.Action, tc.action)
		}
	}
}

func TestInterpretSignal_RoundsDisplayValuesOnly(t *testing.T) {
	// 19.996 rounds to 20.00 for display, but classification uses the raw
	// value so this is still oversold.
	got := InterpretSignal(19.996, 19.994)
	if got.Condition != Oversold {
		t.Errorf("condition = %s, want Oversold", got.Condition)
	}
	if got.K != 20.00 {
		t.Errorf("display K = %.4f, want 20.00", got.K)
	}
	if got.D != 19.99 {
		t.Errorf("display D = %.4f, want 19.99", got.D)
	}
}

func TestMarketSentiment_Ladder(t *testing.T) {
	cases := []struct {
		count  int
		isMoon bool
		name   string
		level  string
	}{
		{125, true, "Diamond", ""},
		{121, true, "Diamond", ""},
		{120, true, "Golden", "2"},
		{101, false, "Golden", "1"},
		{55, true, "Super", "2"},
		{41, false, "Super", "1"},
		{31, true, "Moon", "2"},
		{21, true, "Moon", "1"},
		{15, true, "Go Moon", "2"},
		{1, true, "Go Moon", "1"},
		{31, false, "Crash", "2"},
		{5, false, "Go Crash", "1"},
	}

	for _, tc := range cases {
		got := MarketSentiment(tc.count, tc.isMoon)
		if got.Name != tc.name || got.Level != tc.level {
			t.Errorf("MarketSentiment(%d, %v) = %s/%s, want %s/%s",
				tc.count, tc.isMoon, got.Name, got.Level, tc.name, tc.level)
		}
		if got.Count != tc.count {
			t.Errorf("count not carried: got %d, want %d", got.Count, tc.count)
		}
	}
}

func TestMarketSentiment_ZeroIsNeutral(t *testing.T) {
	for _, isMoon := range []bool{true, false} {
		got := MarketSentiment(0, isMoon)
		if got.Direction != DirectionNeutral {
			t.Errorf("MarketSentiment(0, %v).Direction = %s, want Neutral", isMoon, got.Direction)
		}
		if got.Label() != "⚪ Neutral Market" {
			t.Errorf("label = %q", got.Label())
		}
	}
}

func TestSentiment_Label(t *testing.T) {
	s := MarketSentiment(35, true)
	if s.Label() != "🌙 Moon Moon 2" {
		// Tier name then direction, so the Moon tier in the Moon
		// direction reads "🌙 Moon Moon 2".
		t.Errorf("label = %q, want %q", s.Label(), "🌙 Moon Moon 2")
	}
	d := MarketSentiment(125, false)
	if d.Label() != "💎 Diamond Crash" {
		t.Errorf("label = %q, want %q", d.Label(), "💎 Diamond Crash")
	}
}
