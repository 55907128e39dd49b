// Package indicator provides technical indicator calculations over price
// series.
//
// All functions are pure: they take an ordered (oldest-first) sequence of
// values and return a new sequence, never mutating their input. Short input
// is a normal empty-result case, not an error; callers that need a value
// must check for emptiness and fail loudly themselves.
package indicator

// RSI computes the Relative Strength Index using Wilder's smoothing.
//
// Requires at least period+1 prices; returns nil otherwise. The seed average
// gain/loss is the simple mean of the first period deltas, subsequent values
// use avg = (avg*(period-1) + new) / period. A zero average loss pins RSI
// at 100. Output length is len(prices) - period.
func RSI(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period+1 {
		return nil
	}

	gains := make([]float64, 0, len(prices)-1)
	losses := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gains = append(gains, delta)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -delta)
		}
	}

	var avgGain, avgLoss float64
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	out := make([]float64, 0, len(gains)-period+1)
	out = append(out, rsiValue(avgGain, avgLoss))

	p := float64(period)
	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*(p-1) + gains[i]) / p
		avgLoss = (avgLoss*(p-1) + losses[i]) / p
		out = append(out, rsiValue(avgGain, avgLoss))
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// SMA computes the simple moving average over a sliding window of exactly
// period elements. Returns nil when len(values) < period; output length is
// len(values) - period + 1.
func SMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	out := make([]float64, 0, len(values)-period+1)
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out
}

// EMA computes the exponential moving average. The first emitted value is
// the SMA of the leading period elements; subsequent values use
// multiplier = 2/(period+1). Returns nil when len(values) < period.
func EMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	multiplier := 2 / float64(period+1)

	var seed float64
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	seed /= float64(period)

	out := make([]float64, 0, len(values)-period+1)
	out = append(out, seed)
	for i := period; i < len(values); i++ {
		prev := out[len(out)-1]
		out = append(out, (values[i]-prev)*multiplier+prev)
	}
	return out
}

// StochRSIResult holds the smoothed K and double-smoothed D lines.
// The two slices cover different trailing windows (D is shorter); callers
// wanting the current reading take the final element of each independently.
type StochRSIResult struct {
	K []float64
	D []float64
}

// Latest returns the final K and D values and whether both lines have data.
func (r StochRSIResult) Latest() (k, d float64, ok bool) {
	if len(r.K) == 0 || len(r.D) == 0 {
		return 0, 0, false
	}
	return r.K[len(r.K)-1], r.D[len(r.D)-1], true
}

// StochRSI applies a stochastic oscillator to the RSI of prices.
//
// For each trailing stochPeriod window over the RSI series,
// stoch = (rsi - min) / (max - min) * 100, with a flat window (max == min)
// tying to 0. K is the smoothK-period SMA of stoch, D the smoothD-period
// SMA of K. Both lines are empty when fewer than stochPeriod RSI values
// exist.
func StochRSI(prices []float64, rsiPeriod, stochPeriod, smoothK, smoothD int) StochRSIResult {
	rsi := RSI(prices, rsiPeriod)
	if stochPeriod <= 0 || len(rsi) < stochPeriod {
		return StochRSIResult{}
	}

	stoch := make([]float64, 0, len(rsi)-stochPeriod+1)
	for i := stochPeriod - 1; i < len(rsi); i++ {
		lo, hi := rsi[i-stochPeriod+1], rsi[i-stochPeriod+1]
		for _, v := range rsi[i-stochPeriod+1 : i+1] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi == lo {
			stoch = append(stoch, 0)
		} else {
			stoch = append(stoch, (rsi[i]-lo)/(hi-lo)*100)
		}
	}

	k := SMA(stoch, smoothK)
	return StochRSIResult{K: k, D: SMA(k, smoothD)}
}

// PriceChange returns the percentage change from old to new.
// Returns 0 when old is 0 to avoid a meaningless division.
func PriceChange(oldPrice, newPrice float64) float64 {
	if oldPrice == 0 {
		return 0
	}
	return (newPrice - oldPrice) / oldPrice * 100
}
