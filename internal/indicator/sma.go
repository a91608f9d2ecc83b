// Package indicator computes moving-average series over close prices.
package indicator

import "math"

// CalculateSMA returns a series aligned with prices. Entries before the first
// full window are NaN. Each window is summed from scratch so the value at i
// depends only on prices[i-period+1 : i+1].
func CalculateSMA(prices []float64, period int) []float64 {
	out := make([]float64, len(prices))
	if period <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	for i := range prices {
		if i < period-1 {
			out[i] = math.NaN()
			continue
		}
		var sum float64
		for _, p := range prices[i-period+1 : i+1] {
			sum += p
		}
		out[i] = sum / float64(period)
	}
	return out
}

// SlopePercent is the percentage change of series between i-lookback and i.
// It returns NaN when either end is missing or the base is zero.
func SlopePercent(series []float64, i, lookback int) float64 {
	if lookback <= 0 || i < lookback || i >= len(series) {
		return math.NaN()
	}
	base, cur := series[i-lookback], series[i]
	if math.IsNaN(base) || math.IsNaN(cur) || base == 0 {
		return math.NaN()
	}
	return (cur - base) / base * 100
}
