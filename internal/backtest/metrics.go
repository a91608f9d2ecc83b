package backtest

import (
	"github.com/shopspring/decimal"
)

// roundMoney rounds half to even at two decimals.
func roundMoney(v float64) float64 {
	return decimal.NewFromFloat(v).RoundBank(2).InexactFloat64()
}

// ComputeMetrics aggregates closed trades in chronological order. Open trades
// are ignored. With no closed trades it returns ErrNoClosedTrades.
func ComputeMetrics(trades []Trade) (Metrics, error) {
	closed := make([]Trade, 0, len(trades))
	for _, t := range trades {
		if t.Closed() {
			closed = append(closed, t)
		}
	}
	if len(closed) == 0 {
		return Metrics{}, ErrNoClosedTrades
	}

	var (
		m     Metrics
		total = decimal.Zero
	)
	pnls := make([]float64, len(closed))
	for i, t := range closed {
		switch {
		case t.PnL > 0:
			m.WonTrades++
		case t.PnL < 0:
			m.LostTrades++
		}
		total = total.Add(decimal.NewFromFloat(t.PnL))
		pnls[i] = t.PnL
	}

	m.TotalTrades = len(closed)
	m.WinRate = roundMoney(float64(m.WonTrades) / float64(m.TotalTrades) * 100)
	m.TotalPnL = total.RoundBank(2).InexactFloat64()
	m.MaxDrawdown = MaxDrawdown(pnls)

	start := max(0, len(closed)-MaxShownTrades)
	m.RecentTrades = append([]Trade(nil), closed[start:]...)
	return m, nil
}

// MaxDrawdown returns the largest peak-to-trough fall of the cumulative PnL
// curve. The peak starts at the first cumulative value.
func MaxDrawdown(pnls []float64) float64 {
	if len(pnls) == 0 {
		return 0
	}
	cum := decimal.Zero
	var peak, maxDD decimal.Decimal
	for i, p := range pnls {
		cum = cum.Add(decimal.NewFromFloat(p))
		if i == 0 || cum.GreaterThan(peak) {
			peak = cum
		}
		if dd := peak.Sub(cum); dd.GreaterThan(maxDD) {
			maxDD = dd
		}
	}
	return maxDD.RoundBank(2).InexactFloat64()
}
