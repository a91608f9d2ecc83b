package backtest

import (
	"github.com/amirphl/intraday-backtester/internal/strategy"
)

// simulateTrade walks forward from the entry bar until the first exit.
// End of day is checked before target, and target before stop. The returned
// trade is still open when the data ends without an exit.
func simulateTrade(bars []strategy.Bar, entryIdx int, symbol string, decision strategy.Bar, p strategy.TradeParams) Trade {
	tr := Trade{
		Symbol:       symbol,
		Setup:        p.Setup,
		DecisionTime: decision.Timestamp,
		EntryIndex:   entryIdx,
		EntryTime:    bars[entryIdx].Timestamp,
		EntryPrice:   p.Entry,
		StopLoss:     p.StopLoss,
		TargetPrice:  p.Target,
		Quantity:     Quantity,
		Status:       StatusOpen,
	}

	for i := entryIdx; i < len(bars); i++ {
		b := bars[i]
		var (
			price  float64
			reason ExitReason
		)
		switch {
		case secondsOfDay(b.Timestamp) >= EODCutoff:
			price, reason = b.Close, EODExit
		case p.Setup == strategy.LongSetup && b.High >= p.Target:
			price, reason = p.Target, TargetHit
		case p.Setup == strategy.LongSetup && b.Low <= p.StopLoss:
			price, reason = p.StopLoss, StopLoss
		case p.Setup == strategy.ShortSetup && b.Low <= p.Target:
			price, reason = p.Target, TargetHit
		case p.Setup == strategy.ShortSetup && b.High >= p.StopLoss:
			price, reason = p.StopLoss, StopLoss
		default:
			continue
		}
		tr.close(i, b, price, reason)
		return tr
	}
	return tr
}

func (t *Trade) close(idx int, b strategy.Bar, price float64, reason ExitReason) {
	t.ExitIndex = idx
	t.ExitTime = b.Timestamp
	t.ExitPrice = price
	t.ExitReason = reason
	t.Status = StatusClosed
	t.PnL = tradePnL(t.Setup, t.EntryPrice, price, t.Quantity)
}

func tradePnL(setup strategy.Setup, entry, exit, qty float64) float64 {
	if setup == strategy.ShortSetup {
		return roundMoney((entry - exit) * qty)
	}
	return roundMoney((exit - entry) * qty)
}
