package strategy

import (
	"math"

	"github.com/amirphl/intraday-backtester/internal/candle"
	"github.com/amirphl/intraday-backtester/internal/indicator"
)

// Engine evaluates setups and rejections on an annotated bar series.
// It holds no per-run state and is safe for concurrent use.
type Engine struct {
	policy Policy
}

func NewEngine(p Policy) *Engine {
	return &Engine{policy: p.WithDefaults()}
}

func (e *Engine) Policy() Policy { return e.policy }

// ComputeIndicators annotates candles with SMA(50) of close and the 10:00
// decision flag. The flag uses the candle's own wall clock.
func ComputeIndicators(candles []candle.Candle) []Bar {
	sma := indicator.CalculateSMA(candle.Closes(candles), SMAPeriod)
	bars := make([]Bar, len(candles))
	for i, c := range candles {
		bars[i] = Bar{
			Candle:         c,
			SMA:            sma[i],
			IsDecisionTime: c.Timestamp.Hour() == DecisionHour && c.Timestamp.Minute() == DecisionMin,
		}
	}
	return bars
}

// DetectSetup classifies the decision bar at i. Anything other than a
// decision bar with a determinate SMA yields None.
func (e *Engine) DetectSetup(bars []Bar, i int) Setup {
	if i < 0 || i >= len(bars) {
		return None
	}
	b := bars[i]
	if !b.IsDecisionTime || math.IsNaN(b.SMA) {
		return None
	}
	switch {
	case b.Close > b.SMA && b.Open > b.SMA && b.Low > b.SMA:
		return LongSetup
	case b.Close < b.SMA && b.Open < b.SMA && b.High < b.SMA:
		return ShortSetup
	default:
		return None
	}
}

// FindRejection returns the first rejection strictly after start, or nil.
func (e *Engine) FindRejection(bars []Bar, start int, setup Setup) *Rejection {
	if setup == None {
		return nil
	}
	for j := max(start+1, 0); j < len(bars); j++ {
		b := bars[j]
		if math.IsNaN(b.SMA) || !isRejection(b, setup) {
			continue
		}
		if e.policy.ChoppyFilter && e.IsChoppy(bars, j, setup) {
			continue
		}
		return &Rejection{
			Index: j,
			Time:  b.Timestamp,
			Open:  b.Open,
			High:  b.High,
			Low:   b.Low,
			Close: b.Close,
			SMA:   b.SMA,
			Setup: setup,
		}
	}
	return nil
}

func isRejection(b Bar, setup Setup) bool {
	switch setup {
	case LongSetup:
		return b.Low <= b.SMA && b.Open > b.SMA && b.Close > b.SMA
	case ShortSetup:
		return b.High >= b.SMA && b.Open < b.SMA && b.Close < b.SMA
	}
	return false
}

// IsChoppy reports whether the SMA slope ending at i fails to reach the
// policy threshold in the setup direction. An undefined slope is choppy.
func (e *Engine) IsChoppy(bars []Bar, i int, setup Setup) bool {
	lb := e.policy.SlopeLookback
	if i >= len(bars) || i-lb < 0 {
		return true
	}
	slope := indicator.SlopePercent([]float64{bars[i-lb].SMA, bars[i].SMA}, 1, 1)
	if math.IsNaN(slope) {
		return true
	}
	switch setup {
	case LongSetup:
		return slope < e.policy.MinSlopePercent
	case ShortSetup:
		return slope > -e.policy.MinSlopePercent
	}
	return true
}

// TouchesSMA reports whether the bar's wick reaches the SMA against the setup.
func TouchesSMA(b Bar, setup Setup) bool {
	if math.IsNaN(b.SMA) {
		return false
	}
	switch setup {
	case LongSetup:
		return b.Low <= b.SMA
	case ShortSetup:
		return b.High >= b.SMA
	}
	return false
}

// ComputeEntryExit derives entry, stop and target from the rejection bar.
func ComputeEntryExit(r Rejection) TradeParams {
	rng := r.High - r.Low
	p := TradeParams{Setup: r.Setup, RangeSize: rng}
	switch r.Setup {
	case LongSetup:
		p.Entry = r.High + TickBuffer
		p.StopLoss = r.Low - TickBuffer
		p.Target = p.Entry + rng*RiskReward
	case ShortSetup:
		p.Entry = r.Low - TickBuffer
		p.StopLoss = r.High + TickBuffer
		p.Target = p.Entry - rng*RiskReward
	}
	return p
}
