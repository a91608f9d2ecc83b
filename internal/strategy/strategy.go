// Package strategy implements the SMA-50 rejection signal engine.
package strategy

import (
	"fmt"
	"time"

	"github.com/amirphl/intraday-backtester/internal/candle"
)

// Fixed strategy parameters.
const (
	SMAPeriod    = 50
	RiskReward   = 5.0
	TickBuffer   = 0.01
	DecisionHour = 10
	DecisionMin  = 0
)

// Setup is the directional bias established at the decision candle.
type Setup int8

const (
	None       Setup = 0
	LongSetup  Setup = 1
	ShortSetup Setup = -1
)

func (s Setup) String() string {
	switch s {
	case LongSetup:
		return "long"
	case ShortSetup:
		return "short"
	default:
		return "none"
	}
}

func (s Setup) MarshalJSON() ([]byte, error) {
	return fmt.Appendf(nil, "%q", s.String()), nil
}

// Bar is a candle annotated with the indicator values the engine needs.
type Bar struct {
	candle.Candle
	SMA            float64 `json:"sma"`
	IsDecisionTime bool    `json:"is_decision_time"`
}

// Rejection is the first bar after the decision bar whose wick reaches the SMA
// while its body stays on the setup side.
type Rejection struct {
	Index int
	Time  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
	SMA   float64
	Setup Setup
}

// TradeParams are the order levels derived from a rejection bar.
type TradeParams struct {
	Setup     Setup   `json:"setup"`
	Entry     float64 `json:"entry_price"`
	StopLoss  float64 `json:"stop_loss"`
	Target    float64 `json:"target_price"`
	RangeSize float64 `json:"range_size"`
}
