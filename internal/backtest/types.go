package backtest

import (
	"time"

	"github.com/amirphl/intraday-backtester/internal/strategy"
	"github.com/amirphl/intraday-backtester/internal/strategy/state_machine"
)

// Fixed run parameters.
const (
	Quantity       = 100.0
	EntryDelay     = 3
	MaxShownTrades = 10
)

// Cutoffs as seconds after local midnight.
var (
	EntryCutoff = clock(13, 0)
	EODCutoff   = clock(15, 0)
)

func clock(hour, minute int) int { return hour*3600 + minute*60 }

func secondsOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

type ExitReason string

const (
	TargetHit ExitReason = "TARGET_HIT"
	StopLoss  ExitReason = "STOP_LOSS"
	EODExit   ExitReason = "EOD_EXIT"
)

type TradeStatus string

const (
	StatusOpen   TradeStatus = "OPEN"
	StatusClosed TradeStatus = "CLOSED"
)

// Trade is one simulated position. Exit fields are set only once it closes.
type Trade struct {
	Symbol       string         `json:"symbol"`
	Setup        strategy.Setup `json:"signal"`
	DecisionTime time.Time      `json:"decision_time"`
	EntryIndex   int            `json:"entry_index"`
	EntryTime    time.Time      `json:"entry_time"`
	EntryPrice   float64        `json:"entry_price"`
	StopLoss     float64        `json:"stop_loss"`
	TargetPrice  float64        `json:"target_price"`
	Quantity     float64        `json:"quantity"`
	Status       TradeStatus    `json:"status"`
	ExitIndex    int            `json:"exit_index,omitempty"`
	ExitTime     time.Time      `json:"exit_time,omitzero"`
	ExitPrice    float64        `json:"exit_price,omitempty"`
	ExitReason   ExitReason     `json:"exit_reason,omitempty"`
	PnL          float64        `json:"pnl"`
}

func (t Trade) Closed() bool { return t.Status == StatusClosed }

// RunStats counts what the scan saw, including setups that never traded.
type RunStats struct {
	Candles        int `json:"candles"`
	Setups         int `json:"setups"`
	Rejections     int `json:"rejections"`
	DataExhausted  int `json:"data_exhausted"`
	StopWickSkips  int `json:"stop_wick_skips"`
	SMATouchSkips  int `json:"sma_touch_skips"`
	LateEntrySkips int `json:"late_entry_skips"`
	OpenAtEnd      int `json:"open_at_end"`
	ClosedTrades   int `json:"closed_trades"`
	TradedDayBars  int `json:"traded_day_bars"`
}

// Metrics summarises the closed trades of one symbol.
type Metrics struct {
	TotalTrades  int     `json:"total_trades"`
	WonTrades    int     `json:"winning_trades"`
	LostTrades   int     `json:"losing_trades"`
	WinRate      float64 `json:"win_rate"`
	TotalPnL     float64 `json:"total_pnl"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	RecentTrades []Trade `json:"trades"`
}

// Result is the output of one symbol run.
type Result struct {
	Symbol string `json:"symbol"`
	Metrics
	DailyTrades []Trade  `json:"daily_trades"`
	OpenTrade   *Trade   `json:"open_trade,omitempty"`
	Stats       RunStats `json:"stats"`
	// Journal is the scan state history, stamped with candle times.
	Journal []state_machine.StateTransition `json:"journal,omitempty"`
}
