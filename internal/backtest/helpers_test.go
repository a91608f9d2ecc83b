package backtest

import (
	"fmt"
	"time"

	"github.com/amirphl/intraday-backtester/internal/candle"
)

var ist = time.FixedZone("IST", 5*3600+1800)

// ohlc is an override for a single bar: open, high, low, close.
type ohlc [4]float64

// sessionDay builds the 125 three-minute bars of one session on 2024-03-<day>.
// Bars not overridden are flat at base with open == high == low == close, which
// can never qualify as a rejection.
func sessionDay(day int, base float64, overrides map[string]ohlc) []candle.Candle {
	open := time.Date(2024, 3, day, 9, 15, 0, 0, ist)
	out := make([]candle.Candle, 0, 125)
	for k := 0; k < 125; k++ {
		ts := open.Add(time.Duration(k) * 3 * time.Minute)
		c := candle.Candle{
			Timestamp: ts, Open: base, High: base, Low: base, Close: base,
			Volume: 1, Symbol: "TEST", Timeframe: "3m", Source: "test",
		}
		if o, ok := overrides[ts.Format("15:04")]; ok {
			c.Open, c.High, c.Low, c.Close = o[0], o[1], o[2], o[3]
		}
		out = append(out, c)
	}
	return out
}

func concat(days ...[]candle.Candle) []candle.Candle {
	var out []candle.Candle
	for _, d := range days {
		out = append(out, d...)
	}
	return out
}

// longDay is a day whose 10:00 bar sets up long over a ~101.7 SMA, followed by
// a rejection at 10:03 (high 106, low 101). Entry 106.01 at 10:12,
// stop 100.99, target 131.01.
func longDay(day int, extra map[string]ohlc) []candle.Candle {
	o := map[string]ohlc{
		"10:00": {110, 111, 109, 110},
		"10:03": {104, 106, 101, 105},
	}
	for k, v := range extra {
		o[k] = v
	}
	return sessionDay(day, 105, o)
}

// warmDay is a flat day at 100 that fills the SMA window.
func warmDay(day int) []candle.Candle { return sessionDay(day, 100, nil) }

func indexAt(candles []candle.Candle, day int, hhmm string) int {
	for i, c := range candles {
		if c.Timestamp.Day() == day && c.Timestamp.Format("15:04") == hhmm {
			return i
		}
	}
	panic(fmt.Sprintf("no bar at day %d %s", day, hhmm))
}
