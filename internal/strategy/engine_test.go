package strategy

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/amirphl/intraday-backtester/internal/candle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, 3, 4, 9, 15, 0, 0, time.FixedZone("IST", 5*3600+1800))

func bar(ts time.Time, open, high, low, close, sma float64) Bar {
	return Bar{
		Candle: candle.Candle{
			Timestamp: ts, Open: open, High: high, Low: low, Close: close,
			Symbol: "TCS", Timeframe: "3m",
		},
		SMA:            sma,
		IsDecisionTime: ts.Hour() == DecisionHour && ts.Minute() == DecisionMin,
	}
}

func at(hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}

func TestComputeIndicators(t *testing.T) {
	candles := make([]candle.Candle, 60)
	for i := range candles {
		ts := day.Add(time.Duration(i) * 3 * time.Minute)
		p := 100 + float64(i)
		candles[i] = candle.Candle{Timestamp: ts, Open: p, High: p + 1, Low: p - 1, Close: p, Symbol: "TCS", Timeframe: "3m"}
	}
	bars := ComputeIndicators(candles)
	require.Len(t, bars, 60)

	assert.True(t, math.IsNaN(bars[48].SMA))
	assert.InDelta(t, 124.5, bars[49].SMA, 1e-9)

	// 09:15 + 15*3m = 10:00
	assert.True(t, bars[15].IsDecisionTime)
	for i, b := range bars {
		if i != 15 {
			assert.False(t, b.IsDecisionTime, "index %d", i)
		}
	}
}

func TestDetectSetup(t *testing.T) {
	e := NewEngine(Policy{})
	tests := []struct {
		name string
		bar  Bar
		want Setup
	}{
		{"long: whole bar above SMA", bar(at(10, 0), 109, 112, 108, 110, 100), LongSetup},
		{"long fails when low touches SMA", bar(at(10, 0), 109, 112, 100, 110, 100), None},
		{"short: whole bar below SMA", bar(at(10, 0), 95, 99, 94, 96, 100), ShortSetup},
		{"short fails when high touches SMA", bar(at(10, 0), 95, 100, 94, 96, 100), None},
		{"straddling SMA", bar(at(10, 0), 99, 102, 98, 101, 100), None},
		{"not a decision bar", bar(at(10, 3), 109, 112, 108, 110, 100), None},
		{"indeterminate SMA", bar(at(10, 0), 109, 112, 108, 110, math.NaN()), None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.DetectSetup([]Bar{tt.bar}, 0))
		})
	}
	assert.Equal(t, None, e.DetectSetup(nil, 0))
	assert.Equal(t, None, e.DetectSetup([]Bar{bar(at(10, 0), 109, 112, 108, 110, 100)}, 3))
}

func TestFindRejection(t *testing.T) {
	e := NewEngine(Policy{})

	t.Run("long: first bar after start only", func(t *testing.T) {
		bars := []Bar{
			bar(at(10, 0), 109, 112, 99, 110, 100), // the start bar itself is never considered
			bar(at(10, 3), 109, 112, 101, 110, 100),
			bar(at(10, 6), 110, 112, 108, 111, math.NaN()),
			bar(at(10, 9), 110, 112, 100, 111, 100),
			bar(at(10, 12), 110, 112, 99, 111, 100),
		}
		r := e.FindRejection(bars, 0, LongSetup)
		require.NotNil(t, r)
		assert.Equal(t, 3, r.Index)
		assert.Equal(t, LongSetup, r.Setup)
		assert.True(t, r.Time.Equal(at(10, 9)))
	})

	t.Run("long: body must hold above", func(t *testing.T) {
		bars := []Bar{
			bar(at(10, 0), 109, 112, 108, 110, 100),
			bar(at(10, 3), 101, 102, 98, 99, 100),
			bar(at(10, 6), 100, 102, 98, 101, 100),
		}
		assert.Nil(t, e.FindRejection(bars, 0, LongSetup))
	})

	t.Run("short mirror", func(t *testing.T) {
		bars := []Bar{
			bar(at(10, 0), 95, 99, 94, 96, 100),
			bar(at(10, 3), 96, 100, 95, 97, 100),
		}
		r := e.FindRejection(bars, 0, ShortSetup)
		require.NotNil(t, r)
		assert.Equal(t, 1, r.Index)
	})

	t.Run("none setup", func(t *testing.T) {
		assert.Nil(t, e.FindRejection([]Bar{bar(at(10, 0), 1, 1, 1, 1, 1)}, -1, None))
	})
}

func TestFindRejection_ChoppyFilter(t *testing.T) {
	e := NewEngine(Policy{ChoppyFilter: true, SlopeLookback: 2, MinSlopePercent: 1})
	bars := []Bar{
		bar(at(10, 0), 109, 112, 108, 110, 100),
		bar(at(10, 3), 110, 112, 109, 111, 100),
		bar(at(10, 6), 110, 112, 100, 111, 100.5), // slope 0.5% -> choppy
		bar(at(10, 9), 110, 112, 101, 111, 102),   // slope 2% -> trending
	}
	r := e.FindRejection(bars, 0, LongSetup)
	require.NotNil(t, r)
	assert.Equal(t, 3, r.Index)

	assert.Equal(t, 2, NewEngine(Policy{}).FindRejection(bars, 0, LongSetup).Index)
}

func TestTouchesSMA(t *testing.T) {
	assert.True(t, TouchesSMA(bar(at(10, 3), 110, 112, 100, 111, 100), LongSetup))
	assert.False(t, TouchesSMA(bar(at(10, 3), 110, 112, 100.5, 111, 100), LongSetup))
	assert.True(t, TouchesSMA(bar(at(10, 3), 95, 100, 94, 96, 100), ShortSetup))
	assert.False(t, TouchesSMA(bar(at(10, 3), 95, 100, 94, 96, math.NaN()), ShortSetup))
}

func TestComputeEntryExit(t *testing.T) {
	long := ComputeEntryExit(Rejection{High: 112, Low: 108, Setup: LongSetup})
	assert.InDelta(t, 112.01, long.Entry, 1e-9)
	assert.InDelta(t, 107.99, long.StopLoss, 1e-9)
	assert.InDelta(t, 4.0, long.RangeSize, 1e-9)
	assert.InDelta(t, 132.01, long.Target, 1e-9)

	short := ComputeEntryExit(Rejection{High: 112, Low: 108, Setup: ShortSetup})
	assert.InDelta(t, 107.99, short.Entry, 1e-9)
	assert.InDelta(t, 112.01, short.StopLoss, 1e-9)
	assert.InDelta(t, 87.99, short.Target, 1e-9)
}

func TestSetupJSON(t *testing.T) {
	b, err := json.Marshal(map[string]Setup{"s": ShortSetup})
	require.NoError(t, err)
	assert.JSONEq(t, `{"s":"short"}`, string(b))
	assert.Equal(t, "none", None.String())
}
