package marketdata

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/amirphl/intraday-backtester/internal/candle"
)

var ist = time.FixedZone("IST", 5*3600+1800)

type stubProvider struct {
	mu      sync.Mutex
	candles []candle.Candle
	err     error
	calls   int
}

func (s *stubProvider) FetchCandles(ctx context.Context, symbol string, from, to time.Time) ([]candle.Candle, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.candles, s.err
}

func threeMinute(n int, symbol string) []candle.Candle {
	open := time.Date(2024, 3, 4, 9, 15, 0, 0, ist)
	out := make([]candle.Candle, n)
	for i := range out {
		p := 100 + float64(i)
		out[i] = candle.Candle{
			Timestamp: open.Add(time.Duration(i) * 3 * time.Minute),
			Open:      p, High: p + 1, Low: p - 1, Close: p + 0.5, Volume: 10,
			Symbol: symbol, Timeframe: "3m", Source: "test",
		}
	}
	return out
}

func oneMinute(n int, symbol string) []candle.Candle {
	open := time.Date(2024, 3, 4, 9, 15, 0, 0, ist)
	out := make([]candle.Candle, n)
	for i := range out {
		p := 100 + float64(i)
		out[i] = candle.Candle{
			Timestamp: open.Add(time.Duration(i) * time.Minute),
			Open:      p, High: p + 1, Low: p - 1, Close: p + 0.5, Volume: 1,
			Symbol: symbol, Timeframe: "1m", Source: "test",
		}
	}
	return out
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
