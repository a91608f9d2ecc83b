// Package marketdata loads session-aligned 3m candles for the backtester.
package marketdata

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/amirphl/intraday-backtester/internal/candle"
)

// Provider returns 3m candles in [from, to) ordered by time and expressed in
// the exchange location.
type Provider interface {
	FetchCandles(ctx context.Context, symbol string, from, to time.Time) ([]candle.Candle, error)
}

// WorkingTimeframe is the bar size the strategy runs on.
const WorkingTimeframe = "3m"

// NormalizeSymbol uppercases and drops separators, e.g. "tata-steel" -> "TATASTEEL".
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.ReplaceAll(s, "-", "")
	return strings.ReplaceAll(s, "/", "")
}

// NormalizedTimeframe strips the minute suffix, "3m" -> "3".
func NormalizedTimeframe(tf string) string {
	return strings.TrimSuffix(tf, "m")
}

// finalize sorts candles, converts them to loc, drops duplicate timestamps
// and bars outside [from, to), then checks the sequence.
func finalize(candles []candle.Candle, loc *time.Location, from, to time.Time) ([]candle.Candle, error) {
	if candles == nil {
		return nil, nil
	}
	out := candle.InLocation(candles, loc)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })

	kept := out[:0]
	for i, c := range out {
		if i > 0 && c.Timestamp.Equal(out[i-1].Timestamp) {
			continue
		}
		if !from.IsZero() && c.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && !c.Timestamp.Before(to) {
			continue
		}
		kept = append(kept, c)
	}
	if err := candle.ValidateSequence(kept); err != nil {
		return nil, fmt.Errorf("invalid candle sequence: %w", err)
	}
	return kept, nil
}

// toWorking resamples 1m candles to the working timeframe in loc.
func toWorking(oneMinute []candle.Candle, loc *time.Location) ([]candle.Candle, error) {
	if oneMinute == nil {
		return nil, nil
	}
	out, err := candle.Resample(candle.InLocation(oneMinute, loc), WorkingTimeframe, loc)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []candle.Candle{}
	}
	return out, nil
}
