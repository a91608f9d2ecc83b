package candle

import (
	"fmt"
	"sort"
	"time"

	"github.com/amirphl/intraday-backtester/internal/tfutils"
)

// Resample aggregates candles to a higher timeframe on a grid anchored at the
// 09:15 session open of each day. Buckets are labelled with their start time.
// Minutes outside the session are dropped and missing buckets stay missing.
// Duplicate timestamps keep the first occurrence.
func Resample(candles []Candle, timeframe string, loc *time.Location) ([]Candle, error) {
	if len(candles) == 0 {
		return nil, nil
	}

	dur, err := tfutils.ParseTimeframe(timeframe)
	if err != nil {
		return nil, fmt.Errorf("invalid timeframe %s: %w", timeframe, err)
	}

	sorted := make([]Candle, len(candles))
	copy(sorted, candles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var (
		result  []Candle
		agg     Candle
		bucket  time.Time
		hasAgg  bool
		lastRaw time.Time
	)

	flush := func() error {
		if !hasAgg {
			return nil
		}
		if err := agg.Validate(); err != nil {
			return fmt.Errorf("invalid aggregated candle for bucket %v: %w", bucket, err)
		}
		result = append(result, agg)
		return nil
	}

	for i, c := range sorted {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("invalid candle at index %d: %w", i, err)
		}
		ts := c.Timestamp
		if loc != nil {
			ts = ts.In(loc)
		}
		if i > 0 && ts.Equal(lastRaw) {
			continue
		}
		lastRaw = ts

		if !InSession(ts) {
			continue
		}

		open := SessionOpen(ts)
		start := open.Add(ts.Sub(open) / dur * dur)

		if hasAgg && start.Equal(bucket) {
			agg.High = max(agg.High, c.High)
			agg.Low = min(agg.Low, c.Low)
			agg.Close = c.Close
			agg.Volume += c.Volume
			continue
		}

		if err := flush(); err != nil {
			return nil, err
		}
		bucket = start
		hasAgg = true
		agg = Candle{
			Timestamp: start,
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
			Symbol:    c.Symbol,
			Timeframe: timeframe,
			Source:    "constructed",
		}
	}

	if err := flush(); err != nil {
		return nil, err
	}

	return result, nil
}
