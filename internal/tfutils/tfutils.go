package tfutils

import (
	"fmt"
	"time"
)

// Timeframes understood by the resampler and the market data providers.
const (
	OneMinute     = "1m"
	ThreeMinutes  = "3m"
	FiveMinutes   = "5m"
	FifteenMinute = "15m"
)

// ParseTimeframe parses timeframe string (e.g., "1m", "3m") to time.Duration
func ParseTimeframe(timeframe string) (time.Duration, error) {
	d := GetTimeframeDuration(timeframe)
	if d == 0 {
		return 0, fmt.Errorf("unsupported timeframe: %q", timeframe)
	}
	return d, nil
}

// GetTimeframeDuration returns the duration for a given timeframe, or 0 when unknown
func GetTimeframeDuration(timeframe string) time.Duration {
	switch timeframe {
	case OneMinute:
		return time.Minute
	case ThreeMinutes:
		return 3 * time.Minute
	case FiveMinutes:
		return 5 * time.Minute
	case FifteenMinute:
		return 15 * time.Minute
	default:
		return 0
	}
}

// IsValidTimeframe checks if a timeframe is supported
func IsValidTimeframe(timeframe string) bool {
	return GetTimeframeDuration(timeframe) > 0
}
