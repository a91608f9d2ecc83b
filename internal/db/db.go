// Package db
package db

import (
	"context"
	"errors"
	"time"
)

// Candle is the storage row for a single OHLCV bar.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Symbol    string
	Timeframe string
	Source    string
}

// Validate checks the row before it is written.
func (c Candle) Validate() error {
	if c.Timestamp.IsZero() {
		return errors.New("candle timestamp is zero")
	}
	if c.Symbol == "" || c.Timeframe == "" {
		return errors.New("candle symbol and timeframe are required")
	}
	if c.High < c.Low {
		return errors.New("candle high cannot be less than low")
	}
	return nil
}

// CandleStorage reads and writes historical candles.
type CandleStorage interface {
	SaveCandles(ctx context.Context, candles []Candle) error
	GetCandles(ctx context.Context, symbol, timeframe, source string, start, end time.Time) ([]Candle, error)
	GetCandleCount(ctx context.Context, symbol, timeframe string, start, end time.Time) (int, error)
}
