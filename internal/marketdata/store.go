package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/amirphl/intraday-backtester/internal/candle"
	"github.com/amirphl/intraday-backtester/internal/db"
	"github.com/amirphl/intraday-backtester/internal/tfutils"
	"github.com/amirphl/intraday-backtester/internal/utils"
)

// StoreProvider reads candles from a CandleStorage. Stored 3m bars are used
// as is; otherwise stored 1m bars are resampled. On a miss the optional
// upstream provider is asked and its bars are written back.
type StoreProvider struct {
	store    db.CandleStorage
	upstream Provider
	source   string
	loc      *time.Location
	log      zerolog.Logger
}

func NewStoreProvider(store db.CandleStorage, upstream Provider, source string, loc *time.Location) *StoreProvider {
	return &StoreProvider{
		store:    store,
		upstream: upstream,
		source:   source,
		loc:      loc,
		log:      utils.Logger("store"),
	}
}

func (s *StoreProvider) FetchCandles(ctx context.Context, symbol string, from, to time.Time) ([]candle.Candle, error) {
	symbol = NormalizeSymbol(symbol)

	rows, err := s.store.GetCandles(ctx, symbol, WorkingTimeframe, s.source, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s candles: %w", WorkingTimeframe, err)
	}
	if len(rows) > 0 {
		return finalize(candle.FromRows(rows), s.loc, from, to)
	}

	rows, err = s.store.GetCandles(ctx, symbol, tfutils.OneMinute, s.source, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s candles: %w", tfutils.OneMinute, err)
	}
	if len(rows) > 0 {
		out, err := toWorking(candle.FromRows(rows), s.loc)
		if err != nil {
			return nil, fmt.Errorf("resample %s: %w", symbol, err)
		}
		return finalize(out, s.loc, from, to)
	}

	if s.upstream == nil {
		return []candle.Candle{}, nil
	}

	fetched, err := s.upstream.FetchCandles(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}
	if len(fetched) > 0 {
		if err := s.store.SaveCandles(ctx, candle.ToRows(s.tagged(fetched))); err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("FetchCandles | failed to persist fetched candles")
		} else {
			s.log.Info().Str("symbol", symbol).Int("candles", len(fetched)).Msg("FetchCandles | persisted fetched candles")
		}
	}
	return fetched, nil
}

// tagged returns a copy of candles under the store's source and symbol key.
func (s *StoreProvider) tagged(candles []candle.Candle) []candle.Candle {
	out := make([]candle.Candle, len(candles))
	for i, c := range candles {
		c.Symbol = NormalizeSymbol(c.Symbol)
		if s.source != "" {
			c.Source = s.source
		}
		out[i] = c
	}
	return out
}
