package marketdata

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	wallex "github.com/wallexchange/wallex-go"

	"github.com/amirphl/intraday-backtester/internal/candle"
	"github.com/amirphl/intraday-backtester/internal/tfutils"
	"github.com/amirphl/intraday-backtester/internal/utils"
)

// SourceWallex tags candles downloaded from wallex.
const SourceWallex = "wallex"

// CandleClient is the part of the wallex client the provider uses.
type CandleClient interface {
	Candles(symbol, resolution string, from, to time.Time) ([]*wallex.Candle, error)
}

// WallexProvider downloads 1m candles from wallex and resamples them to 3m.
type WallexProvider struct {
	client CandleClient
	loc    *time.Location
	retry  RetryPolicy
	log    zerolog.Logger
}

func NewWallexClient(apiKey string) *wallex.Client {
	return wallex.New(wallex.ClientOptions{APIKey: apiKey})
}

func NewWallexProvider(client CandleClient, loc *time.Location, rp RetryPolicy) *WallexProvider {
	return &WallexProvider{
		client: client,
		loc:    loc,
		retry:  rp,
		log:    utils.Logger("wallex"),
	}
}

func (w *WallexProvider) Name() string { return SourceWallex }

func (w *WallexProvider) FetchCandles(ctx context.Context, symbol string, from, to time.Time) ([]candle.Candle, error) {
	raw, err := w.FetchOneMinute(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}
	out, err := toWorking(raw, w.loc)
	if err != nil {
		return nil, fmt.Errorf("resample %s: %w", symbol, err)
	}
	return finalize(out, w.loc, time.Time{}, time.Time{})
}

// FetchOneMinute returns the raw 1m candles. Candles that fail validation are
// dropped.
func (w *WallexProvider) FetchOneMinute(ctx context.Context, symbol string, from, to time.Time) ([]candle.Candle, error) {
	var wc []*wallex.Candle
	err := retry(ctx, w.log, w.retry, "FetchOneMinute", func() error {
		var err error
		wc, err = w.client.Candles(NormalizeSymbol(symbol), NormalizedTimeframe(tfutils.OneMinute), from, to)
		if err != nil {
			return fmt.Errorf("fetching candles: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if wc == nil {
		return nil, nil
	}

	candles := make([]candle.Candle, 0, len(wc))
	skipped := 0
	for _, c := range wc {
		if c == nil {
			continue
		}
		cd := candle.Candle{
			Timestamp: c.Timestamp.Truncate(time.Minute).In(w.loc),
			Open:      parseNumber(c.Open),
			High:      parseNumber(c.High),
			Low:       parseNumber(c.Low),
			Close:     parseNumber(c.Close),
			Volume:    parseNumber(c.Volume),
			Symbol:    symbol,
			Timeframe: tfutils.OneMinute,
			Source:    w.Name(),
		}
		if err := cd.Validate(); err != nil {
			skipped++
			continue
		}
		candles = append(candles, cd)
	}
	if skipped > 0 {
		w.log.Warn().Str("symbol", symbol).Int("skipped", skipped).Msg("FetchOneMinute | dropped invalid candles")
	}
	return candles, nil
}

func parseNumber(n wallex.Number) float64 {
	v, _ := strconv.ParseFloat(string(n), 64)
	return v
}
