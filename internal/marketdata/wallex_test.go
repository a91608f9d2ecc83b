package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	wallex "github.com/wallexchange/wallex-go"
)

type fakeWallex struct {
	candles    []*wallex.Candle
	failures   int
	calls      int
	symbol     string
	resolution string
}

func (f *fakeWallex) Candles(symbol, resolution string, from, to time.Time) ([]*wallex.Candle, error) {
	f.calls++
	f.symbol, f.resolution = symbol, resolution
	if f.calls <= f.failures {
		return nil, errors.New("503 service unavailable")
	}
	return f.candles, nil
}

func wallexCandle(ts time.Time, o, h, l, c, v string) *wallex.Candle {
	return &wallex.Candle{
		Timestamp: ts,
		Open:      wallex.Number(o),
		High:      wallex.Number(h),
		Low:       wallex.Number(l),
		Close:     wallex.Number(c),
		Volume:    wallex.Number(v),
	}
}

func TestWallexProvider_FetchCandles(t *testing.T) {
	open := time.Date(2024, 3, 4, 9, 15, 0, 0, ist).UTC()
	client := &fakeWallex{
		failures: 1,
		candles: []*wallex.Candle{
			wallexCandle(open, "100", "101", "99", "100.5", "1"),
			wallexCandle(open.Add(time.Minute+20*time.Second), "100.5", "102", "100", "101", "2"),
			wallexCandle(open.Add(2*time.Minute), "101", "100", "102", "101", "1"),
			nil,
			wallexCandle(open.Add(3*time.Minute), "101", "101.5", "100.5", "101.2", "4"),
		},
	}
	p := NewWallexProvider(client, ist, fastRetry)

	got, err := p.FetchCandles(context.Background(), "tata-steel", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls)
	assert.Equal(t, "TATASTEEL", client.symbol)
	assert.Equal(t, "1", client.resolution)

	require.Len(t, got, 2)
	first := got[0]
	assert.True(t, first.Timestamp.Equal(time.Date(2024, 3, 4, 9, 15, 0, 0, ist)))
	assert.Equal(t, ist, first.Timestamp.Location())
	assert.Equal(t, "3m", first.Timeframe)
	assert.Equal(t, 100.0, first.Open)
	assert.Equal(t, 102.0, first.High)
	assert.Equal(t, 99.0, first.Low)
	assert.Equal(t, 101.0, first.Close)
	assert.Equal(t, 3.0, first.Volume)
	assert.True(t, got[1].Timestamp.Equal(time.Date(2024, 3, 4, 9, 18, 0, 0, ist)))
}

func TestWallexProvider_Errors(t *testing.T) {
	client := &fakeWallex{failures: 10}
	_, err := NewWallexProvider(client, ist, fastRetry).FetchCandles(context.Background(), "TCS", time.Time{}, time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FetchOneMinute failed after 3 attempts")
	assert.Equal(t, 3, client.calls)

	empty := &fakeWallex{}
	got, err := NewWallexProvider(empty, ist, fastRetry).FetchCandles(context.Background(), "TCS", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestParseNumber(t *testing.T) {
	assert.Equal(t, 12.5, parseNumber(wallex.Number("12.5")))
	assert.Zero(t, parseNumber(wallex.Number("")))
	assert.Zero(t, parseNumber(wallex.Number("n/a")))
}
