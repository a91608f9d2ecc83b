package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/intraday-backtester/internal/candle"
	"github.com/amirphl/intraday-backtester/internal/db"
)

func storeRange() (time.Time, time.Time) {
	return time.Date(2024, 3, 4, 0, 0, 0, 0, ist), time.Date(2024, 3, 5, 0, 0, 0, 0, ist)
}

func TestStoreProvider_WorkingTimeframeHit(t *testing.T) {
	ctx := context.Background()
	mem := db.NewMemory()
	require.NoError(t, mem.SaveCandles(ctx, candle.ToRows(threeMinute(4, "TCS"))))
	upstream := &stubProvider{}

	from, to := storeRange()
	got, err := NewStoreProvider(mem, upstream, "", ist).FetchCandles(ctx, "tcs", from, to)
	require.NoError(t, err)
	assert.Len(t, got, 4)
	assert.Equal(t, 0, upstream.calls)
	for _, c := range got {
		assert.Equal(t, "3m", c.Timeframe)
		assert.Equal(t, ist, c.Timestamp.Location())
	}
}

func TestStoreProvider_ResamplesOneMinute(t *testing.T) {
	ctx := context.Background()
	mem := db.NewMemory()
	require.NoError(t, mem.SaveCandles(ctx, candle.ToRows(oneMinute(9, "TCS"))))

	from, to := storeRange()
	got, err := NewStoreProvider(mem, nil, "", ist).FetchCandles(ctx, "TCS", from, to)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 103.0, got[0].High)
	assert.Equal(t, 3.0, got[2].Volume)
	assert.True(t, got[1].Timestamp.Equal(time.Date(2024, 3, 4, 9, 18, 0, 0, ist)))
}

func TestStoreProvider_UpstreamFallbackPersists(t *testing.T) {
	ctx := context.Background()
	mem := db.NewMemory()
	upstream := &stubProvider{candles: threeMinute(5, "TCS")}
	p := NewStoreProvider(mem, upstream, "wallex", ist)

	from, to := storeRange()
	got, err := p.FetchCandles(ctx, "TCS", from, to)
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Equal(t, 1, upstream.calls)

	n, err := mem.GetCandleCount(ctx, "TCS", "3m", from, to)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	// second read is served from the store
	got, err = p.FetchCandles(ctx, "TCS", from, to)
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Equal(t, 1, upstream.calls)
	assert.Equal(t, "wallex", got[0].Source)
}

func TestStoreProvider_Misses(t *testing.T) {
	ctx := context.Background()
	from, to := storeRange()

	got, err := NewStoreProvider(db.NewMemory(), nil, "", ist).FetchCandles(ctx, "TCS", from, to)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	boom := errors.New("upstream down")
	_, err = NewStoreProvider(db.NewMemory(), &stubProvider{err: boom}, "", ist).FetchCandles(ctx, "TCS", from, to)
	assert.ErrorIs(t, err, boom)
}
