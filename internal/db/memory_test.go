package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	base := time.Date(2024, 3, 4, 9, 15, 0, 0, time.UTC)
	mk := func(offset int, source string) Candle {
		ts := base.Add(time.Duration(offset) * 3 * time.Minute)
		return Candle{Timestamp: ts, Open: 10, High: 11, Low: 9, Close: 10, Symbol: "sbin", Timeframe: "3m", Source: source}
	}

	require.NoError(t, m.SaveCandles(ctx, []Candle{mk(2, "csv"), mk(0, "csv"), mk(1, "wallex")}))
	// duplicate key overwrites
	require.NoError(t, m.SaveCandles(ctx, []Candle{mk(0, "csv")}))

	tests := []struct {
		name   string
		symbol string
		source string
		end    time.Time
		want   int
	}{
		{"all sources", "SBIN", "", base.Add(time.Hour), 3},
		{"filtered by source", "SBIN", "csv", base.Add(time.Hour), 2},
		{"end is exclusive", "SBIN", "", base.Add(3 * time.Minute), 1},
		{"unknown symbol", "TCS", "", base.Add(time.Hour), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.GetCandles(ctx, tt.symbol, "3m", tt.source, base, tt.end)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
			for i := 1; i < len(got); i++ {
				assert.True(t, got[i].Timestamp.After(got[i-1].Timestamp))
			}
		})
	}

	n, err := m.GetCandleCount(ctx, "SBIN", "3m", base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMemoryStorageRejectsInvalid(t *testing.T) {
	m := NewMemory()
	err := m.SaveCandles(context.Background(), []Candle{{Symbol: "X", Timeframe: "3m"}})
	assert.Error(t, err)
}
