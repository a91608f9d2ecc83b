package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateSMA(t *testing.T) {
	tests := []struct {
		name     string
		prices   []float64
		period   int
		expected []float64
	}{
		{
			name:     "basic window",
			prices:   []float64{1, 2, 3, 4, 5},
			period:   3,
			expected: []float64{math.NaN(), math.NaN(), 2, 3, 4},
		},
		{
			name:     "shorter than period",
			prices:   []float64{1, 2},
			period:   3,
			expected: []float64{math.NaN(), math.NaN()},
		},
		{
			name:     "period one",
			prices:   []float64{7, 8},
			period:   1,
			expected: []float64{7, 8},
		},
		{
			name:     "empty",
			prices:   nil,
			period:   50,
			expected: []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateSMA(tt.prices, tt.period)
			require.Len(t, got, len(tt.expected))
			for i := range tt.expected {
				if math.IsNaN(tt.expected[i]) {
					assert.True(t, math.IsNaN(got[i]), "index %d", i)
				} else {
					assert.InDelta(t, tt.expected[i], got[i], 1e-9, "index %d", i)
				}
			}
		})
	}
}

func TestCalculateSMA_FiftyWarmup(t *testing.T) {
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100
	}
	got := CalculateSMA(prices, 50)
	assert.True(t, math.IsNaN(got[48]))
	assert.Equal(t, 100.0, got[49])
	assert.Equal(t, 100.0, got[59])
}

func TestSlopePercent(t *testing.T) {
	series := []float64{math.NaN(), 100, 101, 102}
	assert.InDelta(t, 2.0, SlopePercent(series, 3, 2), 1e-9)
	assert.True(t, math.IsNaN(SlopePercent(series, 2, 2)))
	assert.True(t, math.IsNaN(SlopePercent(series, 1, 2)))
	assert.True(t, math.IsNaN(SlopePercent(series, 3, 0)))
}
