package tfutils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTimeframe(t *testing.T) {
	tests := []struct {
		tf      string
		want    time.Duration
		wantErr bool
	}{
		{"1m", time.Minute, false},
		{"3m", 3 * time.Minute, false},
		{"5m", 5 * time.Minute, false},
		{"15m", 15 * time.Minute, false},
		{"1h", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.tf, func(t *testing.T) {
			got, err := ParseTimeframe(tt.tf)
			if tt.wantErr {
				assert.Error(t, err)
				assert.False(t, IsValidTimeframe(tt.tf))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, IsValidTimeframe(tt.tf))
		})
	}
}
