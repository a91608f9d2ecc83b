package strategy

// Policy toggles optional filters. The zero value disables both.
type Policy struct {
	// ChoppyFilter requires the SMA to be trending in the setup direction by
	// at least MinSlopePercent over SlopeLookback bars before a rejection
	// candidate is accepted.
	ChoppyFilter    bool    `yaml:"choppy_filter" json:"choppy_filter"`
	SlopeLookback   int     `yaml:"slope_lookback" json:"slope_lookback"`
	MinSlopePercent float64 `yaml:"min_slope_percent" json:"min_slope_percent"`

	// SMATouchInvalidation discards a setup when any bar strictly between the
	// rejection and the entry bar touches the SMA with its wick.
	SMATouchInvalidation bool `yaml:"sma_touch_invalidation" json:"sma_touch_invalidation"`
}

const (
	DefaultSlopeLookback   = 10
	DefaultMinSlopePercent = 0.05
)

// WithDefaults fills unset filter parameters.
func (p Policy) WithDefaults() Policy {
	if p.SlopeLookback <= 0 {
		p.SlopeLookback = DefaultSlopeLookback
	}
	if p.MinSlopePercent <= 0 {
		p.MinSlopePercent = DefaultMinSlopePercent
	}
	return p
}
