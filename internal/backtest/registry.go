package backtest

import (
	"sort"
	"time"

	"github.com/amirphl/intraday-backtester/internal/candle"
)

// Registry enforces one trade per calendar day for a single symbol run.
type Registry struct {
	traded map[string]struct{}
	daily  map[string]Trade
}

func NewRegistry() *Registry {
	return &Registry{
		traded: make(map[string]struct{}),
		daily:  make(map[string]Trade),
	}
}

// Traded reports whether the day of t already holds a trade.
func (r *Registry) Traded(t time.Time) bool {
	_, ok := r.traded[candle.DateKey(t)]
	return ok
}

// Record stores tr under its decision day and blocks both the decision day
// and the entry day from further trades.
func (r *Registry) Record(tr Trade) {
	day := candle.DateKey(tr.DecisionTime)
	if _, ok := r.daily[day]; !ok {
		r.daily[day] = tr
	}
	r.traded[day] = struct{}{}
	r.traded[candle.DateKey(tr.EntryTime)] = struct{}{}
}

// DailyTrades returns the stored trades ordered by day.
func (r *Registry) DailyTrades() []Trade {
	days := make([]string, 0, len(r.daily))
	for d := range r.daily {
		days = append(days, d)
	}
	sort.Strings(days)
	out := make([]Trade, 0, len(days))
	for _, d := range days {
		out = append(out, r.daily[d])
	}
	return out
}
