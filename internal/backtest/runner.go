// Package backtest drives the SMA rejection scan over candle history.
package backtest

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/amirphl/intraday-backtester/internal/candle"
	"github.com/amirphl/intraday-backtester/internal/strategy"
	"github.com/amirphl/intraday-backtester/internal/strategy/state_machine"
	"github.com/amirphl/intraday-backtester/internal/utils"
)

// Runner runs the scan for one symbol at a time. A Runner keeps no state
// between calls, so one instance may serve several goroutines.
type Runner struct {
	engine *strategy.Engine
	log    zerolog.Logger
}

func NewRunner(policy strategy.Policy) *Runner {
	return &Runner{
		engine: strategy.NewEngine(policy),
		log:    utils.Logger("backtest"),
	}
}

// run holds the mutable state of one symbol scan.
type run struct {
	symbol   string
	bars     []strategy.Bar
	registry *Registry
	sm       *state_machine.StateMachine
	trades   []Trade
	open     *Trade
	stats    RunStats
}

// Run scans candles for symbol and returns the aggregated result. Candles must
// be ordered and carry exchange local timestamps. When no trade closes the
// partial result is returned together with ErrNoClosedTrades.
func (r *Runner) Run(symbol string, candles []candle.Candle) (*Result, error) {
	if candles == nil {
		return nil, &InputError{Symbol: symbol, Err: ErrNoData}
	}
	if len(candles) == 0 {
		return nil, &InputError{Symbol: symbol, Err: ErrEmptyData}
	}
	if err := candle.ValidateSequence(candles); err != nil {
		return nil, &InputError{Symbol: symbol, Err: err}
	}
	for i := range candles {
		if err := candles[i].ValidatePrices(); err != nil {
			return nil, &InputError{Symbol: symbol, Err: fmt.Errorf("candle at index %d: %w", i, err)}
		}
	}

	st := &run{
		symbol:   symbol,
		bars:     strategy.ComputeIndicators(candles),
		registry: NewRegistry(),
		sm:       state_machine.NewStateMachine(symbol),
	}
	st.stats.Candles = len(candles)

	r.scan(st)
	r.log.Debug().Str("symbol", symbol).Interface("scan", st.sm.GetStateMetrics()).Msg("Run | scan finished")

	res := &Result{
		Symbol:      symbol,
		DailyTrades: st.registry.DailyTrades(),
		OpenTrade:   st.open,
		Stats:       st.stats,
		Journal:     st.sm.GetStateHistory(),
	}
	m, err := ComputeMetrics(st.trades)
	if err != nil {
		r.log.Info().Str("symbol", symbol).Int("candles", len(candles)).Msg("Run | no closed trades")
		return res, err
	}
	res.Metrics = m

	r.log.Info().
		Str("symbol", symbol).
		Int("trades", m.TotalTrades).
		Float64("win_rate", m.WinRate).
		Float64("pnl", m.TotalPnL).
		Float64("max_drawdown", m.MaxDrawdown).
		Msg("Run | backtest completed")
	return res, nil
}

func (r *Runner) scan(st *run) {
	bars := st.bars
	i := 0
	for i < len(bars) {
		cur := bars[i]
		if st.registry.Traded(cur.Timestamp) {
			st.stats.TradedDayBars++
			i++
			continue
		}

		setup := r.engine.DetectSetup(bars, i)
		if setup == strategy.None {
			i++
			continue
		}
		st.stats.Setups++
		st.sm.TransitionTo(state_machine.AwaitingRejection, cur.Timestamp, "setup", setup,
			fmt.Sprintf("decision bar %s SMA %.2f", setup, cur.SMA))

		rej := r.engine.FindRejection(bars, i, setup)
		if rej == nil {
			st.sm.TransitionTo(state_machine.Scanning, cur.Timestamp, "no rejection", setup, "")
			i++
			continue
		}
		st.stats.Rejections++
		st.sm.TransitionTo(state_machine.ValidatingEntry, rej.Time, "rejection", setup,
			fmt.Sprintf("rejection at index %d", rej.Index))

		next, err := r.validateAndTrade(st, i, *rej)
		if err != nil {
			r.log.Debug().Err(err).Str("symbol", st.symbol).Time("decision", cur.Timestamp).Msg("scan | setup abandoned")
		}
		i = next
	}
}

// validateAndTrade applies the entry filters to a rejection and simulates the
// trade. It returns the next cursor position.
func (r *Runner) validateAndTrade(st *run, decisionIdx int, rej strategy.Rejection) (int, error) {
	bars := st.bars
	decision := bars[decisionIdx]
	params := strategy.ComputeEntryExit(rej)

	entryIdx := rej.Index + EntryDelay
	if entryIdx >= len(bars) {
		st.stats.DataExhausted++
		st.sm.TransitionTo(state_machine.Scanning, rej.Time, "data exhausted", rej.Setup, "")
		return decisionIdx + 1, ErrDataExhausted
	}

	for k := rej.Index + 1; k < entryIdx; k++ {
		b := bars[k]
		if (rej.Setup == strategy.LongSetup && b.Low <= params.StopLoss) ||
			(rej.Setup == strategy.ShortSetup && b.High >= params.StopLoss) {
			st.stats.StopWickSkips++
			st.sm.TransitionTo(state_machine.Scanning, b.Timestamp, "stop touched before entry", rej.Setup, "")
			return entryIdx, nil
		}
		if r.engine.Policy().SMATouchInvalidation && strategy.TouchesSMA(b, rej.Setup) {
			st.stats.SMATouchSkips++
			st.sm.TransitionTo(state_machine.Scanning, b.Timestamp, "SMA touched before entry", rej.Setup, "")
			return entryIdx, nil
		}
	}

	entry := bars[entryIdx]
	if secondsOfDay(entry.Timestamp) > EntryCutoff {
		st.stats.LateEntrySkips++
		st.sm.TransitionTo(state_machine.Scanning, entry.Timestamp, "entry after cutoff", rej.Setup, "")
		return entryIdx, nil
	}

	st.sm.TransitionTo(state_machine.InTrade, entry.Timestamp, "entry", rej.Setup,
		fmt.Sprintf("entry %.2f stop %.2f target %.2f", params.Entry, params.StopLoss, params.Target))
	tr := simulateTrade(bars, entryIdx, st.symbol, decision, params)
	if !tr.Closed() {
		st.stats.OpenAtEnd++
		st.open = &tr
		st.sm.TransitionTo(state_machine.Scanning, bars[len(bars)-1].Timestamp, "data ended", rej.Setup, "trade left open")
		return decisionIdx + 1, nil
	}

	st.stats.ClosedTrades++
	st.trades = append(st.trades, tr)
	st.registry.Record(tr)
	st.sm.TransitionTo(state_machine.Scanning, tr.ExitTime, string(tr.ExitReason), rej.Setup,
		fmt.Sprintf("pnl %.2f", tr.PnL))
	return tr.ExitIndex, nil
}
