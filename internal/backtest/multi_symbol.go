package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/amirphl/intraday-backtester/internal/candle"
)

// MinCandles is the shortest history accepted by RunMultiSymbol.
const MinCandles = 100

// CandleLoader supplies session-aligned candles for a symbol.
type CandleLoader interface {
	FetchCandles(ctx context.Context, symbol string, from, to time.Time) ([]candle.Candle, error)
}

// SymbolResult is either a result or an error message for one symbol.
type SymbolResult struct {
	Symbol string  `json:"symbol"`
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
	err    error
}

// Err returns the underlying error, if any.
func (s SymbolResult) Err() error { return s.err }

// Failed builds the result of a symbol that could not be run.
func Failed(symbol string, err error) SymbolResult {
	return SymbolResult{Symbol: symbol, Error: err.Error(), err: err}
}

// OverallPerformance aggregates all successful symbols.
type OverallPerformance struct {
	Trades       int     `json:"overall_trades"`
	Wins         int     `json:"overall_wins"`
	WinRate      float64 `json:"overall_win_rate"`
	PnL          float64 `json:"overall_pnl"`
	RecentTrades []Trade `json:"recent_trades"`
}

// MultiSymbolResults holds results for multiple symbols
type MultiSymbolResults struct {
	Results        map[string]SymbolResult `json:"results"`
	Overall        *OverallPerformance     `json:"overall,omitempty"`
	StartTime      time.Time               `json:"start_time"`
	EndTime        time.Time               `json:"end_time"`
	TotalSymbols   int                     `json:"total_symbols"`
	SuccessfulRuns int                     `json:"successful_runs"`
	FailedRuns     int                     `json:"failed_runs"`
	Aborted        bool                    `json:"aborted"`
}

// MultiOptions controls a multi-symbol run.
type MultiOptions struct {
	From    time.Time
	To      time.Time
	Workers int
}

// RunMultiSymbol runs every symbol as an isolated task on a bounded pool.
// Results are merged only after each symbol completes. A cancelled ctx stops
// dispatching; symbols already being scanned finish normally.
func (r *Runner) RunMultiSymbol(ctx context.Context, loader CandleLoader, symbols []string, opts MultiOptions) *MultiSymbolResults {
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	workers = min(workers, max(len(symbols), 1))

	out := &MultiSymbolResults{
		Results:      make(map[string]SymbolResult, len(symbols)),
		StartTime:    time.Now(),
		TotalSymbols: len(symbols),
	}

	jobs := make(chan string)
	done := make(chan SymbolResult, len(symbols))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range jobs {
				done <- r.runSymbol(ctx, loader, sym, opts)
			}
		}()
	}

dispatch:
	for _, sym := range symbols {
		if ctx.Err() != nil {
			out.Aborted = true
			break
		}
		select {
		case <-ctx.Done():
			out.Aborted = true
			break dispatch
		case jobs <- sym:
		}
	}
	close(jobs)
	wg.Wait()
	close(done)

	for sr := range done {
		out.Results[sr.Symbol] = sr
		if sr.Result != nil && sr.err == nil {
			out.SuccessfulRuns++
		} else {
			out.FailedRuns++
		}
	}
	if out.Aborted {
		for _, sym := range symbols {
			if _, ok := out.Results[sym]; !ok {
				out.Results[sym] = Failed(sym, fmt.Errorf("run aborted: %w", ctx.Err()))
				out.FailedRuns++
			}
		}
		r.log.Warn().Err(ctx.Err()).Int("completed", out.SuccessfulRuns).Msg("RunMultiSymbol | aborted between symbols")
	}

	if perf, err := Overall(out.Results); err == nil {
		out.Overall = perf
	}
	out.EndTime = time.Now()
	return out
}

func (r *Runner) runSymbol(ctx context.Context, loader CandleLoader, symbol string, opts MultiOptions) SymbolResult {
	fail := func(err error) SymbolResult {
		r.log.Error().Err(err).Str("symbol", symbol).Msg("runSymbol | backtest failed")
		return Failed(symbol, err)
	}

	candles, err := loader.FetchCandles(ctx, symbol, opts.From, opts.To)
	if err != nil {
		return fail(fmt.Errorf("failed to load candles: %w", err))
	}
	if candles == nil {
		return fail(&InputError{Symbol: symbol, Err: ErrNoData})
	}
	if len(candles) == 0 {
		return fail(&InputError{Symbol: symbol, Err: ErrEmptyData})
	}
	if len(candles) < MinCandles {
		return fail(&InputError{Symbol: symbol, Err: ErrInsufficientData})
	}
	r.log.Info().Str("symbol", symbol).Int("candles", len(candles)).Msg("runSymbol | loaded candles")

	res, err := r.Run(symbol, candles)
	if err != nil {
		if errors.Is(err, ErrNoClosedTrades) {
			return SymbolResult{Symbol: symbol, Result: res, Error: err.Error(), err: err}
		}
		return fail(err)
	}
	return SymbolResult{Symbol: symbol, Result: res}
}

// Overall combines the successful symbols of a run. It fails when none
// succeeded.
func Overall(results map[string]SymbolResult) (*OverallPerformance, error) {
	var (
		perf  OverallPerformance
		all   []Trade
		ok    int
		total = decimal.Zero
	)
	for _, sr := range results {
		if sr.Result == nil || sr.Error != "" {
			continue
		}
		ok++
		perf.Trades += sr.Result.TotalTrades
		perf.Wins += sr.Result.WonTrades
		total = total.Add(decimal.NewFromFloat(sr.Result.TotalPnL))
		all = append(all, sr.Result.RecentTrades...)
	}
	if ok == 0 {
		return nil, errors.New("no backtest results available")
	}

	perf.PnL = total.RoundBank(2).InexactFloat64()
	if perf.Trades > 0 {
		perf.WinRate = roundMoney(float64(perf.Wins) / float64(perf.Trades) * 100)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].ExitTime.Equal(all[j].ExitTime) {
			return all[i].Symbol < all[j].Symbol
		}
		return all[i].ExitTime.Before(all[j].ExitTime)
	})
	perf.RecentTrades = append([]Trade{}, all[max(0, len(all)-MaxShownTrades):]...)
	return &perf, nil
}
