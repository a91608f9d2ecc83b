// Package api exposes backtest runs over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/amirphl/intraday-backtester/internal/backtest"
	"github.com/amirphl/intraday-backtester/internal/config"
	"github.com/amirphl/intraday-backtester/internal/utils"
)

var ErrInvalidDays = errors.New("days must be positive")

// RunRecord is the outcome of one POST /api/backtest/run.
type RunRecord struct {
	RunID      string                           `json:"run_id"`
	Days       int                              `json:"days"`
	From       time.Time                        `json:"from"`
	To         time.Time                        `json:"to"`
	StartedAt  time.Time                        `json:"started_at"`
	FinishedAt time.Time                        `json:"finished_at"`
	Aborted    bool                             `json:"aborted"`
	Results    map[string]backtest.SymbolResult `json:"results"`
	Overall    *backtest.OverallPerformance     `json:"overall,omitempty"`
}

type ServiceOptions struct {
	Watchlist   config.Watchlist
	Location    *time.Location
	DefaultDays int
	Workers     int
	RunTimeout  time.Duration
}

// Service runs backtests on demand and keeps the latest result of every symbol.
type Service struct {
	runner *backtest.Runner
	loader backtest.CandleLoader
	opts   ServiceOptions
	now    func() time.Time
	log    zerolog.Logger

	mu      sync.RWMutex
	results map[string]backtest.SymbolResult
}

func NewService(runner *backtest.Runner, loader backtest.CandleLoader, opts ServiceOptions) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.DefaultDays <= 0 {
		opts.DefaultDays = 30
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Service{
		runner:  runner,
		loader:  loader,
		opts:    opts,
		now:     time.Now,
		log:     utils.Logger("api"),
		results: make(map[string]backtest.SymbolResult),
	}
}

// Run backtests one watchlist symbol, or the whole watchlist when symbol is
// empty, over the last days calendar days. days == 0 selects the default.
func (s *Service) Run(ctx context.Context, symbol string, days int) (*RunRecord, error) {
	if days == 0 {
		days = s.opts.DefaultDays
	}
	if days < 0 {
		return nil, ErrInvalidDays
	}
	from, to, err := config.ResolveRange("", "", days, s.opts.Location, s.now())
	if err != nil {
		return nil, err
	}

	rec := &RunRecord{
		RunID:     uuid.New().String(),
		Days:      days,
		From:      from,
		To:        to,
		StartedAt: time.Now(),
		Results:   make(map[string]backtest.SymbolResult),
	}

	var symbols []string
	if symbol = strings.ToUpper(strings.TrimSpace(symbol)); symbol != "" {
		if _, ok := s.opts.Watchlist.SecurityID(symbol); ok {
			symbols = []string{symbol}
		} else {
			rec.Results[symbol] = backtest.Failed(symbol, fmt.Errorf("security id not found for %s", symbol))
		}
	} else {
		symbols = s.opts.Watchlist.Symbols()
	}

	s.log.Info().Str("run_id", rec.RunID).Strs("symbols", symbols).Int("days", days).Msg("Run | starting backtest")

	if len(symbols) > 0 {
		runCtx := ctx
		if s.opts.RunTimeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, s.opts.RunTimeout)
			defer cancel()
		}
		multi := s.runner.RunMultiSymbol(runCtx, s.loader, symbols, backtest.MultiOptions{
			From:    from,
			To:      to,
			Workers: s.opts.Workers,
		})
		rec.Aborted = multi.Aborted
		for sym, sr := range multi.Results {
			rec.Results[sym] = sr
		}

		// symbols rejected before the run stay in the record only
		s.mu.Lock()
		for sym, sr := range multi.Results {
			s.results[sym] = sr
		}
		s.mu.Unlock()
	}
	if perf, err := backtest.Overall(rec.Results); err == nil {
		rec.Overall = perf
	}
	rec.FinishedAt = time.Now()

	s.log.Info().Str("run_id", rec.RunID).Bool("aborted", rec.Aborted).
		Dur("elapsed", rec.FinishedAt.Sub(rec.StartedAt)).Msg("Run | backtest finished")
	return rec, nil
}

// Results returns the latest result of every symbol run so far.
func (s *Service) Results() map[string]backtest.SymbolResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]backtest.SymbolResult, len(s.results))
	for k, v := range s.results {
		out[k] = v
	}
	return out
}

// Performance aggregates the latest successful results.
func (s *Service) Performance() (*backtest.OverallPerformance, error) {
	return backtest.Overall(s.Results())
}

func (s *Service) Watchlist() []config.WatchlistEntry {
	return append([]config.WatchlistEntry(nil), s.opts.Watchlist...)
}
