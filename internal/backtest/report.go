package backtest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

// PrintResult logs the summary of one symbol run.
func (r *Runner) PrintResult(res *Result) {
	if res == nil {
		return
	}
	r.log.Info().Msgf("Backtest Results (%s):", res.Symbol)
	r.log.Info().Msgf("  Trades=%d, Wins=%d, Losses=%d, WinRate=%.2f%%",
		res.TotalTrades, res.WonTrades, res.LostTrades, res.WinRate)
	r.log.Info().Msgf("  TotalPnL=%.2f, MaxDrawdown=%.2f", res.TotalPnL, res.MaxDrawdown)
	r.log.Info().Msgf("  Setups=%d, Rejections=%d, DataExhausted=%d, StopWickSkips=%d, SMATouchSkips=%d, LateEntrySkips=%d",
		res.Stats.Setups, res.Stats.Rejections, res.Stats.DataExhausted,
		res.Stats.StopWickSkips, res.Stats.SMATouchSkips, res.Stats.LateEntrySkips)
	if res.OpenTrade != nil {
		r.log.Info().Msgf("  Open at end: %s entry=%.2f at %s (excluded)",
			res.OpenTrade.Setup, res.OpenTrade.EntryPrice, res.OpenTrade.EntryTime.Format(time.RFC3339))
	}
	r.log.Info().Msgf("Trade Log Summary (Last %d trades):", MaxShownTrades)
	for i, t := range res.RecentTrades {
		r.log.Info().Msgf("  Trade %d: %s Entry=%.2f at %s, Exit=%.2f at %s, PnL=%.2f, Reason=%s",
			i+1, t.Setup, t.EntryPrice, t.EntryTime.Format(time.RFC3339),
			t.ExitPrice, t.ExitTime.Format(time.RFC3339), t.PnL, t.ExitReason)
	}
}

// PrintMultiSummary logs the summary of a multi-symbol run.
func (r *Runner) PrintMultiSummary(res *MultiSymbolResults) {
	r.log.Info().Msg("===== MULTI-SYMBOL BACKTEST SUMMARY =====")
	r.log.Info().Msgf("Duration: %v", res.EndTime.Sub(res.StartTime).Round(time.Millisecond))
	r.log.Info().Msgf("Total Symbols: %d, Successful: %d, Failed: %d, Aborted: %t",
		res.TotalSymbols, res.SuccessfulRuns, res.FailedRuns, res.Aborted)

	symbols := make([]string, 0, len(res.Results))
	for s := range res.Results {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	for _, s := range symbols {
		sr := res.Results[s]
		if sr.Error != "" {
			r.log.Warn().Msgf("  %s: %s", s, sr.Error)
			continue
		}
		r.log.Info().Msgf("  %s: trades=%d win_rate=%.2f%% pnl=%.2f max_dd=%.2f",
			s, sr.Result.TotalTrades, sr.Result.WinRate, sr.Result.TotalPnL, sr.Result.MaxDrawdown)
	}

	if o := res.Overall; o != nil {
		r.log.Info().Msg("=== OVERALL ===")
		r.log.Info().Msgf("Trades: %d, Wins: %d, WinRate: %.2f%%, PnL: %.2f", o.Trades, o.Wins, o.WinRate, o.PnL)
	}
}

var tradeHeader = []string{
	"Trade#", "Symbol", "Side", "DecisionTime", "EntryTime", "Entry", "StopLoss", "Target",
	"ExitTime", "Exit", "Reason", "Quantity", "PnL",
}

func tradeRow(n int, t Trade) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	return []string{
		strconv.Itoa(n),
		t.Symbol,
		t.Setup.String(),
		t.DecisionTime.Format(time.RFC3339),
		t.EntryTime.Format(time.RFC3339),
		f(t.EntryPrice),
		f(t.StopLoss),
		f(t.TargetPrice),
		t.ExitTime.Format(time.RFC3339),
		f(t.ExitPrice),
		string(t.ExitReason),
		strconv.FormatFloat(t.Quantity, 'f', -1, 64),
		f(t.PnL),
	}
}

// SaveTradesCSV writes the one-per-day trades of res to <dir>/<symbol>_trades.csv
// and returns the file path.
func SaveTradesCSV(dir string, res *Result) (string, error) {
	if res == nil {
		return "", fmt.Errorf("nil result")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	rows := [][]string{tradeHeader}
	for i, t := range res.DailyTrades {
		rows = append(rows, tradeRow(i+1, t))
	}
	path := filepath.Join(dir, res.Symbol+"_trades.csv")
	return path, saveCSV(path, rows)
}

// SaveResultsJSON writes a multi-symbol run as indented JSON.
func SaveResultsJSON(path string, res *MultiSymbolResults) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return nil
}

func saveCSV(filename string, rows [][]string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return nil
}
