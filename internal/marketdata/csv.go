package marketdata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/intraday-backtester/internal/candle"
	"github.com/amirphl/intraday-backtester/internal/tfutils"
)

// CSVProvider reads <dir>/<SYMBOL>.csv files with the header
// timestamp,open,high,low,close,volume. Timeframe is the bar size stored in
// the files; 1m files are resampled.
type CSVProvider struct {
	dir       string
	timeframe string
	loc       *time.Location
}

func NewCSVProvider(dir, timeframe string, loc *time.Location) *CSVProvider {
	if timeframe == "" {
		timeframe = WorkingTimeframe
	}
	return &CSVProvider{dir: dir, timeframe: timeframe, loc: loc}
}

func (p *CSVProvider) FetchCandles(ctx context.Context, symbol string, from, to time.Time) ([]candle.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.timeframe != tfutils.OneMinute && p.timeframe != WorkingTimeframe {
		return nil, fmt.Errorf("unsupported csv timeframe %q, want %s or %s", p.timeframe, tfutils.OneMinute, WorkingTimeframe)
	}
	path := filepath.Join(p.dir, NormalizeSymbol(symbol)+".csv")
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	candles, err := ReadCSV(f, symbol, p.timeframe, p.loc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if p.timeframe == tfutils.OneMinute {
		if candles, err = toWorking(candles, p.loc); err != nil {
			return nil, err
		}
	}
	out, err := finalize(candles, p.loc, from, to)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []candle.Candle{}
	}
	return out, nil
}

var csvTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
}

func parseCSVTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).In(loc), nil
	}
	for _, layout := range csvTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// ReadCSV parses candles from r. Rows are returned in file order.
func ReadCSV(r io.Reader, symbol, timeframe string, loc *time.Location) ([]candle.Candle, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return []candle.Candle{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range []string{"timestamp", "open", "high", "low", "close"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var out []candle.Candle
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ts, err := parseCSVTime(rec[col["timestamp"]], loc)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		num := func(name string) (float64, error) {
			i, ok := col[name]
			if !ok {
				return 0, nil
			}
			return strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
		}
		c := candle.Candle{Timestamp: ts, Symbol: symbol, Timeframe: timeframe, Source: "csv"}
		for _, f := range []struct {
			name string
			dst  *float64
		}{{"open", &c.Open}, {"high", &c.High}, {"low", &c.Low}, {"close", &c.Close}, {"volume", &c.Volume}} {
			v, err := num(f.name)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad %s: %w", line, f.name, err)
			}
			*f.dst = v
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, c)
	}
	if out == nil {
		out = []candle.Candle{}
	}
	return out, nil
}
