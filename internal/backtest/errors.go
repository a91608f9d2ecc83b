package backtest

import (
	"errors"
	"fmt"
)

var (
	ErrNoData         = errors.New("no data provided for backtest")
	ErrEmptyData      = errors.New("empty candle sequence")
	ErrDataExhausted  = errors.New("not enough candles after rejection for entry")
	ErrNoClosedTrades = errors.New("no closed trades")
	// ErrInsufficientData is raised by callers that require a minimum history
	// before running the scan.
	ErrInsufficientData = errors.New("insufficient data for analysis")
)

// InputError reports a problem with the candles handed to a run. It aborts
// that symbol only.
type InputError struct {
	Symbol string
	Err    error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("backtest %s: %v", e.Symbol, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// IsInputError reports whether err is an InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}
