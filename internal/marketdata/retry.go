package marketdata

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// RetryPolicy configures exponential backoff with jitter.
type RetryPolicy struct {
	Attempts      int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterRange   float64
}

// DefaultRetryPolicy is used when a provider gets a zero policy.
var DefaultRetryPolicy = RetryPolicy{
	Attempts:      3,
	BaseDelay:     2 * time.Second,
	MaxDelay:      30 * time.Second,
	BackoffFactor: 2.0,
	JitterRange:   0.1,
}

func (p RetryPolicy) orDefault() RetryPolicy {
	if p.Attempts <= 0 {
		return DefaultRetryPolicy
	}
	if p.BackoffFactor <= 0 {
		p.BackoffFactor = DefaultRetryPolicy.BackoffFactor
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultRetryPolicy.MaxDelay
	}
	return p
}

// calculateRetryDelay returns baseDelay * factor^attempt capped at maxDelay,
// with +/- jitterRange applied.
func calculateRetryDelay(attempt int, baseDelay, maxDelay time.Duration, backoffFactor, jitterRange float64) time.Duration {
	delay := float64(baseDelay) * math.Pow(backoffFactor, float64(attempt))
	if delay > float64(maxDelay) {
		delay = float64(maxDelay)
	}
	delay += delay * jitterRange * (2*rand.Float64() - 1)
	if delay < 0 {
		delay = float64(baseDelay)
	}
	return time.Duration(delay)
}

// retry runs fn until it succeeds, attempts run out or ctx is done.
func retry(ctx context.Context, log zerolog.Logger, p RetryPolicy, name string, fn func() error) error {
	p = p.orDefault()
	var lastErr error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == p.Attempts-1 {
			break
		}
		delay := calculateRetryDelay(attempt, p.BaseDelay, p.MaxDelay, p.BackoffFactor, p.JitterRange)
		log.Warn().Err(lastErr).Int("attempt", attempt+1).Int("attempts", p.Attempts).Dur("backoff", delay).
			Msgf("%s | retrying", name)
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, p.Attempts, lastErr)
}
