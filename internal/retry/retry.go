// Package retry provides the bounded linear-backoff policy shared by the
// page fetcher and the classifier adapter.
package retry

import (
	"context"
	"fmt"
	"time"
)

// SleepFunc pauses for the given duration. Injected so tests can record
// the backoff schedule instead of sleeping.
type SleepFunc func(time.Duration)

// Policy defines retry behavior. The delay grows linearly: the wait after
// failed attempt n (0-based) is Delay*(n+1).
type Policy struct {
	MaxRetries int           // retries after the first attempt
	Delay      time.Duration // base delay unit
	Sleep      SleepFunc     // nil uses time.Sleep
}

// Do executes op, retrying up to MaxRetries additional times on error.
// Parameters:
//   - ctx: checked between attempts; cancellation stops further retries.
//   - op: the operation to attempt.
//
// Returns:
//   - error: nil on the first success, the context error on cancellation,
//     or the last attempt's error wrapped with the attempt count.
func (p Policy) Do(ctx context.Context, op func() error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error
	attempts := p.MaxRetries + 1

	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}

		if attempt == attempts-1 {
			break
		}

		// Linear, not exponential: 1x, 2x, 3x the base delay.
		sleep(p.Delay * time.Duration(attempt+1))
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
