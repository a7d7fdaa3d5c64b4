// Package retry implements the exponential backoff policy shared by the
// fetch client and the uploader. Each caller keeps its own attempt counter.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy controls backoff for retryable operations. MaxRetries is the total
// attempt budget: an operation is tried at most MaxRetries times.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Delay returns the base delay before retry attempt n (0-based), ignoring
// jitter: BaseDelay * 2^n, capped at MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay || d <= 0 {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Jittered scales d by a random factor in [0.5, 1.5).
func Jittered(d time.Duration) time.Duration {
	return time.Duration(float64(d) * (0.5 + rand.Float64()))
}

// Do runs op until it succeeds, fails with a non-retryable error, exhausts
// the attempt budget, or ctx is cancelled. The delay between attempts
// suspends on a timer so concurrent operations keep running. It returns the
// number of attempts made alongside the final error.
func Do(ctx context.Context, p Policy, retryable func(error) bool, op func(ctx context.Context) error) (int, error) {
	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return attempts, err
		}
		attempts++
		err := op(ctx)
		if err == nil {
			return attempts, nil
		}
		if !retryable(err) || attempts >= p.MaxRetries {
			return attempts, err
		}
		timer := time.NewTimer(Jittered(p.Delay(attempts - 1)))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return attempts, ctx.Err()
		}
	}
}
