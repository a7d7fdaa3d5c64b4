// Package ratelimit bounds the number of in-flight upstream requests and the
// request rate over a trailing window, shared across all city jobs in a run.
// The upstream API throttles per key; the limiter keeps 429s rare, it does
// not replace the fetch client's retry handling.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Permit represents the right to perform one upstream request.
// Release must be called when the request completes, success or failure.
type Permit struct {
	l    *Limiter
	once sync.Once
}

// Release returns the in-flight slot to the limiter. Safe to call more than
// once; only the first call has an effect.
func (p *Permit) Release() {
	p.once.Do(func() { <-p.l.slots })
}

// Limiter grants permits subject to two ceilings: at most maxInFlight
// requests at once, and at most maxPerWindow requests started within the
// trailing window.
type Limiter struct {
	maxPerWindow int
	window       time.Duration

	slots chan struct{}

	mu     sync.Mutex
	recent []time.Time
}

// New creates a limiter. maxInFlight and maxPerWindow must be positive.
func New(maxInFlight, maxPerWindow int, window time.Duration) *Limiter {
	return &Limiter{
		maxPerWindow: maxPerWindow,
		window:       window,
		slots:        make(chan struct{}, maxInFlight),
	}
}

// Acquire blocks until both an in-flight slot and a window token are
// available, or ctx is done. Waits are cooperative: the caller suspends on
// the slot channel or on a timer set to the moment the oldest window entry
// expires, never by polling.
func (l *Limiter) Acquire(ctx context.Context) (*Permit, error) {
	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	for {
		l.mu.Lock()
		now := time.Now()
		l.prune(now)
		if len(l.recent) < l.maxPerWindow {
			l.recent = append(l.recent, now)
			l.mu.Unlock()
			return &Permit{l: l}, nil
		}
		wait := l.recent[0].Add(l.window).Sub(now)
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			<-l.slots
			return nil, ctx.Err()
		}
	}
}

// InFlight returns the number of permits currently held.
func (l *Limiter) InFlight() int {
	return len(l.slots)
}

// prune drops window entries older than the trailing window.
// Caller must hold l.mu. time.Time carries a monotonic reading here, so the
// comparison is immune to wall-clock adjustments.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.recent) && !l.recent[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.recent = append(l.recent[:0], l.recent[i:]...)
	}
}
