package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestConcurrencyCeiling(t *testing.T) {
	const maxInFlight = 2
	l := New(maxInFlight, 1000, time.Second)

	var inFlight, maxObserved int64
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			permit, err := l.Acquire(context.Background())
			if err != nil {
				t.Errorf("acquire failed: %v", err)
				return
			}
			defer permit.Release()

			n := atomic.AddInt64(&inFlight, 1)
			for {
				prev := atomic.LoadInt64(&maxObserved)
				if n <= prev || atomic.CompareAndSwapInt64(&maxObserved, prev, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&inFlight, -1)
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt64(&maxObserved); got > maxInFlight {
		t.Errorf("observed %d concurrent permits, ceiling is %d", got, maxInFlight)
	}
}

func TestWindowRate(t *testing.T) {
	const perWindow = 3
	window := 100 * time.Millisecond
	l := New(10, perWindow, window)

	start := time.Now()
	for i := 0; i < perWindow; i++ {
		p, err := l.Acquire(context.Background())
		if err != nil {
			t.Fatalf("acquire %d failed: %v", i, err)
		}
		p.Release()
	}
	if elapsed := time.Since(start); elapsed > window/2 {
		t.Fatalf("first %d acquires should not block, took %v", perWindow, elapsed)
	}

	// The window is full; the next acquire must wait for the oldest entry
	// to age out.
	p, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire after full window failed: %v", err)
	}
	p.Release()
	if elapsed := time.Since(start); elapsed < window/2 {
		t.Errorf("acquire beyond the window rate returned after %v, expected a wait near %v", elapsed, window)
	}
}

func TestAcquireCancellation(t *testing.T) {
	l := New(1, 1, time.Minute)

	held, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	defer held.Release()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := l.Acquire(ctx)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("acquire did not unblock on cancellation")
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	l := New(1, 10, time.Second)

	p, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	p.Release()
	p.Release()

	if got := l.InFlight(); got != 0 {
		t.Errorf("expected 0 in flight after double release, got %d", got)
	}

	// The slot must be usable again.
	p2, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("reacquire failed: %v", err)
	}
	p2.Release()
}
