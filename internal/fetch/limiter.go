package fetch

import (
	"context"
	"sync"
	"time"
)

// WindowLimiter enforces a maximum number of calls within a rolling
// one-second window. Unlike a token bucket it never allows bursts above
// the cap, which matches how upstream explorers meter their free tiers.
type WindowLimiter struct {
	mu       sync.Mutex
	maxCalls int
	window   time.Duration
	calls    []time.Time
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewWindowLimiter creates a limiter allowing maxCalls per second.
// maxCalls <= 0 disables limiting.
func NewWindowLimiter(maxCalls int) *WindowLimiter {
	return &WindowLimiter{
		maxCalls: maxCalls,
		window:   time.Second,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Wait blocks until a call slot is available or the context is cancelled.
func (l *WindowLimiter) Wait(ctx context.Context) error {
	if l.maxCalls <= 0 {
		return nil
	}

	for {
		l.mu.Lock()
		now := l.now()
		l.prune(now)

		if len(l.calls) < l.maxCalls {
			l.calls = append(l.calls, now)
			l.mu.Unlock()
			return nil
		}

		// Oldest call ages out first
		wait := l.calls[0].Add(l.window).Sub(now)
		l.mu.Unlock()

		if wait <= 0 {
			continue
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// prune drops call records older than the window. Caller holds the lock.
func (l *WindowLimiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.calls) && !l.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.calls = append(l.calls[:0], l.calls[i:]...)
	}
}
