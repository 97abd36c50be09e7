// Package ratelimit caps the number of outgoing requests within a sliding window.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/florianloch/sptfcore/internal/apierr"
)

// Limiter grants at most limit permits within any window-sized interval.
// Waiters are served in arrival order. Permits are released by the passage of
// time only, so a caller failing after Acquire can never leak one.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	// turn is held by the waiter at the head of the queue. Blocked channel
	// senders are woken in FIFO order.
	turn chan struct{}

	mu     sync.Mutex
	grants []time.Time
}

func New(limit int, window time.Duration) *Limiter {
	if limit < 1 {
		limit = 1
	}

	return &Limiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		turn:   make(chan struct{}, 1),
		grants: make([]time.Time, 0, limit),
	}
}

// Acquire blocks until a permit is granted or ctx is done. A canceled waiter
// does not consume a permit.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return canceled(ctx)
	}

	select {
	case l.turn <- struct{}{}:
	case <-ctx.Done():
		return canceled(ctx)
	}
	defer func() { <-l.turn }()

	for {
		wait := l.reserve()
		if wait <= 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return canceled(ctx)
		}
	}
}

// reserve records a grant and returns 0, or returns how long to wait until
// the oldest grant leaves the window.
func (l *Limiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	kept := l.grants[:0]
	for _, granted := range l.grants {
		if now.Sub(granted) < l.window {
			kept = append(kept, granted)
		}
	}
	l.grants = kept

	if len(l.grants) < l.limit {
		l.grants = append(l.grants, now)
		return 0
	}

	return l.grants[0].Add(l.window).Sub(now)
}

// InWindow returns the number of permits granted within the current window.
func (l *Limiter) InWindow() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	n := 0
	for _, granted := range l.grants {
		if now.Sub(granted) < l.window {
			n++
		}
	}

	return n
}

func canceled(ctx context.Context) error {
	return fmt.Errorf("%w: waiting for rate limit: %w", apierr.ErrCanceled, context.Cause(ctx))
}
