// Package abort links the process wide shutdown signal with per-call cancellation.
package abort

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/florianloch/sptfcore/internal/apierr"
)

var ErrShutdown = errors.New("core is shutting down")

// Manager owns the global shutdown signal and tracks every scope opened on it.
type Manager struct {
	ctx    context.Context
	cancel context.CancelCauseFunc

	mu       sync.Mutex
	inflight int
	drained  chan struct{}
}

func NewManager() *Manager {
	ctx, cancel := context.WithCancelCause(context.Background())

	drained := make(chan struct{})
	close(drained)

	return &Manager{ctx: ctx, cancel: cancel, drained: drained}
}

// Scope returns a context canceled when either host or the manager is done.
// The returned release func must be called once the operation finished; it
// dissolves the link so a later shutdown does not touch the finished call.
func (m *Manager) Scope(host context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(host)
	stop := context.AfterFunc(m.ctx, func() {
		cancel(ErrShutdown)
	})
	// AfterFunc runs asynchronously on an already fired signal
	if m.ctx.Err() != nil {
		cancel(ErrShutdown)
	}

	m.mu.Lock()
	if m.inflight == 0 {
		m.drained = make(chan struct{})
	}
	m.inflight++
	m.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			stop()
			cancel(nil)

			m.mu.Lock()
			m.inflight--
			if m.inflight == 0 {
				close(m.drained)
			}
			m.mu.Unlock()
		})
	}

	return ctx, release
}

// Done is closed once Shutdown was called.
func (m *Manager) Done() <-chan struct{} {
	return m.ctx.Done()
}

func (m *Manager) IsShutdown() bool {
	return m.ctx.Err() != nil
}

// Shutdown fires the global signal and waits up to timeout for open scopes to
// be released. Firing is irrevocable.
func (m *Manager) Shutdown(timeout time.Duration) error {
	m.cancel(ErrShutdown)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		m.mu.Lock()
		if m.inflight == 0 {
			m.mu.Unlock()
			return nil
		}
		drained := m.drained
		m.mu.Unlock()

		select {
		case <-drained:
		case <-timer.C:
			return fmt.Errorf("%d operations still running after %s", m.InFlight(), timeout)
		}
	}
}

func (m *Manager) InFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.inflight
}

// Check returns a Canceled error if ctx is done.
func Check(ctx context.Context) error {
	if ctx.Err() == nil {
		return nil
	}

	return fmt.Errorf("%w: %w", apierr.ErrCanceled, context.Cause(ctx))
}

// Sleep waits for d unless ctx is done first.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return Check(ctx)
	}
}
