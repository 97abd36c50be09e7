package abort

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/florianloch/sptfcore/internal/apierr"
)

func TestScopeFollowsHostCancellation(t *testing.T) {
	assert := assert.New(t)

	m := NewManager()
	host, cancel := context.WithCancel(context.Background())

	ctx, release := m.Scope(host)
	defer release()

	assert.NoError(Check(ctx))
	cancel()

	<-ctx.Done()
	err := Check(ctx)
	assert.ErrorIs(err, apierr.ErrCanceled)
	assert.ErrorIs(err, context.Canceled)
	assert.False(m.IsShutdown())
}

func TestScopeFollowsShutdown(t *testing.T) {
	assert := assert.New(t)

	m := NewManager()
	ctx, release := m.Scope(context.Background())

	go func() {
		<-ctx.Done()
		release()
	}()

	assert.NoError(m.Shutdown(time.Second))
	assert.ErrorIs(Check(ctx), ErrShutdown)
	assert.ErrorIs(Check(ctx), apierr.ErrCanceled)
	assert.Equal(0, m.InFlight())
}

func TestReleasedScopeIsUnlinked(t *testing.T) {
	m := NewManager()

	ctx, release := m.Scope(context.Background())
	release()
	release()

	assert.NoError(t, m.Shutdown(time.Second))
	// released scopes end with a plain cancel, not with the shutdown cause
	assert.NotErrorIs(t, context.Cause(ctx), ErrShutdown)
}

func TestScopeAfterShutdownIsCanceled(t *testing.T) {
	m := NewManager()
	assert.NoError(t, m.Shutdown(time.Second))

	ctx, release := m.Scope(context.Background())
	defer release()

	<-ctx.Done()
	assert.ErrorIs(t, Check(ctx), ErrShutdown)
}

func TestShutdownTimesOut(t *testing.T) {
	m := NewManager()
	_, release := m.Scope(context.Background())
	defer release()

	err := m.Shutdown(20 * time.Millisecond)
	assert.Error(t, err)
	assert.Equal(t, 1, m.InFlight())
}

func TestSleep(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	assert.ErrorIs(Sleep(ctx, time.Hour), apierr.ErrCanceled)
	assert.Less(time.Since(start), time.Second)
}
