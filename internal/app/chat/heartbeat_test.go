package chat

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeartbeatWarnsAfterIdleWindow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clock := clockwork.NewFakeClock()
	var warnings atomic.Int32
	m := NewHeartbeatMonitor(clock, 30*time.Second, func() { warnings.Add(1) })

	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(20 * time.Second)
	m.Touch()

	// fires at 30s but only 10s have passed since the touch
	clock.Advance(10 * time.Second)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Zero(t, warnings.Load())

	clock.Advance(20 * time.Second)
	require.Eventually(t, func() bool { return warnings.Load() == 1 }, time.Second, 5*time.Millisecond)

	// the warning restarts the window
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(30 * time.Second)
	require.Eventually(t, func() bool { return warnings.Load() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestIdleSessionIsWarnedNotClosed(t *testing.T) {
	th := newTestHub(t, Collaborators{})
	_, ft := th.connect()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, th.clock.BlockUntilContext(ctx, 1))

	th.clock.Advance(DefaultIdleWindow)

	require.Eventually(t, func() bool { return len(ft.ofType(t, TypeSystem)) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, idleWarning, ft.ofType(t, TypeSystem)[0]["message"])
	assert.False(t, ft.isClosed())
	assert.Equal(t, 1, th.Connections())
}
