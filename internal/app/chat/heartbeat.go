package chat

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultIdleWindow is how long a session may stay silent before it is warned.
const DefaultIdleWindow = 30 * time.Second

const idleWarning = "Connection timed out, please check your network."

// HeartbeatMonitor watches one session for inbound silence. It only warns; closing idle
// connections is left to the transport read deadline.
type HeartbeatMonitor struct {
	clock  clockwork.Clock
	window time.Duration
	onIdle func()

	last atomic.Int64
}

func NewHeartbeatMonitor(clock clockwork.Clock, window time.Duration, onIdle func()) *HeartbeatMonitor {
	if window <= 0 {
		window = DefaultIdleWindow
	}

	m := &HeartbeatMonitor{clock: clock, window: window, onIdle: onIdle}
	m.Touch()
	return m
}

// Touch records inbound activity.
func (m *HeartbeatMonitor) Touch() {
	m.last.Store(m.clock.Now().UnixNano())
}

// Run blocks until ctx is done, calling onIdle once per full window of silence.
func (m *HeartbeatMonitor) Run(ctx context.Context) {
	timer := m.clock.NewTimer(m.window)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.Chan():
			idle := m.clock.Since(time.Unix(0, m.last.Load()))
			if idle >= m.window {
				m.onIdle()
				m.Touch()
				timer.Reset(m.window)
				continue
			}
			timer.Reset(m.window - idle)
		}
	}
}
