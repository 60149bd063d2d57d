package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"floritechat/internal/pkg/randx"
)

// DefaultRoom is where every session starts.
const DefaultRoom = "lobby"

var (
	// ErrTransportClosed is returned by Send after the connection went away.
	ErrTransportClosed = errors.New("chat: transport closed")

	// ErrSendQueueFull is returned by Send when the peer does not drain its queue.
	ErrSendQueueFull = errors.New("chat: send queue full")
)

// Transport is the write side of one client connection. Send must not block for long;
// websocket transports enqueue and return.
type Transport interface {
	Send(data []byte) error
	Close() error
}

// Session is the server-side state of one live connection. Mutable fields are written
// only by Registry methods while the registry lock is held.
type Session struct {
	ID string

	transport Transport
	limiter   *rate.Limiter
	heartbeat *HeartbeatMonitor
	logger    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.RWMutex
	seq           uint64
	name          string
	room          string
	authenticated bool
	userID        string
	avatar        string
	lastActivity  time.Time

	detachOnce sync.Once
}

func newSession(parent context.Context, t Transport, limiter *rate.Limiter, logger zerolog.Logger, now time.Time) *Session {
	id := randx.SessionID()
	ctx, cancel := context.WithCancel(parent)

	return &Session{
		ID:           id,
		transport:    t,
		limiter:      limiter,
		logger:       logger.With().Str("session_id", id).Logger(),
		ctx:          ctx,
		cancel:       cancel,
		name:         randx.GuestName(id),
		room:         DefaultRoom,
		lastActivity: now,
	}
}

// Name is the display name: the claimed account name once logged in, the guest name before.
func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// Room is the room the session currently chats in.
func (s *Session) Room() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.room
}

// Authenticated reports whether the session has logged in.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// UserID is the account id, empty for guests.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Avatar is the avatar shown next to the session's messages.
func (s *Session) Avatar() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.avatar
}

// LastActivity is when the session last sent a frame.
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// Context is cancelled when the session detaches.
func (s *Session) Context() context.Context {
	return s.ctx
}

func (s *Session) allow() bool {
	return s.limiter == nil || s.limiter.Allow()
}

func (s *Session) send(data []byte) error {
	return s.transport.Send(data)
}

// shutdown cancels the session context and closes the transport. Safe to call repeatedly.
func (s *Session) shutdown() {
	s.cancel()
	if err := s.transport.Close(); err != nil && !errors.Is(err, ErrTransportClosed) {
		s.logger.Debug().Err(err).Msg("Transport close error")
	}
}
