/*
Package chat is the realtime core of the server: the session registry, the login gate,
command dispatch, streamed replies and room-scoped fan-out.

This file defines the Hub, which owns the lifecycle of every connection from attach to
detach and routes each inbound frame.
*/
package chat

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"floritechat/internal/app/user"
	"floritechat/internal/pkg/errs"
	"floritechat/internal/pkg/logx"
	"floritechat/internal/pkg/metrics"
)

const (
	// MaxContentBytes is the largest chat text accepted.
	MaxContentBytes = 5000

	// DefaultMessageRate and DefaultMessageBurst bound how fast one session may chat.
	DefaultMessageRate  = 5.0
	DefaultMessageBurst = 10
)

// Options configure a Hub. Users is required; zero values elsewhere select defaults.
type Options struct {
	Users         user.Store
	Collaborators Collaborators
	Clock         clockwork.Clock
	JWTSecret     string

	IdleWindow   time.Duration
	NewsSettle   time.Duration
	MessageRate  float64
	MessageBurst int
}

// inboundFrame is the union of every JSON frame a client may send.
type inboundFrame struct {
	Type     MessageType `json:"type"`
	Message  string      `json:"message"`
	Username string      `json:"username"`
	Password string      `json:"password"`
	Room     string      `json:"room"`
	ImageID  string      `json:"image_id"`
}

// Hub coordinates every live session.
type Hub struct {
	registry   *Registry
	out        *Broadcaster
	auth       *AuthGate
	dispatcher *Dispatcher

	clock        clockwork.Clock
	idleWindow   time.Duration
	messageRate  rate.Limit
	messageBurst int

	ctx     context.Context
	cancel  context.CancelFunc
	closing atomic.Bool
	wg      sync.WaitGroup

	logger zerolog.Logger
}

// NewHub wires the registry, broadcaster, auth gate and dispatcher together.
func NewHub(opts Options) *Hub {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.MessageRate <= 0 {
		opts.MessageRate = DefaultMessageRate
	}
	if opts.MessageBurst <= 0 {
		opts.MessageBurst = DefaultMessageBurst
	}

	base := *logx.Logger()
	registry := NewRegistry()
	out := NewBroadcaster(registry, opts.Clock, base)

	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		registry:     registry,
		out:          out,
		auth:         NewAuthGate(registry, out, opts.Users, opts.JWTSecret, base),
		dispatcher:   NewDispatcher(registry, out, NewCommandTable(opts.Collaborators, opts.Clock, opts.NewsSettle), base),
		clock:        opts.Clock,
		idleWindow:   opts.IdleWindow,
		messageRate:  rate.Limit(opts.MessageRate),
		messageBurst: opts.MessageBurst,
		ctx:          ctx,
		cancel:       cancel,
		logger:       base.With().Str("component", "Hub").Logger(),
	}
	out.onEvict = func(*Session) { h.updateGauge() }

	return h
}

// Attach registers a new session on t, greets it and starts its idle watchdog.
func (h *Hub) Attach(t Transport) *Session {
	s := newSession(h.ctx, t, rate.NewLimiter(h.messageRate, h.messageBurst), h.logger, h.clock.Now())
	s.heartbeat = NewHeartbeatMonitor(h.clock, h.idleWindow, func() {
		h.out.SendTo(s, systemNotice(idleWarning))
	})

	h.registry.Register(s)
	h.updateGauge()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		s.heartbeat.Run(s.ctx)
	}()

	s.logger.Info().Msg("Session attached")
	h.out.SendTo(s, systemNotice("Welcome to FloriteChat! Your temporary ID is: "+s.ID))

	return s
}

// Detach tears s down once. A session still registered at that point gets a departure
// notice; one already evicted by a failed broadcast was announced then.
func (h *Hub) Detach(s *Session) {
	s.detachOnce.Do(func() {
		s.shutdown()

		if _, ok := h.registry.Unregister(s.ID); ok && !h.closing.Load() {
			h.out.announceDeparture(s.Name() + " left the chat")
		}
		h.updateGauge()

		s.logger.Info().Str("name", s.Name()).Msg("Session detached")
	})
}

// HandleFrame processes one inbound frame of s. Errors are reported to s only.
func (h *Hub) HandleFrame(ctx context.Context, s *Session, raw []byte) {
	s.heartbeat.Touch()
	h.registry.Touch(s, h.clock.Now())

	text := strings.TrimSpace(string(raw))
	switch text {
	case "":
		return
	case "ping":
		h.out.SendTo(s, Pong{})
		return
	case "pong":
		return
	}

	var frame inboundFrame
	if !strings.HasPrefix(text, "{") || json.Unmarshal([]byte(text), &frame) != nil {
		h.handleChat(ctx, s, text)
		return
	}

	switch frame.Type {
	case TypeRegister:
		h.auth.Register(ctx, s, frame.Username, frame.Password)
		return
	case TypeLogin:
		h.auth.Login(ctx, s, frame.Username, frame.Password)
		return
	case TypePing:
		h.out.SendTo(s, Pong{})
		return
	case TypePong:
		return
	}

	if !s.Authenticated() {
		h.reject(s, errs.NewError(errs.ErrNotLoggedIn))
		return
	}

	switch frame.Type {
	case TypeMessage:
		h.handleChat(ctx, s, frame.Message)
	case TypeJoinRoom:
		h.joinRoom(s, frame.Room)
	case TypeImagePreloadComplete:
		s.logger.Debug().Str("image_id", frame.ImageID).Msg("Client finished preloading image")
	default:
		h.reject(s, errs.NewError(errs.ErrUnknownMessageType, string(frame.Type)))
	}
}

func (h *Hub) handleChat(ctx context.Context, s *Session, text string) {
	if !s.Authenticated() {
		h.reject(s, errs.NewError(errs.ErrNotLoggedIn))
		return
	}

	text = strings.TrimSpace(text)
	switch {
	case text == "":
		h.reject(s, errs.NewError(errs.ErrMessageEmpty))
	case len(text) > MaxContentBytes:
		h.reject(s, errs.NewError(errs.ErrMessageContentTooLong))
	case !s.allow():
		h.reject(s, errs.NewError(errs.ErrRateLimitExceeded))
	default:
		h.dispatcher.Dispatch(ctx, s, text)
	}
}

func (h *Hub) joinRoom(s *Session, room string) {
	room = strings.TrimSpace(room)
	if room == "" {
		h.reject(s, errs.NewError(errs.ErrRoomRequired))
		return
	}

	previous, changed := h.registry.MoveRoom(s, room)
	if !changed {
		return
	}

	name := s.Name()
	s.logger.Info().Str("from", previous).Str("to", room).Msg("Session changed room")

	h.out.SendTo(s, RoomJoined{Message: "You joined room " + room, Room: room})
	h.out.Broadcast(systemNotice(name+" left room "+previous), Audience{Room: previous})
	h.out.Broadcast(systemNotice(name+" joined room "+room), Audience{Room: room, ExcludeID: s.ID})
}

func (h *Hub) reject(s *Session, err *errs.CustomError) {
	s.logger.Debug().Int("code", err.Code).Msg(err.Message)
	h.out.SendTo(s, errorNotice(err))
}

// OnlineNames returns the display names of authenticated sessions.
func (h *Hub) OnlineNames() []string {
	return h.registry.OnlineNames()
}

// Connections returns the number of registered sessions.
func (h *Hub) Connections() int {
	return h.registry.Len()
}

func (h *Hub) updateGauge() {
	metrics.ConnectionsActive.Set(float64(h.registry.Len()))
}

// Shutdown closes every session without departure notices and waits for their
// goroutines until ctx expires.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.logger.Info().Msg("Shutting down hub...")

	h.closing.Store(true)
	h.cancel()

	for _, s := range h.registry.Snapshot(Everyone) {
		h.Detach(s)
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info().Msg("Hub shutdown complete.")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
