package chat

import (
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"floritechat/internal/pkg/metrics"
)

// defaultFanout bounds the number of concurrent sends of one broadcast.
const defaultFanout = 64

// Broadcaster delivers envelopes to registry snapshots. A failed recipient never affects
// the others; failed recipients are evicted together after every attempt has finished.
type Broadcaster struct {
	registry *Registry
	clock    clockwork.Clock
	fanout   int
	logger   zerolog.Logger

	// onEvict is called for every evicted session after it left the registry.
	onEvict func(*Session)
}

func NewBroadcaster(registry *Registry, clock clockwork.Clock, logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		clock:    clock,
		fanout:   defaultFanout,
		logger:   logger.With().Str("component", "Broadcaster").Logger(),
	}
}

// Broadcast sends env to every session selected by a and returns the number of
// successful deliveries. It returns after every recipient has been attempted.
func (b *Broadcaster) Broadcast(env Envelope, a Audience) int {
	recipients := b.registry.Snapshot(a)

	data, err := Encode(env, b.clock.Now())
	if err != nil {
		b.logger.Error().Err(err).Msg("Dropping broadcast")
		return 0
	}

	metrics.BroadcastsTotal.WithLabelValues(string(env.Kind())).Inc()
	metrics.BroadcastRecipients.Observe(float64(len(recipients)))

	failed := make([]bool, len(recipients))

	var g errgroup.Group
	g.SetLimit(b.fanout)
	for i, s := range recipients {
		g.Go(func() error {
			if err := s.send(data); err != nil {
				s.logger.Debug().Err(err).Str("type", string(env.Kind())).Msg("Delivery failed")
				failed[i] = true
			}
			return nil
		})
	}
	_ = g.Wait()

	var dropped []string
	for i, s := range recipients {
		if failed[i] {
			dropped = append(dropped, s.ID)
		}
	}
	if len(dropped) > 0 {
		metrics.DeliveryFailuresTotal.Add(float64(len(dropped)))
		b.evict(dropped)
	}

	return len(recipients) - len(dropped)
}

// SendTo delivers env to s alone. A failed send evicts s.
func (b *Broadcaster) SendTo(s *Session, env Envelope) bool {
	data, err := Encode(env, b.clock.Now())
	if err != nil {
		b.logger.Error().Err(err).Msg("Dropping direct message")
		return false
	}

	if err := s.send(data); err != nil {
		s.logger.Debug().Err(err).Str("type", string(env.Kind())).Msg("Direct delivery failed")
		metrics.DeliveryFailuresTotal.Inc()
		b.evict([]string{s.ID})
		return false
	}
	return true
}

// evict removes the sessions still registered among ids and announces them once.
func (b *Broadcaster) evict(ids []string) {
	removed := b.registry.RemoveBatch(ids)
	if len(removed) == 0 {
		return
	}

	names := make([]string, 0, len(removed))
	for _, s := range removed {
		s.shutdown()
		if b.onEvict != nil {
			b.onEvict(s)
		}
		names = append(names, s.Name())
	}
	metrics.SessionsEvictedTotal.Add(float64(len(removed)))

	b.logger.Info().Strs("names", names).Msg("Evicted unreachable sessions")
	b.announceDeparture(strings.Join(names, ", ") + " lost connection")
}

// announceDeparture sends one system notice and one online list update to everyone.
func (b *Broadcaster) announceDeparture(msg string) {
	b.Broadcast(systemNotice(msg), Everyone)
	b.Broadcast(OnlineUsersUpdate{OnlineUsers: b.registry.OnlineNames()}, Everyone)
}
