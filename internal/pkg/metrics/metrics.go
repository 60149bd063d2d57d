// Package metrics declares the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "floritechat_connections_active",
		Help: "Number of websocket sessions currently registered",
	})

	BroadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "floritechat_broadcasts_total",
		Help: "Envelopes fanned out, by envelope type",
	}, []string{"type"})

	BroadcastRecipients = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "floritechat_broadcast_recipients",
		Help:    "Recipients per broadcast",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 500},
	})

	DeliveryFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "floritechat_delivery_failures_total",
		Help: "Per-recipient send attempts that failed",
	})

	SessionsEvictedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "floritechat_sessions_evicted_total",
		Help: "Sessions removed after a failed send",
	})

	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "floritechat_commands_total",
		Help: "Chat commands handled, by command and outcome",
	}, []string{"command", "outcome"})

	StreamChunksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "floritechat_stream_chunks_total",
		Help: "Streamed reply chunks broadcast",
	})

	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "floritechat_logins_total",
		Help: "Login attempts, by outcome",
	}, []string{"outcome"})

	UpstreamBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "floritechat_upstream_breaker_state",
		Help: "Circuit breaker state per upstream (0=closed, 1=half-open, 2=open)",
	}, []string{"upstream"})
)
