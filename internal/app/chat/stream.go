package chat

import (
	"strings"
	"sync"

	"floritechat/internal/pkg/metrics"
	"floritechat/internal/pkg/randx"
)

// roomBroadcaster is the part of Broadcaster a stream needs.
type roomBroadcaster interface {
	Broadcast(env Envelope, a Audience) int
}

// StreamSession is one in-flight multi-chunk reply. Its room is fixed when it starts,
// so a speaker changing rooms mid-stream does not split the reply.
type StreamSession struct {
	ID      string
	Room    string
	Speaker string

	out roomBroadcaster

	mu    sync.Mutex
	text  strings.Builder
	ended bool
}

func newStreamSession(out roomBroadcaster, room, speaker string) *StreamSession {
	return &StreamSession{
		ID:      randx.StreamID(),
		Room:    room,
		Speaker: speaker,
		out:     out,
	}
}

// Start announces the stream to its room.
func (s *StreamSession) Start() {
	s.emit(StreamStart, "")
}

// Chunk appends text and broadcasts it. It returns only after every recipient was
// attempted, so chunks reach each client in production order.
func (s *StreamSession) Chunk(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return nil
	}
	s.text.WriteString(text)
	s.broadcastLocked(StreamChunk, text)
	metrics.StreamChunksTotal.Inc()
	return nil
}

// End closes the stream. Later calls to Chunk or End do nothing.
func (s *StreamSession) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return
	}
	s.ended = true
	s.broadcastLocked(StreamEnd, "")
}

// Text returns everything streamed so far.
func (s *StreamSession) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.String()
}

func (s *StreamSession) emit(event StreamEventType, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastLocked(event, text)
}

func (s *StreamSession) broadcastLocked(event StreamEventType, text string) {
	s.out.Broadcast(StreamEvent{
		StreamID:  s.ID,
		EventType: event,
		Message:   text,
		Sender:    s.Speaker,
	}, Audience{Room: s.Room})
}
