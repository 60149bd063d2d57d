/*
Package chat is the realtime core of the server.

This file adapts a websocket connection to the Transport interface. Each connection runs
one read pump, which feeds frames to the Hub in order, and one write pump, which drains
the send queue and keeps the connection alive with pings.
*/
package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for the next frame or Pong from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxFrameSize = 8192

	// capacity of the per-connection send queue.
	sendQueueSize = 256
)

// wsTransport queues outbound frames for the write pump of one websocket connection.
type wsTransport struct {
	conn *websocket.Conn

	// a buffered channel used to queue frames waiting to be written.
	send chan []byte

	// closed once the transport is shut down.
	done      chan struct{}
	closeOnce sync.Once

	logger zerolog.Logger
}

func newWSTransport(conn *websocket.Conn, logger zerolog.Logger) *wsTransport {
	return &wsTransport{
		conn:   conn,
		send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Send enqueues data without blocking. A full queue means the peer stopped reading.
func (t *wsTransport) Send(data []byte) error {
	select {
	case <-t.done:
		return ErrTransportClosed
	default:
	}

	select {
	case t.send <- data:
		return nil
	case <-t.done:
		return ErrTransportClosed
	default:
		t.logger.Warn().Int("queue_len", len(t.send)).Msg("Send queue full")
		return ErrSendQueueFull
	}
}

// Close stops the write pump, which then closes the connection.
func (t *wsTransport) Close() error {
	t.closeOnce.Do(func() { close(t.done) })
	return nil
}

// writePump writes queued frames and periodic pings until the transport closes or a
// write fails.
func (t *wsTransport) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		_ = t.Close()

		// ensure the connection is closed on exit so the read pump unblocks
		if err := t.conn.Close(); err != nil {
			t.logger.Debug().Err(err).Msg("Connection close error in write pump")
		}
	}()

	for {
		select {
		case frame := <-t.send:
			if !t.write(websocket.TextMessage, frame) {
				return
			}

		case <-ticker.C:
			if !t.write(websocket.PingMessage, nil) {
				return
			}

		case <-t.done:
			t.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (t *wsTransport) write(messageType int, data []byte) bool {
	if err := t.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		t.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := t.conn.WriteMessage(messageType, data); err != nil {
		t.logger.Debug().Err(err).Int("message_type", messageType).Msg("Write failed")
		return false
	}
	return true
}

// ServeWS runs an upgraded connection until it closes. It returns immediately; the pumps
// run on their own goroutines.
func (h *Hub) ServeWS(conn *websocket.Conn) {
	if h.closing.Load() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	t := newWSTransport(conn, h.logger)
	s := h.Attach(t)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		t.writePump()
	}()
	go func() {
		defer h.wg.Done()
		h.readPump(s, conn)
	}()
}

// readPump feeds frames to the hub in arrival order and detaches the session when the
// connection ends.
func (h *Hub) readPump(s *Session, conn *websocket.Conn) {
	defer h.Detach(s)

	conn.SetReadLimit(maxFrameSize)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			s.logger.Debug().Err(err).Msg("Failed to set read deadline")
			return
		}

		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Info().Err(err).Msg("Connection closed unexpectedly")
			}
			return
		}

		h.HandleFrame(s.Context(), s, frame)
	}
}
