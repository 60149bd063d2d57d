package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"floritechat/internal/app/chat"
	"floritechat/internal/pkg/limiter"
	"floritechat/internal/pkg/logx"
)

// HandleWebSocket upgrades the request and hands the connection to the hub. Every client
// starts as an unauthenticated guest in the lobby; identity is established over the socket.
func HandleWebSocket(hub *chat.Hub, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error response.
			logx.Warn("Failed to upgrade connection to WebSocket", "error", err.Error(), "ip", limiter.ClientIP(r))
			return
		}

		hub.ServeWS(conn)
	}
}
