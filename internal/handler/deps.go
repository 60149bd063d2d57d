package handler

import (
	"floritechat/internal/app/chat"
	"floritechat/internal/app/user"
	"floritechat/internal/configs"
	"floritechat/internal/pkg/limiter"
)

type AppDeps struct {
	Hub    *chat.Hub
	Config *configs.AppConfig
	Users  user.Store

	// WSLimiter throttles websocket upgrades per IP. Router creates one when nil.
	WSLimiter *limiter.IPRateLimiter
}
