package handler

import (
	"errors"
	"net/http"

	"floritechat/internal/app/user"
	"floritechat/internal/pkg/auth/jwt"
	"floritechat/internal/pkg/errs"
	"floritechat/internal/pkg/logx"
	"floritechat/internal/pkg/resp"
)

type OnlineResponse struct {
	OnlineUsers []string `json:"online_users"`
	Connections int      `json:"connections"`
}

// HandleOnline reports who is logged in right now.
func HandleOnline(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, OnlineResponse{
			OnlineUsers: deps.Hub.OnlineNames(),
			Connections: deps.Hub.Connections(),
		})
	}
}

// HandleMe returns the account behind the bearer token handed out in login_response.
func HandleMe(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		u, err := deps.Users.Get(r.Context(), identity.ID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
				return
			}
			logx.Error(err, "Failed to load user profile", "user_id", identity.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, u)
	}
}
