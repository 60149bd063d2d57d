package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"floritechat/internal/app/user"
	"floritechat/internal/pkg/auth/jwt"
	"floritechat/internal/pkg/errs"
	"floritechat/internal/pkg/metrics"
	"floritechat/internal/pkg/randx"
)

// Account policy for registration.
const (
	MinUsernameRunes = 3
	MaxUsernameRunes = 20
	MinPasswordRunes = 6
	MaxPasswordRunes = 64
)

// AuthGate turns connected sessions into authenticated ones. Sessions never leave the
// authenticated state until they disconnect.
type AuthGate struct {
	registry  *Registry
	out       *Broadcaster
	users     user.Store
	jwtSecret string
	logger    zerolog.Logger
}

func NewAuthGate(registry *Registry, out *Broadcaster, users user.Store, jwtSecret string, logger zerolog.Logger) *AuthGate {
	return &AuthGate{
		registry:  registry,
		out:       out,
		users:     users,
		jwtSecret: jwtSecret,
		logger:    logger.With().Str("component", "AuthGate").Logger(),
	}
}

// Register creates an account. The session stays unauthenticated; the client logs in next.
func (g *AuthGate) Register(ctx context.Context, s *Session, username, password string) {
	username = strings.TrimSpace(username)

	if err := validateAccount(username, password); err != nil {
		g.out.SendTo(s, registerFailure(err))
		return
	}

	id, err := g.users.Register(ctx, username, password)
	if err != nil {
		var customErr *errs.CustomError
		if errors.Is(err, user.ErrAlreadyExists) {
			customErr = errs.NewError(errs.ErrUserAlreadyExists)
		} else {
			s.logger.Error().Err(err).Str("username", username).Msg("Registration failed")
			customErr = errs.NewError(errs.ErrRegisterFailed, reason(err))
		}
		g.out.SendTo(s, registerFailure(customErr))
		return
	}

	s.logger.Info().Str("user_id", id).Str("username", username).Msg("Account registered")
	g.out.SendTo(s, RegisterResponse{Success: true, Message: "Registration successful, please log in."})
}

// Login authenticates s. On success the room hears about it and everyone gets the new
// online list.
func (g *AuthGate) Login(ctx context.Context, s *Session, username, password string) {
	username = strings.TrimSpace(username)

	u, err := g.login(ctx, s, username, password)
	if err != nil {
		var customErr *errs.CustomError
		if !errors.As(err, &customErr) {
			customErr = errs.NewError(errs.ErrUnknown, err)
		}
		metrics.LoginsTotal.WithLabelValues("rejected").Inc()
		g.out.SendTo(s, LoginResponse{Message: customErr.Message, Code: customErr.Code})
		return
	}
	metrics.LoginsTotal.WithLabelValues("ok").Inc()

	token, err := jwt.GenerateToken(&jwt.Payload{ID: u.ID, Username: u.Username}, g.jwtSecret, jwt.UserIdentityExpiration)
	if err != nil {
		// the session is authenticated either way; the token only serves the HTTP API
		s.logger.Error().Err(err).Msg("Failed to sign identity token")
	}

	s.logger.Info().Str("user_id", u.ID).Str("username", u.Username).Msg("Session authenticated")

	g.out.SendTo(s, LoginResponse{
		Success: true,
		Message: "Login successful",
		UserData: &LoginUserData{
			ID:       u.ID,
			Username: u.Username,
			Avatar:   u.Avatar,
		},
		Token: token,
	})
	g.out.Broadcast(systemNotice(u.Username+" joined the chat"), Audience{Room: s.Room(), ExcludeID: s.ID})
	g.out.Broadcast(OnlineUsersUpdate{OnlineUsers: g.registry.OnlineNames()}, Everyone)
}

func (g *AuthGate) login(ctx context.Context, s *Session, username, password string) (user.User, error) {
	if username == "" || password == "" {
		return user.User{}, errs.NewError(errs.ErrMissingCredentials)
	}
	if s.Authenticated() {
		return user.User{}, errs.NewError(errs.ErrAlreadyLoggedIn)
	}

	u, err := g.users.Verify(ctx, username, password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			return user.User{}, errs.NewError(errs.ErrInvalidCredentials)
		}
		return user.User{}, fmt.Errorf("verify %s: %w", username, err)
	}
	if u.Avatar == "" {
		u.Avatar = user.DefaultAvatar
	}

	if err := g.registry.ClaimName(s, u.Username, u.ID, u.Avatar); err != nil {
		return user.User{}, err
	}
	return u, nil
}

func registerFailure(err *errs.CustomError) RegisterResponse {
	return RegisterResponse{Message: err.Message, Code: err.Code}
}

// reason strips the package prefix off store errors so clients see a readable cause.
func reason(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		msg = msg[i+2:]
	}
	return msg
}

// validateAccount applies the registration policy.
func validateAccount(username, password string) *errs.CustomError {
	n := utf8.RuneCountInString(username)
	if n < MinUsernameRunes || n > MaxUsernameRunes ||
		strings.IndexFunc(username, unicode.IsSpace) >= 0 ||
		strings.HasPrefix(username, "@") ||
		randx.IsGuestName(username) {
		return errs.NewError(errs.ErrInvalidUsername)
	}
	if _, ok := lookupCommand(username); ok {
		return errs.NewError(errs.ErrInvalidUsername)
	}

	if n = utf8.RuneCountInString(password); n < MinPasswordRunes || n > MaxPasswordRunes {
		return errs.NewError(errs.ErrInvalidPassword)
	}
	return nil
}
