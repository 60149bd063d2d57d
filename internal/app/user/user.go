/*
Package user contains the account model and the credential store behind login and registration.
*/
package user

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAlreadyExists is returned by Register when the username is taken.
	ErrAlreadyExists = errors.New("user: username already exists")

	// ErrInvalidCredentials is returned by Verify for an unknown user or a wrong password.
	ErrInvalidCredentials = errors.New("user: invalid credentials")

	// ErrNotFound is returned by Get for an unknown id.
	ErrNotFound = errors.New("user: not found")
)

// DefaultAvatar is shown for accounts that never picked one.
const DefaultAvatar = "👤"

// User is the persistent identity of a registered account.
type User struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Avatar      string     `json:"avatar"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// Store persists accounts and checks passwords.
type Store interface {
	// Register creates an account and returns its id.
	Register(ctx context.Context, username, password string) (string, error)

	// Verify checks the password and records the login time.
	Verify(ctx context.Context, username, password string) (User, error)

	// Get loads an account by id.
	Get(ctx context.Context, id string) (User, error)
}
