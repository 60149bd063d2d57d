/*
Package randx generates identifiers for sessions and streamed replies.

Session ids are short so they can appear in guest display names; stream ids are full UUIDs
because every streamed reply must be unique for the process lifetime.
*/
package randx

import (
	"strings"

	"github.com/google/uuid"
)

const (
	// SessionIDLength is the number of hex characters kept from a UUID for a session id.
	SessionIDLength = 8

	// GuestNamePrefix is prepended to the session id to build the default display name.
	GuestNamePrefix = "Guest_"
)

// SessionID returns a short random hex identifier for a connection.
func SessionID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return raw[:SessionIDLength]
}

// StreamID returns a fresh UUID v4 string for one streamed reply.
func StreamID() string {
	return uuid.NewString()
}

// GuestName builds the default display name of an unauthenticated session.
func GuestName(sessionID string) string {
	return GuestNamePrefix + sessionID
}

// IsGuestName reports whether name uses the reserved guest prefix.
func IsGuestName(name string) bool {
	return strings.HasPrefix(strings.ToLower(name), strings.ToLower(GuestNamePrefix))
}
