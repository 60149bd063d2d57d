package randx

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionIDShape(t *testing.T) {
	hex := regexp.MustCompile(`^[0-9a-f]{8}$`)

	seen := make(map[string]struct{})
	for range 200 {
		id := SessionID()
		assert.Regexp(t, hex, id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 200)
}

func TestStreamIDsAreUnique(t *testing.T) {
	assert.NotEqual(t, StreamID(), StreamID())
}

func TestGuestName(t *testing.T) {
	assert.Equal(t, "Guest_ab12cd34", GuestName("ab12cd34"))
	assert.True(t, IsGuestName("guest_x"))
	assert.False(t, IsGuestName("alice"))
}
