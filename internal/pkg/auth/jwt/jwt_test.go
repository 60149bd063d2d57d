package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(&Payload{ID: "u-1", Username: "alice"}, secret, time.Hour)
	require.NoError(t, err)

	payload, err := ParseToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "u-1", payload.ID)
	assert.Equal(t, "alice", payload.Username)
	assert.Equal(t, "u-1", payload.Subject)
}

func TestParseRejectsWrongSecretAndExpiry(t *testing.T) {
	token, err := GenerateToken(&Payload{ID: "u-1"}, secret, time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(token, "other")
	assert.Error(t, err)

	expired, err := GenerateToken(&Payload{ID: "u-1"}, secret, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired, secret)
	assert.Error(t, err)
}

func TestMiddlewareChain(t *testing.T) {
	var seen *Payload
	h := IdentityExtractorMiddleware(secret)(RequireIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetPayloadFromContext(r)
		w.WriteHeader(http.StatusNoContent)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)

	token, err := GenerateToken(&Payload{ID: "u-9", Username: "bob"}, secret, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "bob", seen.Username)
}
