package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the JWT claims issued to a chat user after a successful login.
type Payload struct {
	// StandardClaims embeds the expiry, issue time and issuer.
	jwt.StandardClaims `json:"standard_claims"`

	// ID is the persistent account id.
	ID string `json:"id"`

	// Username is the display name the account logged in with.
	Username string `json:"username"`
}
