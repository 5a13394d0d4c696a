package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the claims of a session token.
// The session id travels in StandardClaims.Id (jti) so a token can be revoked
// by deleting that id from the session allow-list.
type Payload struct {
	jwt.StandardClaims

	// ID is the identity id the session belongs to.
	ID string `json:"id"`

	// Email is the login email of the identity, empty for federated accounts without one.
	Email string `json:"email,omitempty"`

	// DisplayName is the profile display name at the time the session was issued.
	DisplayName string `json:"name"`

	// Avatar is the public avatar URL, empty when the profile has none.
	Avatar string `json:"avatar,omitempty"`
}

// SessionID returns the jti claim.
func (p *Payload) SessionID() string {
	return p.Id
}
