package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	// SessionExpiration is the lifetime of a session token.
	SessionExpiration = 24 * time.Hour

	// DefaultIssuer is used when no project id is configured.
	DefaultIssuer = "chatroom-server"
)

// ErrInvalidToken is returned for tokens that are malformed, expired, badly
// signed or issued by someone else.
var ErrInvalidToken = errors.New("invalid or expired token")

// GenerateToken signs payload with HS256. sessionID becomes the jti claim.
func GenerateToken(payload *Payload, sessionID, secretKey, issuer string, duration time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(duration)

	payload.StandardClaims = jwt.StandardClaims{
		Id:        sessionID,
		Subject:   payload.ID,
		ExpiresAt: expiresAt.Unix(),
		IssuedAt:  now.Unix(),
		Issuer:    issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)

	signed, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseToken validates tokenString against secretKey and issuer and returns its claims.
func ParseToken(tokenString, secretKey, issuer string) (*Payload, error) {
	claims := &Payload{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid || !claims.VerifyIssuer(issuer, true) || claims.Id == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
