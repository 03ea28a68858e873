package middleware

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer = "lunarhaze"
	clockSkew   = 5 * time.Second
)

// ErrNoSession is returned for a well-signed token that names no session.
var ErrNoSession = errors.New("token carries no session")

// Claims grant control of exactly one session. Level is informational;
// the room itself is the authority on what it is running.
type Claims struct {
	SessionID string `json:"sid"`
	Level     string `json:"lvl,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 session token valid for ttl.
func GenerateToken(sessionID, level, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		SessionID: sessionID,
		Level:     level,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies signature, issuer and expiry and returns the claims.
func ParseToken(tokenStr, secret string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(*jwt.Token) (interface{}, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	)
	if err != nil {
		return nil, err
	}
	if claims.SessionID == "" {
		return nil, ErrNoSession
	}
	return claims, nil
}
