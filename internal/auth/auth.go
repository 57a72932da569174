// Package auth issues and verifies the signed player identity carried by
// every websocket connection. Identity is a stable player id plus display
// name; the token is what lets a reconnecting socket reclaim its seat.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid_token")
	ErrExpiredToken = errors.New("expired_token")
)

// Claims is the JWT payload binding a connection to a player identity.
type Claims struct {
	PlayerID uuid.UUID `json:"playerId"`
	Name     string    `json:"name"`
	jwt.RegisteredClaims
}

// Service signs and verifies identity tokens with a single HMAC key.
type Service struct {
	secret []byte
	ttl    time.Duration
}

func NewService(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl}
}

// Issue mints a token for the player. Guest identities get a fresh random
// id; returning players present their existing one.
func (s *Service) Issue(playerID uuid.UUID, name string) (string, error) {
	now := time.Now()
	claims := Claims{
		PlayerID: playerID,
		Name:     name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Subject:   playerID.String(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify parses and validates a token, returning its claims.
func (s *Service) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.PlayerID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
