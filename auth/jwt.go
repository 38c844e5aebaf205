// Package auth self-issues session bearer tokens. Unlike the upstream
// Neon Auth integration this server descends from, Cabo rooms and
// sessions are created directly by the name service, not by an external
// identity provider — so the server signs its own tokens instead of
// validating someone else's JWKS.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"cabo-server/apperrors"
)

const issuer = "cabo-server"

type claims struct {
	jwt.RegisteredClaims
	Nickname string `json:"nickname"`
}

// Issuer signs and validates session tokens with a single HS256 secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 180 * 24 * time.Hour
	}
	return &Issuer{secret: secret, ttl: ttl}
}

// Issue mints a token binding userID (the namesvc session's UUID) to
// nickname, valid for the issuer's configured TTL.
func (i *Issuer) Issue(userID uuid.UUID, nickname string) (string, time.Time, error) {
	expiresAt := time.Now().Add(i.ttl)
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Nickname: nickname,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate parses and verifies tokenString, returning the bound session
// id and nickname.
func (i *Issuer) Validate(tokenString string) (uuid.UUID, string, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(issuer))
	if err != nil {
		return uuid.UUID{}, "", fmt.Errorf("auth: validate token: %w: %w", apperrors.ErrInvalidToken, err)
	}
	if !token.Valid {
		return uuid.UUID{}, "", apperrors.ErrInvalidToken
	}
	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.UUID{}, "", fmt.Errorf("auth: subject is not a session id: %w: %w", apperrors.ErrInvalidToken, err)
	}
	return userID, c.Nickname, nil
}
