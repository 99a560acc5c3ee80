// FilePath: internal/token/token.go

// Package token mints and verifies the short-lived credentials that bind a
// dashboard browser session to a user identity. The web tier calls Issue on
// behalf of an authenticated session; the gateway calls Verify when a
// dashboard client connects.
package token

import (
	"time"

	"github.com/FajarFE/Waterm-sub001/internal/errors"
	"github.com/golang-jwt/jwt/v5"
)

// Issuer mints and verifies HS256 socket tokens
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Issue returns a signed token for the given user id
func (i *Issuer) Issue(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", errors.NewInternalError("failed to sign token", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the user id the token
// was issued for
func (i *Issuer) Verify(tokenString string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.NewAuthError("unexpected signing method", nil)
		}
		return i.secret, nil
	})
	if err != nil {
		return "", errors.NewAuthError("invalid token", err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", errors.NewAuthError("invalid token claims", nil)
	}
	return claims.Subject, nil
}
