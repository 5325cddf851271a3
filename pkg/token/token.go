// Package token issues and verifies the signed bearer tokens carrying
// (username, user_id, expiry). A single HS256 token type; no refresh
// tokens and no revocation list.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSecretLength is returned by New when the secret is too short to
// be a meaningful HMAC key.
var ErrInvalidSecretLength = errors.New("token secret must be at least 32 characters")

// ErrInvalid is returned by Verify for a malformed, unsigned, or expired token.
var ErrInvalid = errors.New("invalid token")

// DefaultExpiry is the validity window for issued tokens.
const DefaultExpiry = time.Hour

// Claims carries the identity bound to a token.
type Claims struct {
	jwt.RegisteredClaims
	UserID uint32 `json:"user_id"`
}

// Service issues and verifies HS256-signed bearer tokens.
type Service struct {
	secret []byte
	expiry time.Duration
}

// New builds a Service. secret must be at least 32 characters; expiry
// defaults to DefaultExpiry when zero.
func New(secret string, expiry time.Duration) (*Service, error) {
	if len(secret) < 32 {
		return nil, ErrInvalidSecretLength
	}
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Service{secret: []byte(secret), expiry: expiry}, nil
}

// Issue signs a claim set for (username, userID) with a 1-hour (by default)
// expiry window.
func (s *Service) Issue(username string, userID uint32) (token string, expiresIn int64, err error) {
	now := time.Now()
	expiresAt := now.Add(s.expiry)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", 0, fmt.Errorf("sign token: %w", err)
	}

	return signed, int64(s.expiry.Seconds()), nil
}

// Verify checks signature and expiry and returns (username, user_id).
// No revocation list exists; this layer never consults anything but the
// signature and the exp claim.
func (s *Service) Verify(tokenString string) (username string, userID uint32, err error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", 0, ErrInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return "", 0, ErrInvalid
	}

	return claims.Subject, claims.UserID, nil
}
