package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is the single failure reported by Verify. Malformed,
// badly signed and expired tokens are indistinguishable to callers.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims defines the JWT claims structure: subject, issued-at and expiry,
// plus a random token id.
type Claims struct {
	jwt.RegisteredClaims
}

// UserID decodes the subject back into a user identifier.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// TokenCodec issues and verifies HS256 bearer tokens.
type TokenCodec struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewTokenCodec creates a codec for the given secret and token lifetime.
// An empty secret is a startup error.
func NewTokenCodec(secret []byte, lifetime time.Duration) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret must not be empty")
	}
	if lifetime <= 0 {
		return nil, fmt.Errorf("token lifetime must be positive, got %s", lifetime)
	}
	return &TokenCodec{secret: secret, lifetime: lifetime, now: time.Now}, nil
}

// WithClock returns a copy of the codec that reads time from now.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	cp := *c
	cp.now = now
	return &cp
}

// Lifetime returns the configured token lifetime.
func (c *TokenCodec) Lifetime() time.Duration {
	return c.lifetime
}

// Issue creates a signed token whose subject is userID.
func (c *TokenCodec) Issue(userID int64) (string, error) {
	issuedAt := c.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(c.lifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token string. Any failure is ErrInvalidToken.
func (c *TokenCodec) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyUserID verifies a token and returns the user ID in its subject.
func (c *TokenCodec) VerifyUserID(tokenStr string) (int64, error) {
	claims, err := c.Verify(tokenStr)
	if err != nil {
		return 0, err
	}
	return claims.UserID()
}
