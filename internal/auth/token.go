// Package auth issues and verifies bearer tokens and decides, once per
// request, whether the caller may proceed.
package auth

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rainbowtourguides/backend/internal/domain"
)

// ErrInvalidToken is returned for a token that is malformed, expired, signed
// with another key, or carries unusable claims.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the token payload. The subject is the user id.
type Claims struct {
	Role domain.Role `json:"role"`
	jwtlib.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer constructs an Issuer for the given secret and token lifetime.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for the actor.
func (i *Issuer) Issue(a domain.Actor) (string, error) {
	now := i.now()
	claims := Claims{
		Role: a.Role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   a.UserID.String(),
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("auth.Issuer.Issue: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns the actor it was issued for.
func (i *Issuer) Verify(token string) (domain.Actor, error) {
	var claims Claims
	_, err := jwtlib.ParseWithClaims(token, &claims, func(t *jwtlib.Token) (any, error) {
		return i.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(i.now),
	)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	if !claims.Role.Valid() {
		return domain.Actor{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	return domain.Actor{UserID: id, Role: claims.Role}, nil
}
