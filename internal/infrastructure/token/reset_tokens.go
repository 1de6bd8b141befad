// Package token signs and verifies the stateless password-reset capability.
//
// A token is an HS256 JWT whose subject is the user id. Nothing is stored on
// the server: a token is valid while its signature verifies under the current
// secret and its exp claim lies in the future.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quillhub/blog/internal/core/domain"
)

const purposePasswordReset = "password_reset"

type resetClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// ResetTokens implements ports.ResetTokenCodec.
type ResetTokens struct {
	secret []byte
	now    func() time.Time
}

type Option func(*ResetTokens)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *ResetTokens) { t.now = now }
}

func NewResetTokens(secret string, opts ...Option) (*ResetTokens, error) {
	if secret == "" {
		return nil, errors.New("token: empty signing secret")
	}
	t := &ResetTokens{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *ResetTokens) Issue(userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("token: empty user id")
	}
	if ttl <= 0 {
		return "", errors.New("token: non-positive ttl")
	}

	now := t.now()
	claims := resetClaims{
		Purpose: purposePasswordReset,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse collapses every failure into domain.ErrInvalidToken.
func (t *ResetTokens) Parse(raw string) (string, error) {
	claims := &resetClaims{}
	tkn, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !tkn.Valid {
		return "", domain.ErrInvalidToken
	}
	if claims.Purpose != purposePasswordReset || claims.Subject == "" {
		return "", domain.ErrInvalidToken
	}
	return claims.Subject, nil
}
