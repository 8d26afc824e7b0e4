// Package auth issues and validates the signed, expiring tokens used for
// login sessions and email verification.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carries the standard registered claims; the subject is the user's login.
// exp has whole-second precision, so the exact expiry travels in exp_ns.
type Claims struct {
	jwt.RegisteredClaims
	ExpiresAtNano int64 `json:"exp_ns,omitempty"`
}

// deadline is the instant the token stops being valid.
func (c *Claims) deadline() time.Time {
	if c.ExpiresAtNano != 0 {
		return time.Unix(0, c.ExpiresAtNano)
	}
	return c.ExpiresAt.Time
}

// ceilSecond rounds t up to the next whole second.
func ceilSecond(t time.Time) time.Time {
	if s := t.Truncate(time.Second); !s.Equal(t) {
		return s.Add(time.Second)
	}
	return t
}

// TokenIssuer signs tokens with a configured HMAC key (HS256). Issuer and
// audience are embedded in every token but deliberately not checked on
// validation: only integrity and freshness are.
type TokenIssuer struct {
	key      []byte
	issuer   string
	audience string
	now      func() time.Time
}

// NewTokenIssuer returns an issuer for the given key. An empty key is rejected.
func NewTokenIssuer(key []byte, issuer, audience string) (*TokenIssuer, error) {
	if len(key) == 0 {
		return nil, errors.New("token signing key is empty")
	}
	return &TokenIssuer{key: key, issuer: issuer, audience: audience, now: time.Now}, nil
}

// WithClock returns a copy of the issuer that reads time from now.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	c := *i
	c.now = now
	return &c
}

// Issue signs a token for subject that expires at now+lifetime. The exp
// claim is rounded up to the second for other JWT consumers.
func (i *TokenIssuer) Issue(subject string, lifetime time.Duration) (string, error) {
	now := i.now()
	expires := now.Add(lifetime)
	claims := Claims{
		ExpiresAtNano: expires.UnixNano(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(ceilSecond(expires)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
}

// Validate reports whether token is well formed, signed with our key and
// not yet expired. It never fails loudly.
func (i *TokenIssuer) Validate(token string) bool {
	_, err := i.parse(token)
	return err == nil
}

// Subject returns the subject of a valid token, common.ErrTokenExpired for an
// expired one and common.ErrInvalidToken for anything else.
func (i *TokenIssuer) Subject(token string) (string, error) {
	claims, err := i.parse(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (i *TokenIssuer) parse(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, common.ErrInvalidToken
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return i.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	// zero clock skew: a token is dead from the instant of its expiry
	if !i.now().Before(claims.deadline()) {
		return nil, common.ErrTokenExpired
	}

	return claims, nil
}
