// Package auth issues and verifies the session credentials handed out on sign-in
// and provides the HTTP middleware that authenticates requests with them.
//
// A credential is an HS256-signed JWT carrying the user's email. It is stateless:
// nothing is stored server-side and a token stays valid until it expires.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// SessionTTL is how long an issued credential stays valid.
const SessionTTL = 7 * 24 * time.Hour

const issuerName = "wikisubs"

// ErrInvalidCredential is returned by Verify for any token that can't be trusted:
// bad signature, unexpected algorithm, malformed input, missing email, wrong issuer or expiry.
var ErrInvalidCredential = errors.New("invalid credential")

// Claims represents the JWT claims used by the system.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Issuer signs and verifies credentials with a single secret.
type Issuer struct {
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time
	parser     *jwt.Parser
}

type initOptions struct {
	ttl time.Duration
	now func() time.Time
}

type InitOption func(*initOptions)

// WithClock sets the time source used both when issuing and when checking expiry.
func WithClock(now func() time.Time) InitOption {
	return func(options *initOptions) {
		options.now = now
	}
}

// WithTTL overrides SessionTTL.
func WithTTL(ttl time.Duration) InitOption {
	return func(options *initOptions) {
		options.ttl = ttl
	}
}

func NewIssuer(signingKey []byte, optionsProto ...InitOption) *Issuer {
	options := &initOptions{
		ttl: SessionTTL,
		now: time.Now,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	return &Issuer{
		signingKey: signingKey,
		ttl:        options.ttl,
		now:        options.now,
		// Time-based claims are checked in Verify against the injected clock.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
}

// Issue returns a signed credential for email that expires after the configured TTL.
func (i *Issuer) Issue(email string) (string, error) {
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuerName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Email: email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(i.signingKey)
	if err != nil {
		return "", fmt.Errorf("in internal/auth/auth.go/Issue(): error while `token.SignedString()` calling: %w", err)
	}

	return tokenString, nil
}

// Verify checks tokenString and returns the email it was issued for.
func (i *Issuer) Verify(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := i.parser.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			return i.signingKey, nil
		},
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidCredential
	}

	if !claims.VerifyExpiresAt(i.now(), true) {
		return "", ErrInvalidCredential
	}
	if !claims.VerifyIssuer(issuerName, true) {
		return "", ErrInvalidCredential
	}
	if claims.Email == "" {
		return "", ErrInvalidCredential
	}

	return claims.Email, nil
}
