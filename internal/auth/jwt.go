// Package auth provides session credentials, password hashing, API keys, and
// the HTTP middleware that ties them to requests.
//
// SESSION CREDENTIALS:
// A session is a signed JWT whose "sub" claim carries the internal user ID.
// The server verifies the signature with a process-wide secret — no session
// table, no DB lookup. Rotating the secret invalidates every outstanding
// token, which is the accepted trade-off of the stateless design.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims → {"sub":"userID","exp":1234567890}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "authhub"

// TokenService signs and validates session credentials.
//
// The same HMAC secret is used for both operations. It must be at least 32
// bytes of random data in production: JWT_SECRET=$(openssl rand -hex 32).
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims embeds jwt.RegisteredClaims; the user ID rides in the standard
// "sub" (Subject) claim.
type claims struct {
	jwt.RegisteredClaims
}

// Issue creates a signed token for userID with the given lifetime.
//
// Two special lifetimes come from the admin-configurable duration grammar:
//   - NoExpiry (the parse of "-1") → the token carries no exp claim at all
//   - 0 → exp is set to the issue instant, so the token is already expired
//
// The zero case is unusual but deliberate: an admin setting the lifetime to
// "0" effectively disables new sessions without touching the signing key.
func (s *TokenService) Issue(userID string, ttl time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   tokenIssuer,
		},
	}
	if ttl != NoExpiry {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a token string and returns the user ID from
// its Subject claim.
//
// Checks performed by the jwt library:
//   - signature verifies (token wasn't tampered with)
//   - exp, when present, is in the future (NoExpiry tokens omit it, so
//     WithExpirationRequired is deliberately NOT used here)
//   - issuer matches (rejects tokens minted by other apps sharing a secret)
//   - algorithm is HS256 (prevents algorithm-confusion attacks)
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return c.Subject, nil
}
