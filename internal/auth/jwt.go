package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenData is the identity payload carried inside the token's "data" claim.
type TokenData struct {
	ID    string `json:"id"`
	Phone string `json:"phone"`
}

// Claims represents the JWT claims for a session token. The user identity
// lives in a "data" sub-object rather than the registered subject claim, so
// thin clients can read it without understanding JWT registered claims.
type Claims struct {
	Data TokenData `json:"data"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256-signed session tokens.
type TokenManager struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewTokenManager creates a token manager with the given signing secret,
// issuer/audience identity, and token lifetime.
func NewTokenManager(secret, issuer, audience string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		now:      time.Now,
	}
}

// TTL returns the configured token lifetime.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue creates a signed session token bound to the given user identity.
// Not-before equals issued-at, expiry is issued-at plus the configured TTL.
func (m *TokenManager) Issue(userID, phone string) (string, time.Time, error) {
	now := m.now().UTC()
	expiresAt := now.Add(m.ttl)

	claims := &Claims{
		Data: TokenData{ID: userID, Phone: phone},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}

	return signed, expiresAt, nil
}

// Verify parses the token, checks the HS256 signature, and returns the claims.
// An expired token (valid signature, expiry passed) yields ErrTokenExpired so
// callers can report expiry distinctly from a generic invalid token. The
// expiry claim is compared against the clock explicitly on top of the
// library's own validation.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		// The parser verifies the signature before validating claims, so an
		// expiry error here implies the token is otherwise authentic.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("parse session token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid session token claims")
	}

	if claims.ExpiresAt == nil || !m.now().UTC().Before(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}

	return claims, nil
}
