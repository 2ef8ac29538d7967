package domain

import (
	"time"
)

// User represents an account identified by a mobile phone number.
// Accounts are provisioned lazily on first successful code verification,
// so every field except the phone number may be empty.
type User struct {
	ID        string    `json:"id"`
	Phone     string    `json:"phone"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email,omitempty"`
	BirthDate string    `json:"birth_date,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OneTimeCode is a single issued verification code. The plaintext code is
// never stored; only its bcrypt hash. A code is consumable exactly once:
// ConsumedAt flips from nil at most one time.
type OneTimeCode struct {
	ID         int64      `json:"id"`
	Phone      string     `json:"phone"`
	CodeHash   string     `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}

// Consumed reports whether the code has already been spent.
func (c *OneTimeCode) Consumed() bool {
	return c.ConsumedAt != nil
}

// Session is the server-side record of an issued bearer token. The raw token
// is never persisted; TokenHash is the SHA-256 hex digest of the signed token
// string and exists to support revocation checks and session enumeration.
type Session struct {
	ID        int64      `json:"id"`
	UserID    string     `json:"user_id"`
	TokenHash string     `json:"-"`
	IPAddress string     `json:"ip_address,omitempty"`
	UserAgent string     `json:"user_agent,omitempty"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// Active reports whether the session is usable at the given instant.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
