package repository

import (
	"context"
	"time"

	"github.com/satrapit/db-conn/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByPhone retrieves a user by their phone number.
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)

	// Update modifies an existing user's profile fields.
	Update(ctx context.Context, user *domain.User) error
}

// OTPRepository defines the interface for one-time code persistence operations.
type OTPRepository interface {
	// Create inserts a newly issued code hash for the phone number.
	Create(ctx context.Context, phone, codeHash string, createdAt time.Time) (*domain.OneTimeCode, error)

	// LatestByPhone returns the most recently issued code for the phone
	// number, consumed or not. Returns ErrNotFound when none exists.
	LatestByPhone(ctx context.Context, phone string) (*domain.OneTimeCode, error)

	// Consume marks the code consumed if and only if it is still unconsumed.
	// Returns ErrUnauthorized when the code was already spent, so two racing
	// verifications cannot both succeed.
	Consume(ctx context.Context, id int64, consumedAt time.Time) error
}

// SessionRepository defines the interface for session token persistence operations.
type SessionRepository interface {
	// Create records the hash of a freshly issued token together with the
	// requesting client's address and user agent.
	Create(ctx context.Context, session *domain.Session) error

	// GetActive returns the session matching the token hash for the given
	// user, provided it is neither revoked nor expired at the given instant.
	// Returns ErrNotFound otherwise.
	GetActive(ctx context.Context, userID, tokenHash string, now time.Time) (*domain.Session, error)

	// ListActiveByUser returns all live sessions for the user, newest first.
	ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]domain.Session, error)

	// Revoke marks the session with the given token hash as revoked.
	Revoke(ctx context.Context, tokenHash string, revokedAt time.Time) error

	// RevokeAllByUser revokes every live session belonging to the user.
	RevokeAllByUser(ctx context.Context, userID string, revokedAt time.Time) error
}
