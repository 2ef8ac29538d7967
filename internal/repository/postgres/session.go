package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/satrapit/db-conn/internal/domain"
	"github.com/satrapit/db-conn/pkg/database"
	apperrors "github.com/satrapit/db-conn/pkg/errors"
)

// SessionRepository implements repository.SessionRepository using PostgreSQL.
type SessionRepository struct {
	db database.DBTX
}

// NewSessionRepository creates a new PostgreSQL-backed session repository.
func NewSessionRepository(db database.DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create records the hash of a freshly issued token.
func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	query := `
		INSERT INTO sessions (user_id, token_hash, ip_address, user_agent, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		s.UserID,
		s.TokenHash,
		s.IPAddress,
		s.UserAgent,
		s.ExpiresAt,
		s.CreatedAt,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// GetActive returns the session matching the token hash for the given user,
// provided it is neither revoked nor expired. The liveness predicates live in
// the query so the revocation check is a single round trip.
func (r *SessionRepository) GetActive(ctx context.Context, userID, tokenHash string, now time.Time) (*domain.Session, error) {
	query := `
		SELECT id, user_id, token_hash, ip_address, user_agent, expires_at, created_at, revoked_at
		FROM sessions
		WHERE user_id = $1 AND token_hash = $2 AND revoked_at IS NULL AND expires_at > $3`

	var s domain.Session
	err := r.db.QueryRow(ctx, query, userID, tokenHash, now).Scan(
		&s.ID,
		&s.UserID,
		&s.TokenHash,
		&s.IPAddress,
		&s.UserAgent,
		&s.ExpiresAt,
		&s.CreatedAt,
		&s.RevokedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	return &s, nil
}

// ListActiveByUser returns all live sessions for the user, newest first.
func (r *SessionRepository) ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]domain.Session, error) {
	query := `
		SELECT id, user_id, token_hash, ip_address, user_agent, expires_at, created_at, revoked_at
		FROM sessions
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.TokenHash,
			&s.IPAddress,
			&s.UserAgent,
			&s.ExpiresAt,
			&s.CreatedAt,
			&s.RevokedAt,
		); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}

	if sessions == nil {
		sessions = []domain.Session{}
	}

	return sessions, nil
}

// Revoke marks the session with the given token hash as revoked.
func (r *SessionRepository) Revoke(ctx context.Context, tokenHash string, revokedAt time.Time) error {
	query := `UPDATE sessions SET revoked_at = $1 WHERE token_hash = $2 AND revoked_at IS NULL`

	ct, err := r.db.Exec(ctx, query, revokedAt, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// RevokeAllByUser revokes every live session belonging to the user.
func (r *SessionRepository) RevokeAllByUser(ctx context.Context, userID string, revokedAt time.Time) error {
	query := `UPDATE sessions SET revoked_at = $1 WHERE user_id = $2 AND revoked_at IS NULL`

	_, err := r.db.Exec(ctx, query, revokedAt, userID)
	if err != nil {
		return fmt.Errorf("revoke sessions by user: %w", err)
	}

	return nil
}
