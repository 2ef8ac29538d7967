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

// OTPRepository implements repository.OTPRepository using PostgreSQL.
// Rows are never deleted; superseded and consumed codes remain as an audit
// trail and are excluded by query predicates instead.
type OTPRepository struct {
	db database.DBTX
}

// NewOTPRepository creates a new PostgreSQL-backed one-time code repository.
func NewOTPRepository(db database.DBTX) *OTPRepository {
	return &OTPRepository{db: db}
}

// Create inserts a newly issued code hash for the phone number.
func (r *OTPRepository) Create(ctx context.Context, phone, codeHash string, createdAt time.Time) (*domain.OneTimeCode, error) {
	query := `
		INSERT INTO otps (phone, code_hash, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`

	code := &domain.OneTimeCode{
		Phone:     phone,
		CodeHash:  codeHash,
		CreatedAt: createdAt,
	}

	if err := r.db.QueryRow(ctx, query, phone, codeHash, createdAt).Scan(&code.ID); err != nil {
		return nil, fmt.Errorf("insert one-time code: %w", err)
	}

	return code, nil
}

// LatestByPhone returns the most recently issued code for the phone number,
// consumed or not. Verification must see a consumed latest code and reject it,
// so this query does not filter on consumed_at.
func (r *OTPRepository) LatestByPhone(ctx context.Context, phone string) (*domain.OneTimeCode, error) {
	query := `
		SELECT id, phone, code_hash, created_at, consumed_at
		FROM otps
		WHERE phone = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	var c domain.OneTimeCode
	err := r.db.QueryRow(ctx, query, phone).Scan(
		&c.ID,
		&c.Phone,
		&c.CodeHash,
		&c.CreatedAt,
		&c.ConsumedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan one-time code: %w", err)
	}

	return &c, nil
}

// Consume marks the code consumed with compare-and-swap semantics: the update
// only applies while consumed_at is still NULL. When another request has
// already spent the code, zero rows are affected and ErrUnauthorized is
// returned so the racing loser fails.
func (r *OTPRepository) Consume(ctx context.Context, id int64, consumedAt time.Time) error {
	query := `UPDATE otps SET consumed_at = $1 WHERE id = $2 AND consumed_at IS NULL`

	ct, err := r.db.Exec(ctx, query, consumedAt, id)
	if err != nil {
		return fmt.Errorf("consume one-time code: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.ErrUnauthorized
	}

	return nil
}
