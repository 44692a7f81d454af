package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qaranexchange/exchange-api/internal/domain"
)

// OTPRepo is the OTP ledger. Rows are append-only except for the one-way
// consumed transition.
type OTPRepo interface {
	Create(ctx context.Context, code *domain.OTPCode) (*domain.OTPCode, error)
	// ListUnconsumed returns the account's unconsumed codes newest-first.
	// Expiry is checked by the caller so superseded-but-valid codes stay
	// visible.
	ListUnconsumed(ctx context.Context, accountID int64) ([]domain.OTPCode, error)
	// Consume flips the consumed flag if and only if it is still unset, and
	// reports whether this caller won the transition.
	Consume(ctx context.Context, id int64) (bool, error)
	DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

type OTPRepoImpl struct{ pool *pgxpool.Pool }

func NewOTPRepo(pool *pgxpool.Pool) *OTPRepoImpl { return &OTPRepoImpl{pool: pool} }

func (r *OTPRepoImpl) Create(ctx context.Context, code *domain.OTPCode) (*domain.OTPCode, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var out domain.OTPCode
	err := r.pool.QueryRow(ctx, `
INSERT INTO otp_codes (account_id, code_hash, channel, expires_at)
VALUES ($1, $2, $3, $4)
RETURNING id, account_id, code_hash, channel, expires_at, consumed_at, created_at`,
		code.AccountID, code.CodeHash, string(code.Channel), code.ExpiresAt,
	).Scan(&out.ID, &out.AccountID, &out.CodeHash, &out.Channel, &out.ExpiresAt, &out.ConsumedAt, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *OTPRepoImpl) ListUnconsumed(ctx context.Context, accountID int64) ([]domain.OTPCode, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
SELECT id, account_id, code_hash, channel, expires_at, consumed_at, created_at
FROM otp_codes
WHERE account_id = $1 AND consumed_at IS NULL
ORDER BY created_at DESC`,
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []domain.OTPCode
	for rows.Next() {
		var c domain.OTPCode
		if err := rows.Scan(&c.ID, &c.AccountID, &c.CodeHash, &c.Channel,
			&c.ExpiresAt, &c.ConsumedAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

func (r *OTPRepoImpl) Consume(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	// Compare-and-set on the consumed flag: racing verifies for the same row
	// resolve to exactly one winner.
	var consumedID int64
	err := r.pool.QueryRow(ctx, `
UPDATE otp_codes
SET consumed_at = now()
WHERE id = $1
  AND consumed_at IS NULL
  AND expires_at > now()
RETURNING id`, id).Scan(&consumedID)

	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *OTPRepoImpl) DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx,
		`DELETE FROM otp_codes WHERE expires_at < $1`,
		time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
