package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qaranexchange/exchange-api/internal/domain"
)

type SubmissionRepo interface {
	Create(ctx context.Context, s *domain.Submission) (*domain.Submission, error)
	GetByID(ctx context.Context, id int64) (*domain.Submission, error)
	List(ctx context.Context, limit, offset int) ([]domain.Submission, error)
	// UpdateStatus reports whether the row existed.
	UpdateStatus(ctx context.Context, id int64, status string) (bool, error)
}

type SubmissionRepoImpl struct{ pool *pgxpool.Pool }

func NewSubmissionRepo(pool *pgxpool.Pool) *SubmissionRepoImpl {
	return &SubmissionRepoImpl{pool: pool}
}

const submissionColumns = `
id, account_id, customer_name, customer_phone, customer_email,
COALESCE(usdt_wallet, ''), COALESCE(evc_plus_number, ''), COALESCE(xbet_id, ''),
COALESCE(melbet_id, ''), COALESCE(moneygo_wallet, ''), COALESCE(edahab_number, ''),
COALESCE(premier_wallet, ''), COALESCE(notes, ''), status, created_at, updated_at`

func scanSubmission(row pgx.Row) (*domain.Submission, error) {
	var s domain.Submission
	err := row.Scan(
		&s.ID, &s.AccountID, &s.CustomerName, &s.CustomerPhone, &s.CustomerEmail,
		&s.USDTWallet, &s.EVCPlusNumber, &s.XBetID, &s.MelbetID, &s.MoneyGoWallet,
		&s.EdahabNumber, &s.PremierWallet, &s.Notes, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubmissionRepoImpl) Create(ctx context.Context, s *domain.Submission) (*domain.Submission, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	row := r.pool.QueryRow(ctx, `
INSERT INTO submissions (
	account_id, customer_name, customer_phone, customer_email,
	usdt_wallet, evc_plus_number, xbet_id, melbet_id, moneygo_wallet,
	edahab_number, premier_wallet, notes, status
) VALUES (
	$1, $2, $3, $4,
	NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''),
	NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, ''), $13
)
RETURNING `+submissionColumns,
		s.AccountID, s.CustomerName, s.CustomerPhone, s.CustomerEmail,
		s.USDTWallet, s.EVCPlusNumber, s.XBetID, s.MelbetID, s.MoneyGoWallet,
		s.EdahabNumber, s.PremierWallet, s.Notes, s.Status,
	)
	return scanSubmission(row)
}

func (r *SubmissionRepoImpl) GetByID(ctx context.Context, id int64) (*domain.Submission, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	s, err := scanSubmission(r.pool.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *SubmissionRepoImpl) List(ctx context.Context, limit, offset int) ([]domain.Submission, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT `+submissionColumns+` FROM submissions ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var submissions []domain.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, *s)
	}
	return submissions, rows.Err()
}

func (r *SubmissionRepoImpl) UpdateStatus(ctx context.Context, id int64, status string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx,
		`UPDATE submissions SET status = $2, updated_at = now() WHERE id = $1`,
		id, status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
