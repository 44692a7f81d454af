package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qaranexchange/exchange-api/internal/domain"
)

type PaymentRepo interface {
	Create(ctx context.Context, p *domain.Payment) (*domain.Payment, error)
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)
	List(ctx context.Context, limit, offset int) ([]domain.Payment, error)
	ListByAccount(ctx context.Context, accountID int64) ([]domain.Payment, error)
	Stats(ctx context.Context) (*domain.PaymentStats, error)
}

type PaymentRepoImpl struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepoImpl { return &PaymentRepoImpl{pool: pool} }

const paymentColumns = `
id, transaction_id, account_id, payment_method, amount, fee, total_amount,
exchange_type, sender_account, receiver_account, customer_name, customer_phone,
COALESCE(customer_email, ''), COALESCE(notes, ''), status,
COALESCE(stripe_intent_id, ''), created_at`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID, &p.TransactionID, &p.AccountID, &p.PaymentMethod, &p.Amount, &p.Fee,
		&p.TotalAmount, &p.ExchangeType, &p.SenderAccount, &p.ReceiverAccount,
		&p.CustomerName, &p.CustomerPhone, &p.CustomerEmail, &p.Notes, &p.Status,
		&p.StripeIntentID, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepoImpl) Create(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	row := r.pool.QueryRow(ctx, `
INSERT INTO payments (
	transaction_id, account_id, payment_method, amount, fee, total_amount,
	exchange_type, sender_account, receiver_account, customer_name,
	customer_phone, customer_email, notes, status, stripe_intent_id
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
	NULLIF($12, ''), NULLIF($13, ''), $14, NULLIF($15, '')
)
RETURNING `+paymentColumns,
		p.TransactionID, p.AccountID, p.PaymentMethod, p.Amount, p.Fee, p.TotalAmount,
		p.ExchangeType, p.SenderAccount, p.ReceiverAccount, p.CustomerName,
		p.CustomerPhone, p.CustomerEmail, p.Notes, p.Status, p.StripeIntentID,
	)
	return scanPayment(row)
}

func (r *PaymentRepoImpl) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanPayment(r.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *PaymentRepoImpl) List(ctx context.Context, limit, offset int) ([]domain.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPayments(rows)
}

func (r *PaymentRepoImpl) ListByAccount(ctx context.Context, accountID int64) ([]domain.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE account_id = $1 ORDER BY created_at DESC`,
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPayments(rows)
}

func collectPayments(rows pgx.Rows) ([]domain.Payment, error) {
	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

// Stats runs the dashboard aggregate as one query instead of a count per
// status.
func (r *PaymentRepoImpl) Stats(ctx context.Context) (*domain.PaymentStats, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var s domain.PaymentStats
	err := r.pool.QueryRow(ctx, `
SELECT
	count(*),
	count(*) FILTER (WHERE status = 'completed'),
	count(*) FILTER (WHERE status = 'pending'),
	COALESCE(sum(total_amount) FILTER (WHERE status = 'completed'), 0)
FROM payments`).Scan(&s.Total, &s.Completed, &s.Pending, &s.Volume)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
