package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/qaranexchange/exchange-api/internal/domain"
	"github.com/qaranexchange/exchange-api/internal/platform/payments"
	"github.com/qaranexchange/exchange-api/internal/repo/postgres"
	"github.com/qaranexchange/exchange-api/pkg/events"
	"github.com/qaranexchange/exchange-api/pkg/logger"
)

type PaymentService struct {
	payments postgres.PaymentRepo
	card     payments.CardCharger
	currency string
	bus      events.Publisher
}

func NewPaymentService(repo postgres.PaymentRepo, card payments.CardCharger, currency string, bus events.Publisher) *PaymentService {
	return &PaymentService{payments: repo, card: card, currency: currency, bus: bus}
}

// Create records a payment. Card payments open a provider intent and start
// pending; every other method is a manual transfer recorded as completed.
// accountID is nil for anonymous payments.
func (s *PaymentService) Create(ctx context.Context, req domain.CreatePaymentRequest, accountID *int64) (*domain.Payment, string, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, "", err
	}

	p := &domain.Payment{
		TransactionID:   newTransactionID(),
		AccountID:       accountID,
		PaymentMethod:   req.PaymentMethod,
		Amount:          req.Amount,
		Fee:             req.Fee,
		TotalAmount:     req.TotalAmount,
		ExchangeType:    req.ExchangeType,
		SenderAccount:   req.SenderAccount,
		ReceiverAccount: req.ReceiverAccount,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerEmail:   req.CustomerEmail,
		Notes:           req.Notes,
		Status:          domain.PaymentCompleted,
	}

	var clientSecret string
	if strings.EqualFold(req.PaymentMethod, "card") {
		intentID, secret, err := s.card.CreateIntent(p.TotalAmount, s.currency, p.TransactionID)
		if err != nil {
			return nil, "", fmt.Errorf("create card charge: %w", err)
		}
		p.StripeIntentID = intentID
		p.Status = domain.PaymentPending
		clientSecret = secret
	}

	created, err := s.payments.Create(ctx, p)
	if err != nil {
		return nil, "", err
	}

	if err := s.bus.Publish(ctx, events.PaymentCreated, events.PaymentCreatedEvent{
		PaymentID:     created.ID,
		TransactionID: created.TransactionID,
		Method:        created.PaymentMethod,
		ExchangeType:  created.ExchangeType,
		TotalAmount:   created.TotalAmount,
		Status:        created.Status,
		CreatedAt:     created.CreatedAt,
	}); err != nil {
		logger.WarnContext(ctx, "failed to publish payment event", "error", err)
	}

	return created, clientSecret, nil
}

func (s *PaymentService) Get(ctx context.Context, id int64) (*domain.Payment, error) {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (s *PaymentService) List(ctx context.Context, limit, offset int) ([]domain.Payment, error) {
	return s.payments.List(ctx, limit, offset)
}

// History returns the caller's own payments, newest first.
func (s *PaymentService) History(ctx context.Context, accountID int64) ([]domain.Payment, error) {
	return s.payments.ListByAccount(ctx, accountID)
}

func (s *PaymentService) Stats(ctx context.Context) (*domain.PaymentStats, error) {
	return s.payments.Stats(ctx)
}

// newTransactionID builds a human-quotable reference: TXN + unix seconds +
// 6 random digits.
func newTransactionID() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		n = big.NewInt(time.Now().UnixNano() % 1000000)
	}
	return fmt.Sprintf("TXN%d%06d", time.Now().Unix(), n.Int64())
}
