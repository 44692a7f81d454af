package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/qaranexchange/exchange-api/internal/domain"
	"github.com/qaranexchange/exchange-api/internal/service"
	"github.com/qaranexchange/exchange-api/pkg/events"
)

func newPaymentFixture() (*service.PaymentService, *mockPaymentRepo, *mockCardCharger, *mockBus) {
	repo := newMockPaymentRepo()
	card := &mockCardCharger{}
	bus := &mockBus{}
	return service.NewPaymentService(repo, card, "usd", bus), repo, card, bus
}

func validPaymentRequest() domain.CreatePaymentRequest {
	return domain.CreatePaymentRequest{
		PaymentMethod:   "evc_plus",
		Amount:          100,
		Fee:             2.5,
		ExchangeType:    "usd_to_usdt",
		SenderAccount:   "+252611234567",
		ReceiverAccount: "TRx1234abcd",
		CustomerName:    "Amina Hassan",
		CustomerPhone:   "+252611234567",
	}
}

func TestCreatePayment_ManualTransferCompletes(t *testing.T) {
	svc, _, card, bus := newPaymentFixture()

	payment, clientSecret, err := svc.Create(context.Background(), validPaymentRequest(), nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if payment.Status != domain.PaymentCompleted {
		t.Fatalf("Manual payments record as completed, got %s", payment.Status)
	}
	if !strings.HasPrefix(payment.TransactionID, "TXN") {
		t.Fatalf("Transaction ID %q missing TXN prefix", payment.TransactionID)
	}
	if payment.TotalAmount != 102.5 {
		t.Fatalf("Expected total 102.5, got %v", payment.TotalAmount)
	}
	if clientSecret != "" || card.intents != 0 {
		t.Fatal("Manual payments must not touch the card provider")
	}
	if !bus.published(events.PaymentCreated) {
		t.Fatal("Expected payment event")
	}
}

func TestCreatePayment_CardOpensIntent(t *testing.T) {
	svc, _, card, _ := newPaymentFixture()

	req := validPaymentRequest()
	req.PaymentMethod = "card"

	payment, clientSecret, err := svc.Create(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if payment.Status != domain.PaymentPending {
		t.Fatalf("Card payments start pending, got %s", payment.Status)
	}
	if payment.StripeIntentID == "" || clientSecret == "" {
		t.Fatal("Expected intent ID and client secret")
	}
	if card.intents != 1 {
		t.Fatalf("Expected 1 intent, got %d", card.intents)
	}
}

func TestCreatePayment_CardProviderFailure(t *testing.T) {
	svc, repo, card, _ := newPaymentFixture()
	card.err = errors.New("provider down")

	req := validPaymentRequest()
	req.PaymentMethod = "card"

	if _, _, err := svc.Create(context.Background(), req, nil); err == nil {
		t.Fatal("Expected error when the provider fails")
	}
	if len(repo.payments) != 0 {
		t.Fatal("No payment row should exist after a failed charge")
	}
}

func TestCreatePayment_AttachesAccount(t *testing.T) {
	svc, _, _, _ := newPaymentFixture()

	accountID := int64(7)
	payment, _, err := svc.Create(context.Background(), validPaymentRequest(), &accountID)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if payment.AccountID == nil || *payment.AccountID != 7 {
		t.Fatalf("Expected account 7, got %v", payment.AccountID)
	}

	history, err := svc.History(context.Background(), 7)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("Expected 1 payment in history, got %d", len(history))
	}
}

func TestCreatePayment_Validation(t *testing.T) {
	svc, _, _, _ := newPaymentFixture()
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*domain.CreatePaymentRequest)
	}{
		{"missing method", func(r *domain.CreatePaymentRequest) { r.PaymentMethod = "" }},
		{"zero amount", func(r *domain.CreatePaymentRequest) { r.Amount = 0 }},
		{"negative fee", func(r *domain.CreatePaymentRequest) { r.Fee = -1 }},
		{"missing exchange type", func(r *domain.CreatePaymentRequest) { r.ExchangeType = "" }},
		{"missing sender", func(r *domain.CreatePaymentRequest) { r.SenderAccount = "" }},
		{"missing customer name", func(r *domain.CreatePaymentRequest) { r.CustomerName = "" }},
		{"bad email", func(r *domain.CreatePaymentRequest) { r.CustomerEmail = "nope" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validPaymentRequest()
			tt.mutate(&req)
			if _, _, err := svc.Create(ctx, req, nil); !domain.IsValidation(err) {
				t.Fatalf("Expected validation error, got %v", err)
			}
		})
	}
}

func TestGetPayment_NotFound(t *testing.T) {
	svc, _, _, _ := newPaymentFixture()

	if _, err := svc.Get(context.Background(), 42); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestPaymentStats(t *testing.T) {
	svc, _, _, _ := newPaymentFixture()
	ctx := context.Background()

	if _, _, err := svc.Create(ctx, validPaymentRequest(), nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	cardReq := validPaymentRequest()
	cardReq.PaymentMethod = "card"
	if _, _, err := svc.Create(ctx, cardReq, nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 2 || stats.Completed != 1 || stats.Pending != 1 {
		t.Fatalf("Unexpected stats: %+v", stats)
	}
	if stats.Volume != 102.5 {
		t.Fatalf("Volume counts completed only, got %v", stats.Volume)
	}
}
