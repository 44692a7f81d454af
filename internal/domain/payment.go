package domain

import (
	"strings"
	"time"
)

// Payment statuses
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

type Payment struct {
	ID              int64     `json:"id"`
	TransactionID   string    `json:"transaction_id"`
	AccountID       *int64    `json:"account_id,omitempty"`
	PaymentMethod   string    `json:"payment_method"`
	Amount          float64   `json:"amount"`
	Fee             float64   `json:"fee"`
	TotalAmount     float64   `json:"total_amount"`
	ExchangeType    string    `json:"exchange_type"`
	SenderAccount   string    `json:"sender_account"`
	ReceiverAccount string    `json:"receiver_account"`
	CustomerName    string    `json:"customer_name"`
	CustomerPhone   string    `json:"customer_phone"`
	CustomerEmail   string    `json:"customer_email,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	Status          string    `json:"status"`
	StripeIntentID  string    `json:"stripe_intent_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type CreatePaymentRequest struct {
	PaymentMethod   string  `json:"paymentMethod"`
	Amount          float64 `json:"amount"`
	Fee             float64 `json:"fee"`
	TotalAmount     float64 `json:"totalAmount"`
	ExchangeType    string  `json:"exchangeType"`
	SenderAccount   string  `json:"senderAccount"`
	ReceiverAccount string  `json:"receiverAccount"`
	CustomerName    string  `json:"customerName"`
	CustomerPhone   string  `json:"customerPhone"`
	CustomerEmail   string  `json:"customerEmail,omitempty"`
	Notes           string  `json:"notes,omitempty"`
}

func (r *CreatePaymentRequest) Normalize() {
	r.PaymentMethod = strings.TrimSpace(r.PaymentMethod)
	r.ExchangeType = strings.TrimSpace(r.ExchangeType)
	r.SenderAccount = strings.TrimSpace(r.SenderAccount)
	r.ReceiverAccount = strings.TrimSpace(r.ReceiverAccount)
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.CustomerPhone = strings.TrimSpace(r.CustomerPhone)
	r.CustomerEmail = strings.ToLower(strings.TrimSpace(r.CustomerEmail))
	r.Notes = strings.TrimSpace(r.Notes)
	if r.TotalAmount == 0 {
		r.TotalAmount = r.Amount + r.Fee
	}
}

func (r *CreatePaymentRequest) Validate() error {
	switch {
	case r.PaymentMethod == "":
		return Invalid("payment method is required")
	case r.Amount <= 0:
		return Invalid("amount must be positive")
	case r.Fee < 0:
		return Invalid("fee cannot be negative")
	case r.ExchangeType == "":
		return Invalid("exchange type is required")
	case r.SenderAccount == "":
		return Invalid("sender account is required")
	case r.ReceiverAccount == "":
		return Invalid("receiver account is required")
	case r.CustomerName == "":
		return Invalid("customer name is required")
	case r.CustomerPhone == "":
		return Invalid("customer phone is required")
	case r.CustomerEmail != "" && !isValidEmail(r.CustomerEmail):
		return Invalid("invalid customer email format")
	}
	return nil
}

// PaymentStats is the admin dashboard aggregate.
type PaymentStats struct {
	Total     int64   `json:"total"`
	Completed int64   `json:"completed"`
	Pending   int64   `json:"pending"`
	Volume    float64 `json:"volume"`
}
