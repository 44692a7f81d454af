package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/qaranexchange/exchange-api/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// NopBus satisfies Publisher when no broker is configured.
type NopBus struct{}

func NewNop() *NopBus { return &NopBus{} }

func (NopBus) Publish(context.Context, string, interface{}) error { return nil }
func (NopBus) Close() error                                       { return nil }

// Subjects
const (
	UserRegistered          = "user.registered"
	UserVerified            = "user.verified"
	PaymentCreated          = "payment.created"
	SubmissionCreated       = "submission.created"
	SubmissionStatusChanged = "submission.status_changed"
)

// Payloads
type UserRegisteredEvent struct {
	AccountID        int64     `json:"account_id"`
	Name             string    `json:"name"`
	VerificationType string    `json:"verification_type"`
	CreatedAt        time.Time `json:"created_at"`
}

type UserVerifiedEvent struct {
	AccountID  int64     `json:"account_id"`
	VerifiedAt time.Time `json:"verified_at"`
}

type PaymentCreatedEvent struct {
	PaymentID     int64     `json:"payment_id"`
	TransactionID string    `json:"transaction_id"`
	Method        string    `json:"method"`
	ExchangeType  string    `json:"exchange_type"`
	TotalAmount   float64   `json:"total_amount"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

type SubmissionCreatedEvent struct {
	SubmissionID  int64     `json:"submission_id"`
	CustomerEmail string    `json:"customer_email"`
	CreatedAt     time.Time `json:"created_at"`
}

type SubmissionStatusChangedEvent struct {
	SubmissionID int64     `json:"submission_id"`
	Status       string    `json:"status"`
	ChangedAt    time.Time `json:"changed_at"`
}
