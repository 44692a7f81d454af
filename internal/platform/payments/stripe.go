package payments

import (
	"fmt"
	"math"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
)

// CardCharger creates a card charge for a payment and returns the provider's
// intent ID and client secret.
type CardCharger interface {
	CreateIntent(amount float64, currency, transactionID string) (intentID, clientSecret string, err error)
}

type StripeCharger struct {
	enabled bool
}

func NewStripeCharger(apiKey string) *StripeCharger {
	if apiKey == "" {
		return &StripeCharger{}
	}
	stripe.Key = apiKey
	return &StripeCharger{enabled: true}
}

func (s *StripeCharger) CreateIntent(amount float64, currency, transactionID string) (string, string, error) {
	if !s.enabled {
		return "", "", fmt.Errorf("stripe not configured")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(math.Round(amount * 100))),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("transaction_id", transactionID)

	intent, err := paymentintent.New(params)
	if err != nil {
		return "", "", fmt.Errorf("create payment intent: %w", err)
	}

	return intent.ID, intent.ClientSecret, nil
}
