package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/qaranexchange/exchange-api/internal/domain"
	"github.com/qaranexchange/exchange-api/internal/platform/mailer"
	"github.com/qaranexchange/exchange-api/internal/platform/sms"
	"github.com/qaranexchange/exchange-api/internal/repo/postgres"
	"github.com/qaranexchange/exchange-api/pkg/logger"
)

// IssuedOTP describes one issuance. Code is the plaintext, exposed to
// callers only so dev mode can surface it; it is never stored.
type IssuedOTP struct {
	ID        int64
	Code      string
	Channel   domain.Channel
	ExpiresAt time.Time
	Delivered bool
}

type OTPService struct {
	otps   postgres.OTPRepo
	mailer mailer.Service
	sms    sms.Sender
	ttl    time.Duration
}

func NewOTPService(otps postgres.OTPRepo, m mailer.Service, s sms.Sender, ttl time.Duration) *OTPService {
	return &OTPService{otps: otps, mailer: m, sms: s, ttl: ttl}
}

// Issue appends a fresh code to the account's ledger and dispatches it on
// the account's primary channel. Earlier unconsumed codes stay valid until
// their own expiry. Delivery failure is reported, not fatal: the code is
// already on the ledger and a resend can follow.
func (s *OTPService) Issue(ctx context.Context, account *domain.Account) (*IssuedOTP, error) {
	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash code: %w", err)
	}

	channel := account.PrimaryChannel()
	row, err := s.otps.Create(ctx, &domain.OTPCode{
		AccountID: account.ID,
		CodeHash:  string(hash),
		Channel:   channel,
		ExpiresAt: time.Now().Add(s.ttl),
	})
	if err != nil {
		return nil, fmt.Errorf("store code: %w", err)
	}

	issued := &IssuedOTP{
		ID:        row.ID,
		Code:      code,
		Channel:   channel,
		ExpiresAt: row.ExpiresAt,
		Delivered: true,
	}

	var sendErr error
	switch channel {
	case domain.ChannelEmail:
		sendErr = s.mailer.SendOTPEmail(account.Email, account.Name, code)
	case domain.ChannelSMS:
		sendErr = s.sms.SendOTP(account.Phone, code)
	}
	if sendErr != nil {
		issued.Delivered = false
		logger.ErrorContext(ctx, "OTP delivery failed",
			"account_id", account.ID,
			"channel", string(channel),
			"error", sendErr,
		)
	}

	return issued, nil
}

// Verify matches code against the account's unconsumed ledger rows,
// newest-first, and consumes the first acceptable match. Expired, consumed,
// and wrong codes all fail with the same error.
func (s *OTPService) Verify(ctx context.Context, accountID int64, code string) error {
	candidates, err := s.otps.ListUnconsumed(ctx, accountID)
	if err != nil {
		return fmt.Errorf("load codes: %w", err)
	}

	for i := range candidates {
		c := &candidates[i]
		if !c.Acceptable() {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(c.CodeHash), []byte(code)) != nil {
			continue
		}
		won, err := s.otps.Consume(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("consume code: %w", err)
		}
		if won {
			return nil
		}
		// Lost the race on this row; an older unconsumed match may still win.
	}

	return domain.ErrCodeInvalid
}

// generateCode returns a uniform 6-digit code in [100000, 999999]. No
// leading zeros, so the code survives numeric round-trips.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}
