package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"

	"github.com/qaranexchange/exchange-api/internal/domain"
	"github.com/qaranexchange/exchange-api/internal/repo/postgres"
	"github.com/qaranexchange/exchange-api/pkg/events"
	"github.com/qaranexchange/exchange-api/pkg/logger"
)

type AuthService struct {
	accounts postgres.AccountRepo
	otp      *OTPService
	bus      events.Publisher
}

func NewAuthService(accounts postgres.AccountRepo, otp *OTPService, bus events.Publisher) *AuthService {
	return &AuthService{accounts: accounts, otp: otp, bus: bus}
}

// Register creates an unverified account and dispatches its first OTP.
// Password is optional; accounts without one are passwordless and
// authenticate by OTP alone.
func (s *AuthService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.Account, *IssuedOTP, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	// Early exit on a known duplicate; the DB unique constraints remain the
	// authority under races.
	if req.Email != "" {
		existing, err := s.accounts.FindByEmail(ctx, req.Email)
		if err != nil {
			return nil, nil, fmt.Errorf("check email: %w", err)
		}
		if existing != nil {
			return nil, nil, domain.ErrDuplicateChannel
		}
	}
	if req.Phone != "" {
		existing, err := s.accounts.FindByPhone(ctx, req.Phone)
		if err != nil {
			return nil, nil, fmt.Errorf("check phone: %w", err)
		}
		if existing != nil {
			return nil, nil, domain.ErrDuplicateChannel
		}
	}

	var passwordHash string
	if req.Password != "" {
		hash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
		if err != nil {
			return nil, nil, fmt.Errorf("hash password: %w", err)
		}
		passwordHash = hash
	}

	account, err := s.accounts.Create(ctx, &domain.Account{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: passwordHash,
	})
	if err != nil {
		return nil, nil, err
	}

	issued, err := s.otp.Issue(ctx, account)
	if err != nil {
		// Delivery failure is non-fatal inside Issue; an error here means the
		// code never reached the ledger, so the registration cannot complete.
		return nil, nil, fmt.Errorf("issue registration OTP: %w", err)
	}

	if err := s.bus.Publish(ctx, events.UserRegistered, events.UserRegisteredEvent{
		AccountID:        account.ID,
		Name:             account.Name,
		VerificationType: string(issued.Channel),
		CreatedAt:        account.CreatedAt,
	}); err != nil {
		logger.WarnContext(ctx, "failed to publish registration event", "error", err)
	}

	return account, issued, nil
}

// Login resolves the identifier and picks a path by the presence of a
// password. A correct password against a verified account grants a session
// immediately; the passwordless path dispatches an OTP instead. A nil
// IssuedOTP in the return means the password path succeeded. Not-found and
// bad-password failures are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req domain.LoginRequest) (*domain.Account, *IssuedOTP, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	account, err := s.accounts.FindByIdentifier(ctx, req.Identifier)
	if err != nil {
		return nil, nil, fmt.Errorf("find account: %w", err)
	}
	if account == nil {
		return nil, nil, domain.ErrInvalidCredentials
	}

	if req.Password != "" {
		// A passwordless account cannot satisfy a password login.
		if !account.HasPassword() {
			return nil, nil, domain.ErrInvalidCredentials
		}
		match, err := argon2id.ComparePasswordAndHash(req.Password, account.PasswordHash)
		if err != nil {
			return nil, nil, fmt.Errorf("compare password: %w", err)
		}
		if !match {
			return nil, nil, domain.ErrInvalidCredentials
		}
		if !account.IsVerified {
			return nil, nil, domain.ErrNotVerified
		}

		if err := s.accounts.TouchLastLogin(ctx, account.ID); err != nil {
			logger.WarnContext(ctx, "failed to record login time",
				"account_id", account.ID, "error", err)
		}
		return account, nil, nil
	}

	if !account.IsVerified {
		return nil, nil, domain.ErrNotVerified
	}

	issued, err := s.otp.Issue(ctx, account)
	if err != nil {
		return nil, nil, fmt.Errorf("issue login OTP: %w", err)
	}

	return account, issued, nil
}

// VerifyOTP consumes a matching code, marks the account verified, and
// records the login. The caller establishes the session on success.
func (s *AuthService) VerifyOTP(ctx context.Context, req domain.VerifyOTPRequest) (*domain.Account, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	if account == nil {
		return nil, domain.ErrCodeInvalid
	}

	if err := s.otp.Verify(ctx, account.ID, req.Code); err != nil {
		return nil, err
	}

	if !account.IsVerified {
		if err := s.accounts.MarkVerified(ctx, account.ID); err != nil {
			return nil, fmt.Errorf("mark verified: %w", err)
		}
		account.IsVerified = true

		if err := s.bus.Publish(ctx, events.UserVerified, events.UserVerifiedEvent{
			AccountID:  account.ID,
			VerifiedAt: time.Now(),
		}); err != nil {
			logger.WarnContext(ctx, "failed to publish verification event", "error", err)
		}
	}

	if err := s.accounts.TouchLastLogin(ctx, account.ID); err != nil {
		logger.WarnContext(ctx, "failed to record login time",
			"account_id", account.ID, "error", err)
	}

	return account, nil
}

// ResendOTP issues another code without invalidating earlier ones.
func (s *AuthService) ResendOTP(ctx context.Context, req domain.ResendOTPRequest) (*domain.Account, *IssuedOTP, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	account, err := s.accounts.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("find account: %w", err)
	}
	if account == nil {
		return nil, nil, domain.ErrNotFound
	}

	issued, err := s.otp.Issue(ctx, account)
	if err != nil {
		return nil, nil, fmt.Errorf("issue OTP: %w", err)
	}

	return account, issued, nil
}

func (s *AuthService) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrNotFound
	}
	return account, nil
}

func (s *AuthService) ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	return s.accounts.List(ctx, limit, offset)
}
