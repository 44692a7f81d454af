package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/qaranexchange/exchange-api/internal/domain"
	"github.com/qaranexchange/exchange-api/internal/service"
	"github.com/qaranexchange/exchange-api/pkg/events"
)

func newAuthFixture() (*service.AuthService, *mockAccountRepo, *mockMailer, *mockBus) {
	accounts := newMockAccountRepo()
	otpRepo := newMockOTPRepo()
	mail := &mockMailer{}
	texts := &mockSMS{}
	bus := &mockBus{}

	otpSvc := service.NewOTPService(otpRepo, mail, texts, 10*time.Minute)
	return service.NewAuthService(accounts, otpSvc, bus), accounts, mail, bus
}

func TestRegister_EmailAccount(t *testing.T) {
	svc, accounts, mail, bus := newAuthFixture()

	account, issued, err := svc.Register(context.Background(), domain.RegisterRequest{
		Name:  "Amina Hassan",
		Email: "Amina@Example.com",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if account.Email != "amina@example.com" {
		t.Fatalf("Expected lowercased email, got %q", account.Email)
	}
	if account.IsVerified {
		t.Fatal("New accounts must start unverified")
	}
	if issued == nil || issued.Channel != domain.ChannelEmail {
		t.Fatalf("Expected email OTP issuance, got %+v", issued)
	}
	if mail.lastTo != "amina@example.com" {
		t.Fatalf("OTP mailed to %q", mail.lastTo)
	}
	if !bus.published(events.UserRegistered) {
		t.Fatal("Expected registration event")
	}

	stored, _ := accounts.FindByID(context.Background(), account.ID)
	if stored == nil {
		t.Fatal("Account not persisted")
	}
}

func TestRegister_PasswordlessPhoneAccount(t *testing.T) {
	svc, _, _, _ := newAuthFixture()

	account, issued, err := svc.Register(context.Background(), domain.RegisterRequest{
		Name:  "Omar",
		Phone: "+252611234567",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if account.PasswordHash != "" {
		t.Fatal("Passwordless account should have no hash")
	}
	if issued.Channel != domain.ChannelSMS {
		t.Fatalf("Expected sms channel, got %s", issued.Channel)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _, _ := newAuthFixture()
	ctx := context.Background()

	req := domain.RegisterRequest{Name: "Amina", Email: "amina@example.com"}
	if _, _, err := svc.Register(ctx, req); err != nil {
		t.Fatalf("First register failed: %v", err)
	}

	_, _, err := svc.Register(ctx, req)
	if !errors.Is(err, domain.ErrDuplicateChannel) {
		t.Fatalf("Expected ErrDuplicateChannel, got %v", err)
	}
}

func TestRegister_SameNameDifferentEmails(t *testing.T) {
	svc, _, _, _ := newAuthFixture()
	ctx := context.Background()

	first, _, err := svc.Register(ctx, domain.RegisterRequest{
		Name: "Amina", Email: "amina@example.com",
	})
	if err != nil {
		t.Fatalf("First register failed: %v", err)
	}

	// The name is not a uniqueness key; only the contact channels are.
	second, _, err := svc.Register(ctx, domain.RegisterRequest{
		Name: "Amina", Email: "amina@work.example.com",
	})
	if err != nil {
		t.Fatalf("Second register with a different email failed: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("Expected two distinct accounts")
	}
}

func TestRegister_OTPPersistenceFailure(t *testing.T) {
	accounts := newMockAccountRepo()
	otpRepo := newMockOTPRepo()
	otpRepo.createErr = errors.New("datastore down")
	mail := &mockMailer{}

	otpSvc := service.NewOTPService(otpRepo, mail, &mockSMS{}, 10*time.Minute)
	svc := service.NewAuthService(accounts, otpSvc, &mockBus{})

	_, issued, err := svc.Register(context.Background(), domain.RegisterRequest{
		Name: "Amina", Email: "amina@example.com",
	})
	if err == nil {
		t.Fatal("Expected error when the code cannot be stored")
	}
	if issued != nil {
		t.Fatalf("No issuance should be reported, got %+v", issued)
	}
	if mail.sent != 0 {
		t.Fatal("Nothing should be dispatched without a stored code")
	}
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _, _ := newAuthFixture()
	ctx := context.Background()

	tests := []struct {
		name string
		req  domain.RegisterRequest
	}{
		{"missing name", domain.RegisterRequest{Email: "a@b.com"}},
		{"missing contact", domain.RegisterRequest{Name: "Amina"}},
		{"bad email", domain.RegisterRequest{Name: "Amina", Email: "not-an-email"}},
		{"short password", domain.RegisterRequest{Name: "Amina", Email: "a@b.com", Password: "short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := svc.Register(ctx, tt.req); !domain.IsValidation(err) {
				t.Fatalf("Expected validation error, got %v", err)
			}
		})
	}
}

// registerVerified registers an account and walks it through verification.
func registerVerified(t *testing.T, svc *service.AuthService, req domain.RegisterRequest) *domain.Account {
	t.Helper()
	ctx := context.Background()

	account, issued, err := svc.Register(ctx, req)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	verified, err := svc.VerifyOTP(ctx, domain.VerifyOTPRequest{UserID: account.ID, Code: issued.Code})
	if err != nil {
		t.Fatalf("VerifyOTP failed: %v", err)
	}
	return verified
}

func TestLogin_PasswordGrantsImmediateSession(t *testing.T) {
	svc, accounts, _, _ := newAuthFixture()
	ctx := context.Background()

	registerVerified(t, svc, domain.RegisterRequest{
		Name: "Amina", Email: "amina@example.com", Password: "correct-horse",
	})

	account, issued, err := svc.Login(ctx, domain.LoginRequest{
		Identifier: "amina@example.com",
		Password:   "correct-horse",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if issued != nil {
		t.Fatal("Password path must not dispatch an OTP")
	}
	if account.Email != "amina@example.com" {
		t.Fatalf("Wrong account: %q", account.Email)
	}

	stored, _ := accounts.FindByID(ctx, account.ID)
	if stored.LastLoginAt == nil {
		t.Fatal("Password login must record the login time")
	}
}

func TestLogin_UnverifiedAccountFails(t *testing.T) {
	svc, _, _, _ := newAuthFixture()
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, domain.RegisterRequest{
		Name: "Amina", Email: "amina@example.com", Password: "correct-horse",
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Correct password, but the account never verified.
	_, _, err := svc.Login(ctx, domain.LoginRequest{
		Identifier: "amina@example.com",
		Password:   "correct-horse",
	})
	if !errors.Is(err, domain.ErrNotVerified) {
		t.Fatalf("Expected ErrNotVerified, got %v", err)
	}

	// Same on the passwordless path.
	_, _, err = svc.Login(ctx, domain.LoginRequest{Identifier: "amina@example.com"})
	if !errors.Is(err, domain.ErrNotVerified) {
		t.Fatalf("Expected ErrNotVerified, got %v", err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _, _ := newAuthFixture()
	ctx := context.Background()

	registerVerified(t, svc, domain.RegisterRequest{
		Name: "Amina", Email: "amina@example.com", Password: "correct-horse",
	})

	_, _, err := svc.Login(ctx, domain.LoginRequest{
		Identifier: "amina@example.com",
		Password:   "wrong-horse",
	})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("Expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_PasswordAgainstPasswordlessAccount(t *testing.T) {
	svc, _, _, _ := newAuthFixture()
	ctx := context.Background()

	registerVerified(t, svc, domain.RegisterRequest{
		Name: "Omar", Phone: "+252611234567",
	})

	// Supplying any password against a passwordless account fails exactly
	// like a wrong password would.
	_, _, err := svc.Login(ctx, domain.LoginRequest{
		Identifier: "+252611234567",
		Password:   "anything-at-all",
	})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("Expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_UnknownIdentifier(t *testing.T) {
	svc, _, _, _ := newAuthFixture()

	_, _, err := svc.Login(context.Background(), domain.LoginRequest{
		Identifier: "ghost@example.com",
	})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("Expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_PasswordlessOTPOnly(t *testing.T) {
	svc, _, _, _ := newAuthFixture()
	ctx := context.Background()

	registerVerified(t, svc, domain.RegisterRequest{
		Name: "Omar", Phone: "+252611234567",
	})

	_, issued, err := svc.Login(ctx, domain.LoginRequest{Identifier: "+252611234567"})
	if err != nil {
		t.Fatalf("Passwordless login failed: %v", err)
	}
	if issued == nil || issued.Channel != domain.ChannelSMS {
		t.Fatalf("Expected sms OTP, got %+v", issued)
	}
}

func TestVerifyOTP_MarksVerifiedAndRecordsLogin(t *testing.T) {
	svc, accounts, mail, bus := newAuthFixture()
	ctx := context.Background()

	account, _, err := svc.Register(ctx, domain.RegisterRequest{
		Name: "Amina", Email: "amina@example.com",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	verified, err := svc.VerifyOTP(ctx, domain.VerifyOTPRequest{
		UserID: account.ID,
		Code:   mail.lastCode,
	})
	if err != nil {
		t.Fatalf("VerifyOTP failed: %v", err)
	}
	if !verified.IsVerified {
		t.Fatal("Account should be verified")
	}
	if !bus.published(events.UserVerified) {
		t.Fatal("Expected verification event")
	}

	stored, _ := accounts.FindByID(ctx, account.ID)
	if !stored.IsVerified || stored.LastLoginAt == nil {
		t.Fatalf("Persisted state wrong: verified=%v last_login=%v", stored.IsVerified, stored.LastLoginAt)
	}
}

func TestVerifyOTP_WrongCode(t *testing.T) {
	svc, _, _, _ := newAuthFixture()
	ctx := context.Background()

	account, _, err := svc.Register(ctx, domain.RegisterRequest{
		Name: "Amina", Email: "amina@example.com",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	_, err = svc.VerifyOTP(ctx, domain.VerifyOTPRequest{UserID: account.ID, Code: "000000"})
	if !errors.Is(err, domain.ErrCodeInvalid) {
		t.Fatalf("Expected ErrCodeInvalid, got %v", err)
	}
}

func TestVerifyOTP_UnknownAccount(t *testing.T) {
	svc, _, _, _ := newAuthFixture()

	_, err := svc.VerifyOTP(context.Background(), domain.VerifyOTPRequest{UserID: 999, Code: "123456"})
	if !errors.Is(err, domain.ErrCodeInvalid) {
		t.Fatalf("Expected ErrCodeInvalid for unknown account, got %v", err)
	}
}

func TestResendOTP_IssuesFreshCodeWithoutInvalidating(t *testing.T) {
	svc, _, mail, _ := newAuthFixture()
	ctx := context.Background()

	account, first, err := svc.Register(ctx, domain.RegisterRequest{
		Name: "Amina", Email: "amina@example.com",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	_, second, err := svc.ResendOTP(ctx, domain.ResendOTPRequest{UserID: account.ID})
	if err != nil {
		t.Fatalf("ResendOTP failed: %v", err)
	}
	if mail.sent != 2 {
		t.Fatalf("Expected 2 sends, got %d", mail.sent)
	}

	// The first code still verifies after a resend.
	if _, err := svc.VerifyOTP(ctx, domain.VerifyOTPRequest{UserID: account.ID, Code: first.Code}); err != nil {
		t.Fatalf("First code should still verify: %v", err)
	}
	if _, err := svc.VerifyOTP(ctx, domain.VerifyOTPRequest{UserID: account.ID, Code: second.Code}); err != nil {
		t.Fatalf("Second code should verify: %v", err)
	}
}

func TestResendOTP_UnknownAccount(t *testing.T) {
	svc, _, _, _ := newAuthFixture()

	_, _, err := svc.ResendOTP(context.Background(), domain.ResendOTPRequest{UserID: 42})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}
