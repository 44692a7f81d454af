package service_test

import (
	"context"
	"fmt"
	"time"

	"github.com/qaranexchange/exchange-api/internal/domain"
)

// ---------- Mocks ----------

type mockAccountRepo struct {
	nextID   int64
	accounts map[int64]*domain.Account
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{nextID: 1, accounts: make(map[int64]*domain.Account)}
}

func (m *mockAccountRepo) Create(_ context.Context, a *domain.Account) (*domain.Account, error) {
	for _, existing := range m.accounts {
		if (a.Email != "" && existing.Email == a.Email) || (a.Phone != "" && existing.Phone == a.Phone) {
			return nil, domain.ErrDuplicateChannel
		}
	}
	stored := *a
	stored.ID = m.nextID
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	m.nextID++
	m.accounts[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (m *mockAccountRepo) FindByID(_ context.Context, id int64) (*domain.Account, error) {
	if a, ok := m.accounts[id]; ok {
		out := *a
		return &out, nil
	}
	return nil, nil
}

func (m *mockAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	for _, a := range m.accounts {
		if a.Email == email {
			out := *a
			return &out, nil
		}
	}
	return nil, nil
}

func (m *mockAccountRepo) FindByPhone(_ context.Context, phone string) (*domain.Account, error) {
	for _, a := range m.accounts {
		if a.Phone == phone {
			out := *a
			return &out, nil
		}
	}
	return nil, nil
}

func (m *mockAccountRepo) FindByIdentifier(_ context.Context, identifier string) (*domain.Account, error) {
	for _, a := range m.accounts {
		if a.Email == identifier || a.Phone == identifier {
			out := *a
			return &out, nil
		}
	}
	return nil, nil
}

func (m *mockAccountRepo) MarkVerified(_ context.Context, id int64) error {
	if a, ok := m.accounts[id]; ok {
		a.IsVerified = true
	}
	return nil
}

func (m *mockAccountRepo) TouchLastLogin(_ context.Context, id int64) error {
	if a, ok := m.accounts[id]; ok {
		now := time.Now()
		a.LastLoginAt = &now
	}
	return nil
}

func (m *mockAccountRepo) List(_ context.Context, limit, offset int) ([]domain.Account, error) {
	var out []domain.Account
	for _, a := range m.accounts {
		out = append(out, *a)
	}
	return out, nil
}

type mockOTPRepo struct {
	nextID    int64
	codes     map[int64]*domain.OTPCode
	createErr error
}

func newMockOTPRepo() *mockOTPRepo {
	return &mockOTPRepo{nextID: 1, codes: make(map[int64]*domain.OTPCode)}
}

func (m *mockOTPRepo) Create(_ context.Context, code *domain.OTPCode) (*domain.OTPCode, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	stored := *code
	stored.ID = m.nextID
	stored.CreatedAt = time.Now()
	m.nextID++
	m.codes[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (m *mockOTPRepo) ListUnconsumed(_ context.Context, accountID int64) ([]domain.OTPCode, error) {
	var out []domain.OTPCode
	// Newest first: IDs ascend with creation order.
	for id := m.nextID - 1; id >= 1; id-- {
		c, ok := m.codes[id]
		if !ok || c.AccountID != accountID || c.ConsumedAt != nil {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockOTPRepo) Consume(_ context.Context, id int64) (bool, error) {
	c, ok := m.codes[id]
	if !ok || c.ConsumedAt != nil || !time.Now().Before(c.ExpiresAt) {
		return false, nil
	}
	now := time.Now()
	c.ConsumedAt = &now
	return true, nil
}

func (m *mockOTPRepo) DeleteExpired(_ context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}

type mockMailer struct {
	lastTo   string
	lastCode string
	lastSub  *domain.Submission
	sent     int
	sendErr  error
}

func (m *mockMailer) SendOTPEmail(toEmail, toName, code string) error {
	m.lastTo = toEmail
	m.lastCode = code
	m.sent++
	return m.sendErr
}

func (m *mockMailer) SendSubmissionAlert(toEmail string, sub *domain.Submission) error {
	m.lastTo = toEmail
	m.lastSub = sub
	m.sent++
	return m.sendErr
}

type mockSMS struct {
	lastTo   string
	lastCode string
	sent     int
	sendErr  error
}

func (m *mockSMS) SendOTP(toPhone, code string) error {
	m.lastTo = toPhone
	m.lastCode = code
	m.sent++
	return m.sendErr
}

type mockBus struct {
	subjects []string
}

func (m *mockBus) Publish(_ context.Context, subject string, _ interface{}) error {
	m.subjects = append(m.subjects, subject)
	return nil
}

func (m *mockBus) Close() error { return nil }

func (m *mockBus) published(subject string) bool {
	for _, s := range m.subjects {
		if s == subject {
			return true
		}
	}
	return false
}

type mockPaymentRepo struct {
	nextID   int64
	payments map[int64]*domain.Payment
}

func newMockPaymentRepo() *mockPaymentRepo {
	return &mockPaymentRepo{nextID: 1, payments: make(map[int64]*domain.Payment)}
}

func (m *mockPaymentRepo) Create(_ context.Context, p *domain.Payment) (*domain.Payment, error) {
	stored := *p
	stored.ID = m.nextID
	stored.CreatedAt = time.Now()
	m.nextID++
	m.payments[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (m *mockPaymentRepo) GetByID(_ context.Context, id int64) (*domain.Payment, error) {
	if p, ok := m.payments[id]; ok {
		out := *p
		return &out, nil
	}
	return nil, nil
}

func (m *mockPaymentRepo) List(_ context.Context, limit, offset int) ([]domain.Payment, error) {
	var out []domain.Payment
	for _, p := range m.payments {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockPaymentRepo) ListByAccount(_ context.Context, accountID int64) ([]domain.Payment, error) {
	var out []domain.Payment
	for _, p := range m.payments {
		if p.AccountID != nil && *p.AccountID == accountID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockPaymentRepo) Stats(_ context.Context) (*domain.PaymentStats, error) {
	var s domain.PaymentStats
	for _, p := range m.payments {
		s.Total++
		switch p.Status {
		case domain.PaymentCompleted:
			s.Completed++
			s.Volume += p.TotalAmount
		case domain.PaymentPending:
			s.Pending++
		}
	}
	return &s, nil
}

type mockCardCharger struct {
	intents int
	err     error
}

func (m *mockCardCharger) CreateIntent(amount float64, currency, transactionID string) (string, string, error) {
	if m.err != nil {
		return "", "", m.err
	}
	m.intents++
	return fmt.Sprintf("pi_%d", m.intents), fmt.Sprintf("pi_%d_secret", m.intents), nil
}

type mockSubmissionRepo struct {
	nextID      int64
	submissions map[int64]*domain.Submission
}

func newMockSubmissionRepo() *mockSubmissionRepo {
	return &mockSubmissionRepo{nextID: 1, submissions: make(map[int64]*domain.Submission)}
}

func (m *mockSubmissionRepo) Create(_ context.Context, s *domain.Submission) (*domain.Submission, error) {
	stored := *s
	stored.ID = m.nextID
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	m.nextID++
	m.submissions[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (m *mockSubmissionRepo) GetByID(_ context.Context, id int64) (*domain.Submission, error) {
	if s, ok := m.submissions[id]; ok {
		out := *s
		return &out, nil
	}
	return nil, nil
}

func (m *mockSubmissionRepo) List(_ context.Context, limit, offset int) ([]domain.Submission, error) {
	var out []domain.Submission
	for _, s := range m.submissions {
		out = append(out, *s)
	}
	return out, nil
}

func (m *mockSubmissionRepo) UpdateStatus(_ context.Context, id int64, status string) (bool, error) {
	s, ok := m.submissions[id]
	if !ok {
		return false, nil
	}
	s.Status = status
	s.UpdatedAt = time.Now()
	return true, nil
}
