package domain

import (
	"regexp"
	"strings"
	"time"
)

// Channel is the contact channel an account is reached on. Email wins when
// an account carries both.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

type Account struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	PasswordHash string     `json:"-"`
	IsVerified   bool       `json:"is_verified"`
	IsAdmin      bool       `json:"is_admin"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// PrimaryChannel reports how OTPs reach this account.
func (a *Account) PrimaryChannel() Channel {
	if a.Email != "" {
		return ChannelEmail
	}
	return ChannelSMS
}

// Contact returns the address on the primary channel.
func (a *Account) Contact() string {
	if a.Email != "" {
		return a.Email
	}
	return a.Phone
}

// HasPassword reports whether password login is possible at all; absent
// credential means passwordless-only.
func (a *Account) HasPassword() bool { return a.PasswordHash != "" }

// AccountInfo is the wire shape of an account, without sensitive fields.
type AccountInfo struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	IsVerified bool   `json:"is_verified"`
	IsAdmin    bool   `json:"is_admin,omitempty"`
}

func (a *Account) ToAccountInfo() *AccountInfo {
	return &AccountInfo{
		ID:         a.ID,
		Name:       a.Name,
		Email:      a.Email,
		Phone:      a.Phone,
		IsVerified: a.IsVerified,
		IsAdmin:    a.IsAdmin,
	}
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password,omitempty"`
}

func (r *RegisterRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = normalizePhone(r.Phone)
}

func (r *RegisterRequest) Validate() error {
	if r.Name == "" {
		return Invalid("name is required")
	}
	if r.Email == "" && r.Phone == "" {
		return Invalid("email or phone is required")
	}
	if r.Email != "" && !isValidEmail(r.Email) {
		return Invalid("invalid email format")
	}
	if r.Phone != "" && !isValidPhone(r.Phone) {
		return Invalid("invalid phone format")
	}
	if r.Password != "" && len(r.Password) < 8 {
		return Invalid("password must be at least 8 characters")
	}
	return nil
}

type LoginRequest struct {
	Identifier string `json:"identifier"` // email or phone
	Password   string `json:"password,omitempty"`
}

func (r *LoginRequest) Normalize() {
	r.Identifier = strings.TrimSpace(r.Identifier)
	if strings.Contains(r.Identifier, "@") {
		r.Identifier = strings.ToLower(r.Identifier)
	} else {
		r.Identifier = normalizePhone(r.Identifier)
	}
}

func (r *LoginRequest) Validate() error {
	if r.Identifier == "" {
		return Invalid("email or phone is required")
	}
	return nil
}

type VerifyOTPRequest struct {
	UserID int64  `json:"userId"`
	Code   string `json:"code"`
}

func (r *VerifyOTPRequest) Validate() error {
	if r.UserID == 0 || strings.TrimSpace(r.Code) == "" {
		return Invalid("user ID and code are required")
	}
	return nil
}

type ResendOTPRequest struct {
	UserID int64 `json:"userId"`
}

func (r *ResendOTPRequest) Validate() error {
	if r.UserID == 0 {
		return Invalid("user ID is required")
	}
	return nil
}

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+?[\d\s\-\(\)]+$`)
)

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

func isValidPhone(phone string) bool {
	return phoneRegex.MatchString(phone) && len(phone) >= 7
}

func normalizePhone(phone string) string {
	return strings.TrimSpace(phone)
}
