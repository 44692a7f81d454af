package domain

import (
	"strings"
	"time"
)

// Submission statuses
const (
	SubmissionPending    = "pending"
	SubmissionProcessing = "processing"
	SubmissionCompleted  = "completed"
	SubmissionRejected   = "rejected"
)

var validSubmissionStatuses = map[string]bool{
	SubmissionPending:    true,
	SubmissionProcessing: true,
	SubmissionCompleted:  true,
	SubmissionRejected:   true,
}

func IsValidSubmissionStatus(status string) bool {
	return validSubmissionStatuses[status]
}

// Submission holds the account details a customer hands over for an
// exchange: at least one of the wallet/ID fields must be present.
type Submission struct {
	ID            int64     `json:"id"`
	AccountID     *int64    `json:"account_id,omitempty"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	CustomerEmail string    `json:"customer_email"`
	USDTWallet    string    `json:"usdt_wallet,omitempty"`
	EVCPlusNumber string    `json:"evc_plus_number,omitempty"`
	XBetID        string    `json:"xbet_id,omitempty"`
	MelbetID      string    `json:"melbet_id,omitempty"`
	MoneyGoWallet string    `json:"moneygo_wallet,omitempty"`
	EdahabNumber  string    `json:"edahab_number,omitempty"`
	PremierWallet string    `json:"premier_wallet,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type CreateSubmissionRequest struct {
	CustomerName  string `json:"customerName"`
	CustomerPhone string `json:"customerPhone"`
	CustomerEmail string `json:"customerEmail"`
	USDTWallet    string `json:"usdtWallet,omitempty"`
	EVCPlusNumber string `json:"evcPlusNumber,omitempty"`
	XBetID        string `json:"xbetId,omitempty"`
	MelbetID      string `json:"melbetId,omitempty"`
	MoneyGoWallet string `json:"moneygoWallet,omitempty"`
	EdahabNumber  string `json:"edahapNumber,omitempty"`
	PremierWallet string `json:"premierWallet,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

func (r *CreateSubmissionRequest) Normalize() {
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.CustomerPhone = strings.TrimSpace(r.CustomerPhone)
	r.CustomerEmail = strings.ToLower(strings.TrimSpace(r.CustomerEmail))
	for _, f := range []*string{
		&r.USDTWallet, &r.EVCPlusNumber, &r.XBetID, &r.MelbetID,
		&r.MoneyGoWallet, &r.EdahabNumber, &r.PremierWallet, &r.Notes,
	} {
		*f = strings.TrimSpace(*f)
	}
}

func (r *CreateSubmissionRequest) Validate() error {
	if r.CustomerName == "" || r.CustomerPhone == "" || r.CustomerEmail == "" {
		return Invalid("customer name, phone, and email are required")
	}
	if !isValidEmail(r.CustomerEmail) {
		return Invalid("invalid customer email format")
	}
	if !r.hasAccountDetail() {
		return Invalid("at least one account detail is required")
	}
	return nil
}

func (r *CreateSubmissionRequest) hasAccountDetail() bool {
	for _, v := range []string{
		r.USDTWallet, r.EVCPlusNumber, r.XBetID, r.MelbetID,
		r.MoneyGoWallet, r.EdahabNumber, r.PremierWallet,
	} {
		if v != "" {
			return true
		}
	}
	return false
}

// AccountDetails returns the populated account fields, labeled for the
// admin notification email.
func (s *Submission) AccountDetails() map[string]string {
	details := map[string]string{}
	add := func(label, v string) {
		if v != "" {
			details[label] = v
		}
	}
	add("USDT Wallet", s.USDTWallet)
	add("EVC Plus Number", s.EVCPlusNumber)
	add("1xBet ID", s.XBetID)
	add("Melbet ID", s.MelbetID)
	add("MoneyGo Wallet", s.MoneyGoWallet)
	add("Edahab Number", s.EdahabNumber)
	add("Premier Wallet", s.PremierWallet)
	return details
}
