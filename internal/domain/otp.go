package domain

import "time"

// OTPCode is one row of the OTP ledger. Codes are stored hashed; the
// plaintext exists only on the issuance path. Reissuing does not invalidate
// earlier codes, so several unconsumed rows may be outstanding for one
// account at a time.
type OTPCode struct {
	ID         int64      `json:"id"`
	AccountID  int64      `json:"account_id"`
	CodeHash   string     `json:"-"`
	Channel    Channel    `json:"channel"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (o *OTPCode) IsExpired() bool {
	return !time.Now().Before(o.ExpiresAt)
}

func (o *OTPCode) IsConsumed() bool {
	return o.ConsumedAt != nil
}

// Acceptable reports whether the code can still be redeemed: unconsumed and
// expiry strictly in the future.
func (o *OTPCode) Acceptable() bool {
	return !o.IsConsumed() && !o.IsExpired()
}
