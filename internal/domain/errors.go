package domain

import "errors"

// Sentinel errors shared across services and mapped to HTTP responses in one
// place. Authentication failures deliberately carry no detail about which
// check failed.
var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateChannel   = errors.New("an account already exists for this email or phone")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("account is not verified")
	ErrCodeInvalid        = errors.New("invalid or expired code")
	ErrNotAuthenticated   = errors.New("not authenticated")
)

// ValidationError marks recoverable bad-input failures.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Invalid(msg string) error { return &ValidationError{Msg: msg} }

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
