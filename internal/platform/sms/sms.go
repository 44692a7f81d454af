package sms

// Sender delivers SMS messages. Implementations block until the provider
// accepts the message or fails; callers decide what a failure means.
type Sender interface {
	SendOTP(toPhone, code string) error
}
