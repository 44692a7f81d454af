package mailer

import "github.com/qaranexchange/exchange-api/internal/domain"

// Service is the email delivery collaborator. Implementations block until
// delivery is accepted or fails; callers decide what a failure means.
type Service interface {
	SendOTPEmail(toEmail, toName, code string) error
	SendSubmissionAlert(toEmail string, sub *domain.Submission) error
}
