package mailer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"

	"github.com/qaranexchange/exchange-api/internal/domain"
)

type MailerSendClient struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSendClient {
	m := &MailerSendClient{
		enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}

	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}

	return m
}

func (m *MailerSendClient) SendOTPEmail(toEmail, toName, code string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := "Qaran Exchange - Verification Code"
	html := fmt.Sprintf(`
		<h2>Qaran Exchange</h2>
		<p>Hello %s,</p>
		<p>Your verification code is:</p>
		<h1 style="font-size: 32px; letter-spacing: 5px;">%s</h1>
		<p>This code expires shortly. If you didn't request it, ignore this email.</p>
	`, toName, code)
	text := fmt.Sprintf("Hello %s,\n\nYour Qaran Exchange verification code is: %s\n\nIf you didn't request this code, ignore this email.", toName, code)

	return m.sendEmail(toEmail, toName, subject, text, html)
}

func (m *MailerSendClient) SendSubmissionAlert(toEmail string, sub *domain.Submission) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := fmt.Sprintf("New Customer Submission #%d - Qaran Exchange", sub.ID)
	text, html := renderSubmissionAlert(sub)

	return m.sendEmail(toEmail, "", subject, text, html)
}

func (m *MailerSendClient) sendEmail(toEmail, toName, subject, text, html string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)

	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	_, err := m.client.Email.Send(ctx, msg)
	return err
}

// renderSubmissionAlert builds the admin notification body shared by the
// MailerSend and SMTP senders.
func renderSubmissionAlert(sub *domain.Submission) (text, html string) {
	details := sub.AccountDetails()
	labels := make([]string, 0, len(details))
	for label := range details {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var tb, hb strings.Builder
	fmt.Fprintf(&tb, "New customer submission #%d\n\nName: %s\nPhone: %s\nEmail: %s\n\nAccount details:\n",
		sub.ID, sub.CustomerName, sub.CustomerPhone, sub.CustomerEmail)
	fmt.Fprintf(&hb, `<h2>New Customer Account Details Submission</h2>
		<p><strong>Submission ID:</strong> #%d</p>
		<p><strong>Name:</strong> %s</p>
		<p><strong>Phone:</strong> %s</p>
		<p><strong>Email:</strong> %s</p>
		<h3>Account Details</h3>`,
		sub.ID, sub.CustomerName, sub.CustomerPhone, sub.CustomerEmail)

	for _, label := range labels {
		fmt.Fprintf(&tb, "  %s: %s\n", label, details[label])
		fmt.Fprintf(&hb, "<p><strong>%s:</strong> %s</p>", label, details[label])
	}

	if sub.Notes != "" {
		fmt.Fprintf(&tb, "\nNotes: %s\n", sub.Notes)
		fmt.Fprintf(&hb, "<h3>Additional Notes</h3><p>%s</p>", sub.Notes)
	}

	return tb.String(), hb.String()
}
