package mail

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
)

// Mailer sends the transactional emails of the auth flows. Delivery transport
// is a collaborator concern; callers only depend on this contract.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, username string, token uuid.UUID) error
	SendPasswordResetEmail(ctx context.Context, to, username string, token uuid.UUID) error
}

// SMTPMailer delivers rendered templates over plain SMTP.
type SMTPMailer struct {
	addr      string
	from      string
	publicURL string
}

func NewSMTPMailer(addr, from, publicURL string) *SMTPMailer {
	return &SMTPMailer{addr: addr, from: from, publicURL: publicURL}
}

func (m *SMTPMailer) SendVerificationEmail(_ context.Context, to, username string, token uuid.UUID) error {
	link := fmt.Sprintf("%s/api/auth/verify?token=%s", m.publicURL, token)
	body, err := renderVerification(username, link)
	if err != nil {
		return fmt.Errorf("render verification mail: %w", err)
	}
	return m.send(to, "Verify your email", body)
}

func (m *SMTPMailer) SendPasswordResetEmail(_ context.Context, to, username string, token uuid.UUID) error {
	link := fmt.Sprintf("%s/api/auth/validate-password?token=%s", m.publicURL, token)
	body, err := renderPasswordReset(username, link)
	if err != nil {
		return fmt.Errorf("render reset mail: %w", err)
	}
	return m.send(to, "Reset your password", body)
}

func (m *SMTPMailer) send(to, subject, htmlBody string) error {
	var msg strings.Builder
	msg.WriteString("From: " + m.from + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.WriteString(htmlBody)

	if err := smtp.SendMail(m.addr, nil, m.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogMailer stands in for SMTP in development: it only logs the link.
type LogMailer struct{}

func (LogMailer) SendVerificationEmail(_ context.Context, to, username string, token uuid.UUID) error {
	log.Printf("mail (dev): verification for %s <%s>, token=%s", username, to, token)
	return nil
}

func (LogMailer) SendPasswordResetEmail(_ context.Context, to, username string, token uuid.UUID) error {
	log.Printf("mail (dev): password reset for %s <%s>, token=%s", username, to, token)
	return nil
}
