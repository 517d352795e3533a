package notifications

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
)

// EmailClient sends mail through an SMTP relay
type EmailClient struct {
	smtpHost     string
	smtpPort     string
	smtpUsername string
	smtpPassword string
	fromEmail    string
	fromName     string

	// sendMail is smtp.SendMail outside tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailClient creates a new email client
func NewEmailClient(smtpHost, smtpPort, username, password, fromEmail, fromName string) *EmailClient {
	return &EmailClient{
		smtpHost:     smtpHost,
		smtpPort:     smtpPort,
		smtpUsername: username,
		smtpPassword: password,
		fromEmail:    fromEmail,
		fromName:     fromName,
		sendMail:     smtp.SendMail,
	}
}

// SendEmail sends an HTML email. net/smtp has no context support; the
// deadline is enforced by the caller's retry and worker timeouts.
func (e *EmailClient) SendEmail(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from := fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", e.fromName), e.fromEmail)
	msg := buildMessage(from, to, subject, body)

	var auth smtp.Auth
	if e.smtpUsername != "" {
		auth = smtp.PlainAuth("", e.smtpUsername, e.smtpPassword, e.smtpHost)
	}
	addr := e.smtpHost + ":" + e.smtpPort

	if err := e.sendMail(addr, auth, e.fromEmail, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
