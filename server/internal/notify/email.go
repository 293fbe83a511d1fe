package notify

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
)

// SMTPEmailSender sends plain-text mail through an SMTP relay.
type SMTPEmailSender struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string

	// sendMail is smtp.SendMail; replaced in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPEmailSender creates an SMTP sender. Authentication is used when
// username is non-empty.
func NewSMTPEmailSender(host string, port int, from, username, password string) *SMTPEmailSender {
	return &SMTPEmailSender{
		Host:     host,
		Port:     port,
		From:     from,
		Username: username,
		Password: password,
		sendMail: smtp.SendMail,
	}
}

// Send delivers one message to every address in to.
func (e *SMTPEmailSender) Send(ctx context.Context, to []string, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		e.From,
		strings.Join(to, ","),
		encodeHeader(subject),
		body,
	)

	var auth smtp.Auth
	if e.Username != "" {
		auth = smtp.PlainAuth("", e.Username, e.Password, e.Host)
	}
	addr := fmt.Sprintf("%s:%d", e.Host, e.Port)
	if err := e.sendMail(addr, auth, e.From, to, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// encodeHeader flattens line breaks and Q-encodes anything outside printable
// ASCII so a value can never start a new header line.
func encodeHeader(v string) string {
	v = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(v)
	return mime.QEncoding.Encode("utf-8", v)
}
