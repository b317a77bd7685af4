package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// CodeMailer delivers one-time verification codes over SMTP. It satisfies
// service.CodeSender.
type CodeMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewCodeMailer(host, port, username, password, from string) *CodeMailer {
	return &CodeMailer{
		host:     strings.TrimSpace(host),
		port:     strings.TrimSpace(port),
		username: username,
		password: password,
		from:     strings.TrimSpace(from),
	}
}

func (m *CodeMailer) SendVerificationCode(ctx context.Context, email, code string) error {
	if m == nil {
		return errors.New("mailer not configured")
	}
	if m.host == "" || m.port == "" || m.from == "" {
		return errors.New("mailer missing configuration")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	subject := "Your Trellis verification code"
	body := fmt.Sprintf("Your verification code is: %s\n\nThe code is valid for a short time. If you did not request it, ignore this email.", code)

	message := strings.Builder{}
	message.WriteString(fmt.Sprintf("From: %s\r\n", m.from))
	message.WriteString(fmt.Sprintf("To: %s\r\n", email))
	message.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	message.WriteString("Content-Transfer-Encoding: 7bit\r\n\r\n")
	message.WriteString(body)
	message.WriteString("\r\n")

	addr := net.JoinHostPort(m.host, m.port)
	var auth smtp.Auth
	if m.username != "" || m.password != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{email}, []byte(message.String()))
}

// LogMailer prints codes to stdout instead of sending mail. Development only.
type LogMailer struct{}

func (LogMailer) SendVerificationCode(_ context.Context, email, code string) error {
	fmt.Printf("verification code for %s: %s\n", email, code)
	return nil
}
