package notifier

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type EmailNotifier struct {
	smtpHost string
	smtpPort string
	username string
	password string
	from     string
	to       []string
	tokens   oauth2.TokenSource
	send     sendFunc
	now      func() time.Time
}

type EmailConfig struct {
	SMTPHost string
	SMTPPort string
	Username string
	Password string
	From     string
	To       []string
	// Tokens switches authentication to XOAUTH2 when set.
	Tokens oauth2.TokenSource
}

func NewEmailNotifier(config EmailConfig) *EmailNotifier {
	username := config.Username
	if username == "" {
		username = config.From
	}
	to := config.To
	if len(to) == 0 && config.From != "" {
		to = []string{config.From}
	}

	return &EmailNotifier{
		smtpHost: config.SMTPHost,
		smtpPort: config.SMTPPort,
		username: username,
		password: config.Password,
		from:     config.From,
		to:       to,
		tokens:   config.Tokens,
		send:     smtp.SendMail,
		now:      time.Now,
	}
}

func (e *EmailNotifier) GetType() string {
	return "email"
}

func (e *EmailNotifier) Send(ctx context.Context, subject, htmlBody string) error {
	if len(e.to) == 0 {
		return fmt.Errorf("no email recipients configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	message := e.buildMessage(subject, htmlBody)
	addr := fmt.Sprintf("%s:%s", e.smtpHost, e.smtpPort)

	if err := e.send(addr, e.auth(), e.from, e.to, []byte(message)); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}

func (e *EmailNotifier) auth() smtp.Auth {
	if e.tokens != nil {
		return &xoauth2Auth{username: e.username, host: e.smtpHost, tokens: e.tokens}
	}
	return smtp.PlainAuth("", e.username, e.password, e.smtpHost)
}

func (e *EmailNotifier) buildMessage(subject, body string) string {
	headers := []struct{ key, value string }{
		{"From", fmt.Sprintf("Probables Watcher <%s>", e.from)},
		{"To", strings.Join(e.to, ", ")},
		{"Subject", mime.QEncoding.Encode("utf-8", subject)},
		{"Date", e.now().Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}

	var message strings.Builder
	for _, h := range headers {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", h.key, h.value))
	}
	message.WriteString("\r\n")
	message.WriteString(body)

	return message.String()
}
