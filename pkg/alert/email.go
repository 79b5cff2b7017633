package alert

import (
	"context"
	"fmt"
	"mime"
	"net/mail"
	"net/smtp"
	"strings"
)

// EmailConfig holds SMTP delivery settings.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	To       []string
}

// Email sends the wrap-up as an HTML message over SMTP. The server must
// offer STARTTLS for PLAIN auth to proceed.
type Email struct {
	cfg      EmailConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmail creates a new SMTP notifier.
func NewEmail(cfg EmailConfig) *Email {
	return &Email{cfg: cfg, sendMail: smtp.SendMail}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Send(ctx context.Context, n *Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(e.cfg.To) == 0 {
		return fmt.Errorf("email: no recipients")
	}

	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)
	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	}

	if err := e.sendMail(addr, auth, e.cfg.From, e.cfg.To, e.message(n)); err != nil {
		return fmt.Errorf("email: failed to send: %w", err)
	}
	return nil
}

func (e *Email) message(n *Notification) []byte {
	from := (&mail.Address{Name: e.cfg.FromName, Address: e.cfg.From}).String()
	body := n.HTML
	if body == "" {
		body = "<p>" + n.Summary + "</p>"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", from)
	fmt.Fprintf(&sb, "To: %s\r\n", strings.Join(e.cfg.To, ", "))
	fmt.Fprintf(&sb, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", n.Title))
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	return []byte(sb.String())
}
