package smtp

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// Mailer sends emails.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

// Settings addresses the SMTP relay.
type Settings struct {
	Host     string
	Port     string
	From     string
	Username string
	Password string
}

type mailer struct {
	s    Settings
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailer(s Settings) Mailer {
	return &mailer{s: s, send: smtp.SendMail}
}

func (m *mailer) SendEmail(to, subject, body string) error {
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return fmt.Errorf("invalid header value")
	}
	msg := strings.Join([]string{
		"From: " + m.s.From,
		"To: " + to,
		"Subject: " + subject,
		"Date: " + time.Now().UTC().Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")

	var auth smtp.Auth
	if m.s.Username != "" {
		auth = smtp.PlainAuth("", m.s.Username, m.s.Password, m.s.Host)
	}
	return m.send(m.s.Host+":"+m.s.Port, auth, m.s.From, []string{to}, []byte(msg))
}
