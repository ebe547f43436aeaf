// Package mail renders and delivers the transactional emails of the auth workflows.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Message is a rendered plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var errNoRecipient = errors.New("mail: recipient is required")

// SMTPSender delivers through an SMTP relay with PLAIN auth when credentials are set.
type SMTPSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender builds a sender for host:port.
func NewSMTPSender(host string, port int, user, password, from string) *SMTPSender {
	return &SMTPSender{Host: host, Port: port, User: user, Password: password, From: from, send: smtp.SendMail}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return errNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var auth smtp.Auth
	if s.User != "" {
		auth = smtp.PlainAuth("", s.User, s.Password, s.Host)
	}
	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	if err := s.send(addr, auth, s.From, []string{msg.To}, s.compose(msg)); err != nil {
		return fmt.Errorf("mail: send to %s: %w", msg.To, err)
	}
	return nil
}

func (s *SMTPSender) compose(msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + s.From + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// LogSender writes messages to the log instead of delivering them. Used when no relay is configured.
type LogSender struct {
	Logger *logrus.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return errNoRecipient
	}
	s.Logger.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("mail_suppressed")
	return nil
}

// Outbox keeps sent messages in memory. Tests and the smoke tool read it back.
type Outbox struct {
	mu   sync.Mutex
	sent []Message
	Err  error
}

func (o *Outbox) Send(_ context.Context, msg Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.sent = append(o.sent, msg)
	return nil
}

// Sent returns a copy of the delivered messages.
func (o *Outbox) Sent() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Message, len(o.sent))
	copy(out, o.sent)
	return out
}
