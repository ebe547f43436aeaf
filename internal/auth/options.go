package auth

import (
	"time"

	"github.com/sirupsen/logrus"

	"digytal.com/control/internal/mail"
	"digytal.com/control/internal/obs"
)

const minPasswordLength = 6

type settings struct {
	hasher   PasswordHasher
	now      func() time.Time
	logger   *logrus.Logger
	sender   mail.Sender
	resetURL string
}

// Option configures Authenticator and PasswordService.
type Option func(*settings)

// WithHasher replaces the bcrypt hasher.
func WithHasher(h PasswordHasher) Option {
	return func(s *settings) {
		if h != nil {
			s.hasher = h
		}
	}
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *settings) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithLogger overrides the shared logger.
func WithLogger(l *logrus.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSender sets the mail transport for reset and confirmation emails.
func WithSender(sender mail.Sender) Option {
	return func(s *settings) {
		if sender != nil {
			s.sender = sender
		}
	}
}

// WithResetURL sets the page that receives ?token=... in reset emails.
func WithResetURL(url string) Option {
	return func(s *settings) {
		if url != "" {
			s.resetURL = url
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		hasher:   BcryptHasher{},
		now:      time.Now,
		logger:   obs.Logger(),
		resetURL: "http://localhost:8080/password/define",
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.sender == nil {
		s.sender = mail.LogSender{Logger: s.logger}
	}
	return s
}
