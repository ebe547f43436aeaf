package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"digytal.com/control/internal/business"
	"digytal.com/control/internal/obs"
)

// Authenticator validates credentials and issues sessions.
type Authenticator struct {
	users  UserStore
	tokens *TokenIssuer
	settings
}

// NewAuthenticator wires the credential store and token issuer.
func NewAuthenticator(users UserStore, tokens *TokenIssuer, opts ...Option) *Authenticator {
	return &Authenticator{users: users, tokens: tokens, settings: newSettings(opts)}
}

// Login checks the credentials, then the lock and expiry flags, and issues a session.
func (a *Authenticator) Login(ctx context.Context, req LoginRequest) (Session, error) {
	session, err := a.login(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = business.Code(err)
	}
	obs.LoginAttempt(outcome)
	a.logger.WithFields(logrus.Fields{
		"login":   NormalizeLogin(req.Login),
		"outcome": outcome,
	}).Info("login_attempt")
	return session, err
}

func (a *Authenticator) login(ctx context.Context, req LoginRequest) (Session, error) {
	login := NormalizeLogin(req.Login)
	if login == "" {
		return Session{}, business.RequiredField("login")
	}
	if strings.TrimSpace(req.Password) == "" {
		return Session{}, business.RequiredField("password")
	}
	user, err := a.users.FindUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, business.ErrNotFound) {
			return Session{}, fmt.Errorf("%w: %w", business.ErrInvalidLogin, err)
		}
		return Session{}, business.Unmapped(err)
	}
	if err := a.hasher.Verify(user.PasswordHash, req.Password); err != nil {
		return Session{}, business.ErrInvalidLogin
	}
	if user.Locked {
		return Session{}, fmt.Errorf("%w: %s", business.ErrUserLocked, user.Login)
	}
	if user.Expired {
		return Session{}, fmt.Errorf("%w: %s", business.ErrPasswordExpired, user.Login)
	}
	return a.issue(ctx, user)
}

func (a *Authenticator) issue(ctx context.Context, user User) (Session, error) {
	orgs, err := a.users.UserOrganizations(ctx, user.ID)
	if err != nil {
		return Session{}, business.Unmapped(err)
	}
	token, start, end, err := a.tokens.IssueSession(user, orgs)
	if err != nil {
		return Session{}, business.Unmapped(err)
	}
	return Session{
		Token:     token,
		StartedAt: start,
		ExpiresAt: end,
		User:      user.View(orgs),
	}, nil
}

// Authenticate verifies a bearer session token and rejects users locked since it was issued.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (Principal, error) {
	claims, err := a.tokens.ParseSession(token)
	if err != nil {
		return Principal{}, err
	}
	user, err := a.users.FindUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, business.ErrNotFound) {
			return Principal{}, fmt.Errorf("%w: unknown subject", business.ErrInvalidToken)
		}
		return Principal{}, business.Unmapped(err)
	}
	if user.Locked {
		return Principal{}, fmt.Errorf("%w: %s", business.ErrUserLocked, user.Login)
	}
	p := Principal{
		UserID:         claims.Subject,
		Login:          claims.Login,
		OrganizationID: claims.Organization,
		Organizations:  claims.Organizations,
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}
