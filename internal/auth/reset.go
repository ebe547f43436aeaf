package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"digytal.com/control/internal/business"
	"digytal.com/control/internal/mail"
)

// PasswordService runs the reset, definition and change workflows.
type PasswordService struct {
	users  UserStore
	tokens *TokenIssuer
	authn  *Authenticator
	settings
}

// NewPasswordService builds the workflow; authn re-authenticates after every change.
func NewPasswordService(users UserStore, tokens *TokenIssuer, authn *Authenticator, opts ...Option) *PasswordService {
	return &PasswordService{users: users, tokens: tokens, authn: authn, settings: newSettings(opts)}
}

// RequestResetByLogin emails a reset link. The user record is not modified:
// the signed token carries everything the confirmation step needs.
func (s *PasswordService) RequestResetByLogin(ctx context.Context, login string) (ResetTicket, error) {
	login = NormalizeLogin(login)
	if login == "" {
		return ResetTicket{}, business.RequiredField("login")
	}
	user, err := s.users.FindUserByLogin(ctx, login)
	if err != nil {
		return ResetTicket{}, business.Unmapped(err)
	}
	ticket, _, err := s.ticket(user)
	if err != nil {
		return ResetTicket{}, err
	}
	s.notify(ctx, user, mail.PasswordReset, ticket)
	return ticket, nil
}

// RequestResetByID is the administrative reset. The caller must share orgID
// with the target. The record is stamped with the token id and issue time, the
// stored secret is replaced and the password marked expired. While the stamp is
// live, tokens issued before it are rejected.
func (s *PasswordService) RequestResetByID(ctx context.Context, orgID, userID string) (ResetTicket, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ResetTicket{}, business.RequiredField("user id")
	}
	user, err := s.users.FindUser(ctx, userID)
	if err != nil {
		return ResetTicket{}, business.Unmapped(err)
	}
	if err := s.requireMember(ctx, orgID, user); err != nil {
		return ResetTicket{}, err
	}
	requestedAt := s.now().UTC()
	ticket, jti, err := s.ticket(user)
	if err != nil {
		return ResetTicket{}, err
	}
	hash, err := s.hasher.Hash(RandomSecret())
	if err != nil {
		return ResetTicket{}, business.Unmapped(err)
	}
	user.PasswordHash = hash
	user.Expired = true
	user.ResetTokenID = jti
	user.ResetRequestedAt = requestedAt
	user.ResetExpiresAt = ticket.ExpiresAt
	user.UpdatedAt = requestedAt
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return ResetTicket{}, business.Unmapped(err)
	}
	s.notify(ctx, user, mail.PasswordReset, ticket)
	return ticket, nil
}

// IssueWelcome sends a freshly provisioned user the link to define a password.
func (s *PasswordService) IssueWelcome(ctx context.Context, user User) (ResetTicket, error) {
	ticket, _, err := s.ticket(user)
	if err != nil {
		return ResetTicket{}, err
	}
	s.notify(ctx, user, mail.Welcome, ticket)
	return ticket, nil
}

// ConfirmReset validates a reset token, stores the new password and returns a fresh session.
func (s *PasswordService) ConfirmReset(ctx context.Context, req ResetConfirmation) (Session, error) {
	claims, err := s.tokens.ParseReset(req.Token)
	if err != nil {
		return Session{}, err
	}
	user, err := s.users.FindUser(ctx, claims.Subject)
	if err != nil {
		return Session{}, business.Unmapped(err)
	}
	if claims.ID != "" && claims.ID == user.UsedResetTokenID {
		return Session{}, fmt.Errorf("%w: token already used", business.ErrInvalidToken)
	}
	if s.superseded(user, claims) {
		return Session{}, fmt.Errorf("%w: superseded by a newer reset", business.ErrInvalidToken)
	}
	if issuedBefore(claims, user.PasswordChangedAt) {
		return Session{}, fmt.Errorf("%w: password changed after token was issued", business.ErrInvalidToken)
	}
	if err := validateNewPassword(req.NewPassword, req.Confirmation); err != nil {
		return Session{}, err
	}
	return s.store(ctx, user, req.NewPassword, claims.ID)
}

// superseded reports whether a live administrative stamp was issued after the token.
func (s *PasswordService) superseded(user User, claims *Claims) bool {
	if user.ResetTokenID == "" || user.ResetTokenID == claims.ID || !s.now().Before(user.ResetExpiresAt) {
		return false
	}
	return issuedBefore(claims, user.ResetRequestedAt)
}

// issuedBefore compares at second precision, the resolution of the iat claim.
func issuedBefore(claims *Claims, t time.Time) bool {
	if claims.IssuedAt == nil || t.IsZero() {
		return false
	}
	return claims.IssuedAt.Time.Before(t.Truncate(time.Second))
}

// ChangePassword replaces the password of an authenticated user who proves the current one.
func (s *PasswordService) ChangePassword(ctx context.Context, req PasswordChange) (Session, error) {
	if req.ExpiresAt.IsZero() || s.now().After(req.ExpiresAt) {
		return Session{}, fmt.Errorf("%w: session expired", business.ErrInvalidToken)
	}
	if strings.TrimSpace(req.UserID) == "" {
		return Session{}, business.RequiredField("user id")
	}
	if req.CurrentPassword == "" {
		return Session{}, business.RequiredField("current password")
	}
	user, err := s.users.FindUser(ctx, req.UserID)
	if err != nil {
		return Session{}, business.Unmapped(err)
	}
	if err := s.hasher.Verify(user.PasswordHash, req.CurrentPassword); err != nil {
		return Session{}, business.ErrInvalidLogin
	}
	if err := validateNewPassword(req.NewPassword, req.Confirmation); err != nil {
		return Session{}, err
	}
	return s.store(ctx, user, req.NewPassword, "")
}

// store persists a new password. usedTokenID, when set, is the reset token being consumed.
func (s *PasswordService) store(ctx context.Context, user User, password, usedTokenID string) (Session, error) {
	if user.Locked {
		return Session{}, fmt.Errorf("%w: %s", business.ErrUserLocked, user.Login)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return Session{}, business.Unmapped(err)
	}
	now := s.now().UTC()
	user.PasswordHash = hash
	user.Expired = false
	user.ResetTokenID = ""
	user.ResetRequestedAt = time.Time{}
	user.ResetExpiresAt = time.Time{}
	if usedTokenID != "" {
		user.UsedResetTokenID = usedTokenID
	}
	user.PasswordChangedAt = now
	user.UpdatedAt = now
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return Session{}, business.Unmapped(err)
	}
	if user.Email != "" {
		msg, err := mail.PasswordChanged(user.Email, mail.ChangedData{Name: user.Name, Login: user.Login, ChangedAt: now})
		if err == nil {
			err = s.sender.Send(ctx, msg)
		}
		if err != nil {
			s.logger.WithError(err).WithField("user_id", user.ID).Warn("password_changed_mail_failed")
		}
	}
	return s.authn.Login(ctx, LoginRequest{Login: user.Login, Password: password})
}

func (s *PasswordService) ticket(user User) (ResetTicket, string, error) {
	token, jti, exp, err := s.tokens.IssueReset(user.ID)
	if err != nil {
		return ResetTicket{}, "", business.Unmapped(err)
	}
	return ResetTicket{
		UserID:    user.ID,
		Name:      user.Name,
		Login:     user.Login,
		Token:     token,
		ExpiresAt: exp,
	}, jti, nil
}

// notify renders and sends a reset-style email. Delivery failures are logged, not returned.
func (s *PasswordService) notify(ctx context.Context, user User, render func(string, mail.ResetData) (mail.Message, error), ticket ResetTicket) {
	if strings.TrimSpace(user.Email) == "" {
		s.logger.WithField("user_id", user.ID).Warn("reset_mail_skipped_no_email")
		return
	}
	link := s.resetURL + "?token=" + url.QueryEscape(ticket.Token)
	if strings.Contains(s.resetURL, "?") {
		link = s.resetURL + "&token=" + url.QueryEscape(ticket.Token)
	}
	msg, err := render(user.Email, mail.ResetData{
		Name:      user.Name,
		Login:     user.Login,
		Link:      link,
		ExpiresAt: ticket.ExpiresAt,
	})
	if err == nil {
		err = s.sender.Send(ctx, msg)
	}
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id": user.ID,
			"subject": msg.Subject,
		}).Warn("reset_mail_failed")
	}
}

func (s *PasswordService) requireMember(ctx context.Context, orgID string, user User) error {
	orgs, err := s.users.UserOrganizations(ctx, user.ID)
	if err != nil {
		return business.Unmapped(err)
	}
	for _, org := range orgs {
		if org.ID == orgID {
			return nil
		}
	}
	return business.NotFound("user", user.ID)
}

func validateNewPassword(password, confirmation string) error {
	if strings.TrimSpace(password) == "" {
		return business.RequiredField("new password")
	}
	if strings.TrimSpace(confirmation) == "" {
		return business.RequiredField("confirmation")
	}
	if len([]rune(password)) < minPasswordLength {
		return business.MinimumLength("new password", minPasswordLength)
	}
	if password != confirmation {
		return business.ErrPasswordDefinition
	}
	return nil
}
