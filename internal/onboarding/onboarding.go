// Package onboarding provisions a new tenant on first access.
package onboarding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"digytal.com/control/internal/account"
	"digytal.com/control/internal/auth"
	"digytal.com/control/internal/business"
	"digytal.com/control/internal/catalog"
	"digytal.com/control/internal/ids"
	"digytal.com/control/internal/obs"
)

// Organization is the tenant record.
type Organization struct {
	ID        string    `json:"id"`
	TaxID     string    `json:"tax_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Registration is the simplified sign-up form. Every field is optional: login and
// name default to the tax id digits, and without an email no welcome mail is sent.
type Registration struct {
	Name  string             `json:"name"`
	Email string             `json:"email"`
	Login string             `json:"login"`
	Kind  business.TaxIDKind `json:"kind"`
}

// Credential is returned after provisioning: the password-definition ticket plus the new ids.
type Credential struct {
	auth.ResetTicket
	OrganizationID string `json:"organization_id"`
	AccountID      string `json:"account_id"`
}

// Tx is the set of writes provisioning performs inside one transaction.
type Tx interface {
	OrganizationExists(ctx context.Context, taxID string) (bool, error)
	CreateOrganization(ctx context.Context, org Organization) error
	CreateUser(ctx context.Context, u auth.User) error
	AddMembership(ctx context.Context, userID, orgID string) error
	CreateAccount(ctx context.Context, acc account.Account) error
	CreateApplication(ctx context.Context, app catalog.Application) error
	CreatePaymentMethod(ctx context.Context, pm account.PaymentMethod) error
}

// Store runs fn atomically: any error rolls back every write made through tx.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Welcomer issues the password-definition ticket and mails it.
type Welcomer interface {
	IssueWelcome(ctx context.Context, user auth.User) (auth.ResetTicket, error)
}

// Service implements first access.
type Service struct {
	store    Store
	welcomer Welcomer
	hasher   auth.PasswordHasher
	newID    ids.Generator
	now      func() time.Time
	logger   *logrus.Logger
}

// Option configures Service.
type Option func(*Service)

// WithHasher replaces the hasher used for the placeholder secret.
func WithHasher(h auth.PasswordHasher) Option {
	return func(s *Service) {
		if h != nil {
			s.hasher = h
		}
	}
}

// WithIDGenerator overrides ULID generation.
func WithIDGenerator(gen ids.Generator) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService builds the provisioning workflow.
func NewService(store Store, welcomer Welcomer, opts ...Option) *Service {
	s := &Service{
		store:    store,
		welcomer: welcomer,
		hasher:   auth.BcryptHasher{},
		newID:    ids.New,
		now:      time.Now,
		logger:   obs.Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FirstAccess creates the organization, its first user, a default account with
// a cash payment method and the default revenue/expense categories, then sends
// the user a link to define a password.
func (s *Service) FirstAccess(ctx context.Context, taxID string, reg Registration) (Credential, error) {
	cred, err := s.firstAccess(ctx, taxID, reg)
	result := "ok"
	if err != nil {
		result = business.Code(err)
	}
	obs.Provisioned(result)
	s.logger.WithFields(logrus.Fields{
		"organization_id": cred.OrganizationID,
		"result":          result,
	}).Info("first_access")
	return cred, err
}

func (s *Service) firstAccess(ctx context.Context, taxID string, reg Registration) (Credential, error) {
	digits, kind, err := business.NormalizeTaxID(taxID)
	if err != nil {
		return Credential{}, err
	}
	name := strings.TrimSpace(reg.Name)
	if name == "" {
		name = digits
	}
	email := strings.ToLower(strings.TrimSpace(reg.Email))
	if reg.Kind != "" && reg.Kind != kind {
		return Credential{}, fmt.Errorf("%w: %s tax id given for %s registration", business.ErrIncompatible, kind, reg.Kind)
	}
	login := auth.NormalizeLogin(reg.Login)
	if login == "" {
		login = digits
	}
	hash, err := s.hasher.Hash(auth.RandomSecret())
	if err != nil {
		return Credential{}, business.Unmapped(err)
	}

	now := s.now().UTC()
	org := Organization{ID: s.newID(), TaxID: digits, Name: name, Email: email, CreatedAt: now}
	user := auth.User{
		ID:           s.newID(),
		Login:        login,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Expired:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	acc := account.DefaultAccount(org.ID, kind == business.KindCompany, s.newID, now)
	pm := account.DefaultPaymentMethod(acc, s.newID, now)
	apps := catalog.Defaults(org.ID, s.newID, now)

	err = s.store.InTx(ctx, func(tx Tx) error {
		exists, err := tx.OrganizationExists(ctx, digits)
		if err != nil {
			return err
		}
		if exists {
			return business.Duplicate("organization", digits)
		}
		if err := tx.CreateOrganization(ctx, org); err != nil {
			return err
		}
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		if err := tx.AddMembership(ctx, user.ID, org.ID); err != nil {
			return err
		}
		if err := tx.CreateAccount(ctx, acc); err != nil {
			return err
		}
		for _, app := range apps {
			if err := tx.CreateApplication(ctx, app); err != nil {
				return err
			}
		}
		return tx.CreatePaymentMethod(ctx, pm)
	})
	if err != nil {
		return Credential{}, business.Unmapped(err)
	}

	ticket, err := s.welcomer.IssueWelcome(ctx, user)
	if err != nil {
		return Credential{}, business.Unmapped(err)
	}
	return Credential{ResetTicket: ticket, OrganizationID: org.ID, AccountID: acc.ID}, nil
}
