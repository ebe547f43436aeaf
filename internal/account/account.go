// Package account manages financial accounts and the payment methods attached to them.
package account

import (
	"context"
	"fmt"
	"strings"
	"time"

	"digytal.com/control/internal/business"
	"digytal.com/control/internal/ids"
)

// Kind distinguishes personal wallets from company cash accounts.
type Kind string

const (
	KindPersonal  Kind = "personal"
	KindCorporate Kind = "corporate"
)

// Means is how a payment is settled.
type Means string

const (
	MeansCash       Means = "cash"
	MeansPix        Means = "pix"
	MeansDebitCard  Means = "debit_card"
	MeansCreditCard Means = "credit_card"
	MeansBankSlip   Means = "bank_slip"
	MeansTransfer   Means = "transfer"
)

var knownMeans = map[Means]bool{
	MeansCash: true, MeansPix: true, MeansDebitCard: true,
	MeansCreditCard: true, MeansBankSlip: true, MeansTransfer: true,
}

// Account holds a balance in minor units (centavos).
type Account struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Kind           Kind      `json:"kind"`
	Balance        int64     `json:"balance"`
	CreatedAt      time.Time `json:"created_at"`
}

// AccountRequest is the client payload for account creation.
type AccountRequest struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// PaymentMethod is unique per (account, means, installments).
type PaymentMethod struct {
	ID             string    `json:"id"`
	AccountID      string    `json:"account_id"`
	OrganizationID string    `json:"organization_id"`
	Description    string    `json:"description"`
	Means          Means     `json:"means"`
	Installments   int       `json:"installments"`
	FeeRate        float64   `json:"fee_rate"`
	CreatedAt      time.Time `json:"created_at"`
}

// PaymentMethodRequest is the client payload for payment-method creation.
// A blank Means is cash and zero Installments means a single installment.
type PaymentMethodRequest struct {
	Description  string  `json:"description"`
	Means        Means   `json:"means"`
	Installments int     `json:"installments"`
	FeeRate      float64 `json:"fee_rate"`
}

// Store persists accounts and payment methods. Finds return business.ErrNotFound
// for unknown ids.
type Store interface {
	FindAccount(ctx context.Context, id string) (Account, error)
	ListAccounts(ctx context.Context, orgID string) ([]Account, error)
	CreateAccount(ctx context.Context, acc Account) error
	ListPaymentMethods(ctx context.Context, accountID string) ([]PaymentMethod, error)
	PaymentMethodExists(ctx context.Context, accountID string, means Means, installments int) (bool, error)
	CreatePaymentMethod(ctx context.Context, pm PaymentMethod) error
	FindPaymentMethod(ctx context.Context, id string) (PaymentMethod, error)
	DeletePaymentMethod(ctx context.Context, id string) error
}

// Service implements account management.
type Service struct {
	store Store
	newID ids.Generator
	now   func() time.Time
}

// Option configures Service.
type Option func(*Service)

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

// NewService builds the service over store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, newID: ids.New, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetAccount returns an account of orgID.
func (s *Service) GetAccount(ctx context.Context, orgID, id string) (Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Account{}, business.RequiredField("account id")
	}
	acc, err := s.store.FindAccount(ctx, id)
	if err != nil {
		return Account{}, business.Unmapped(err)
	}
	if acc.OrganizationID != orgID {
		return Account{}, business.NotFound("account", id)
	}
	return acc, nil
}

// ListAccounts returns every account of orgID.
func (s *Service) ListAccounts(ctx context.Context, orgID string) ([]Account, error) {
	if strings.TrimSpace(orgID) == "" {
		return nil, business.RequiredField("organization")
	}
	accs, err := s.store.ListAccounts(ctx, orgID)
	if err != nil {
		return nil, business.Unmapped(err)
	}
	if accs == nil {
		accs = []Account{}
	}
	return accs, nil
}

// CreateAccount opens a zero-balance account.
func (s *Service) CreateAccount(ctx context.Context, orgID string, req AccountRequest) (Account, error) {
	if strings.TrimSpace(orgID) == "" {
		return Account{}, business.RequiredField("organization")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Account{}, business.RequiredField("name")
	}
	kind := req.Kind
	if kind == "" {
		kind = KindCorporate
	}
	if kind != KindPersonal && kind != KindCorporate {
		return Account{}, fmt.Errorf("%w: unknown account kind %q", business.ErrIncompatible, kind)
	}
	acc := Account{ID: s.newID(), OrganizationID: orgID, Name: name, Kind: kind, CreatedAt: s.now().UTC()}
	if err := s.store.CreateAccount(ctx, acc); err != nil {
		return Account{}, business.Unmapped(err)
	}
	return acc, nil
}

// ListPaymentMethods returns the payment methods of an existing account.
func (s *Service) ListPaymentMethods(ctx context.Context, orgID, accountID string) ([]PaymentMethod, error) {
	if _, err := s.GetAccount(ctx, orgID, accountID); err != nil {
		return nil, err
	}
	pms, err := s.store.ListPaymentMethods(ctx, accountID)
	if err != nil {
		return nil, business.Unmapped(err)
	}
	if pms == nil {
		pms = []PaymentMethod{}
	}
	return pms, nil
}

// AddPaymentMethod attaches a payment method to an account and returns its id.
func (s *Service) AddPaymentMethod(ctx context.Context, orgID, accountID string, req PaymentMethodRequest) (string, error) {
	acc, err := s.GetAccount(ctx, orgID, accountID)
	if err != nil {
		return "", err
	}
	pm, err := s.buildPaymentMethod(acc, req)
	if err != nil {
		return "", err
	}
	exists, err := s.store.PaymentMethodExists(ctx, acc.ID, pm.Means, pm.Installments)
	if err != nil {
		return "", business.Unmapped(err)
	}
	if exists {
		return "", business.Duplicate("payment method", fmt.Sprintf("%s/%dx", pm.Means, pm.Installments))
	}
	if err := s.store.CreatePaymentMethod(ctx, pm); err != nil {
		return "", business.Unmapped(err)
	}
	return pm.ID, nil
}

// RemovePaymentMethod deletes a payment method of orgID.
func (s *Service) RemovePaymentMethod(ctx context.Context, orgID, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return business.RequiredField("payment method id")
	}
	pm, err := s.store.FindPaymentMethod(ctx, id)
	if err != nil {
		return business.Unmapped(err)
	}
	if pm.OrganizationID != orgID {
		return business.NotFound("payment method", id)
	}
	return business.Unmapped(s.store.DeletePaymentMethod(ctx, id))
}

func (s *Service) buildPaymentMethod(acc Account, req PaymentMethodRequest) (PaymentMethod, error) {
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		return PaymentMethod{}, business.RequiredField("description")
	}
	means := Means(strings.ToLower(strings.TrimSpace(string(req.Means))))
	if means == "" {
		means = MeansCash
	}
	if !knownMeans[means] {
		return PaymentMethod{}, fmt.Errorf("%w: unknown means %q", business.ErrIncompatible, means)
	}
	installments := req.Installments
	if installments == 0 {
		installments = 1
	}
	if installments < 1 {
		return PaymentMethod{}, fmt.Errorf("%w: installments must be at least 1", business.ErrIncompatible)
	}
	if means == MeansCash && installments > 1 {
		return PaymentMethod{}, fmt.Errorf("%w: cash cannot be split in installments", business.ErrIncompatible)
	}
	if req.FeeRate < 0 {
		return PaymentMethod{}, fmt.Errorf("%w: fee rate cannot be negative", business.ErrIncompatible)
	}
	return PaymentMethod{
		ID:             s.newID(),
		AccountID:      acc.ID,
		OrganizationID: acc.OrganizationID,
		Description:    desc,
		Means:          means,
		Installments:   installments,
		FeeRate:        req.FeeRate,
		CreatedAt:      s.now().UTC(),
	}, nil
}

// DefaultAccount is the account opened at first access: a personal wallet for
// individuals, a company cash account otherwise.
func DefaultAccount(orgID string, company bool, newID ids.Generator, now time.Time) Account {
	acc := Account{ID: newID(), OrganizationID: orgID, Name: "Carteira", Kind: KindPersonal, CreatedAt: now}
	if company {
		acc.Name = "Caixa Empresa"
		acc.Kind = KindCorporate
	}
	return acc
}

// DefaultPaymentMethod is the cash method seeded under a new account.
func DefaultPaymentMethod(acc Account, newID ids.Generator, now time.Time) PaymentMethod {
	return PaymentMethod{
		ID:             newID(),
		AccountID:      acc.ID,
		OrganizationID: acc.OrganizationID,
		Description:    "Dinheiro",
		Means:          MeansCash,
		Installments:   1,
		CreatedAt:      now,
	}
}
