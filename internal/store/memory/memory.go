// Package memory is an in-process store used when no database is configured and in tests.
package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"

	"digytal.com/control/internal/account"
	"digytal.com/control/internal/auth"
	"digytal.com/control/internal/business"
	"digytal.com/control/internal/catalog"
	"digytal.com/control/internal/onboarding"
)

var (
	_ auth.UserStore   = (*Store)(nil)
	_ catalog.Store    = (*Store)(nil)
	_ account.Store    = (*Store)(nil)
	_ onboarding.Store = (*Store)(nil)
)

type state struct {
	users    map[string]auth.User
	logins   map[string]string
	orgs     map[string]onboarding.Organization
	taxIDs   map[string]string
	members  map[string][]string
	accounts map[string]account.Account
	apps     map[string]catalog.Application
	methods  map[string]account.PaymentMethod
}

func newState() *state {
	return &state{
		users:    map[string]auth.User{},
		logins:   map[string]string{},
		orgs:     map[string]onboarding.Organization{},
		taxIDs:   map[string]string{},
		members:  map[string][]string{},
		accounts: map[string]account.Account{},
		apps:     map[string]catalog.Application{},
		methods:  map[string]account.PaymentMethod{},
	}
}

func (s *state) clone() *state {
	c := &state{
		users:    maps.Clone(s.users),
		logins:   maps.Clone(s.logins),
		orgs:     maps.Clone(s.orgs),
		taxIDs:   maps.Clone(s.taxIDs),
		members:  make(map[string][]string, len(s.members)),
		accounts: maps.Clone(s.accounts),
		apps:     maps.Clone(s.apps),
		methods:  maps.Clone(s.methods),
	}
	for k, v := range s.members {
		c.members[k] = slices.Clone(v)
	}
	return c
}

// Store implements every store port with in-process concurrency safety.
type Store struct {
	mu sync.RWMutex
	st *state
}

// New returns an empty store.
func New() *Store {
	return &Store{st: newState()}
}

// Counts summarizes stored records; used by tests and the smoke tool.
type Counts struct {
	Users          int
	Organizations  int
	Accounts       int
	Applications   int
	PaymentMethods int
}

// Counts returns the number of stored records per entity.
func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{
		Users:          len(s.st.users),
		Organizations:  len(s.st.orgs),
		Accounts:       len(s.st.accounts),
		Applications:   len(s.st.apps),
		PaymentMethods: len(s.st.methods),
	}
}

// Seed inserts an organization and a user belonging to it. Development helper.
func (s *Store) Seed(org onboarding.Organization, u auth.User) error {
	return s.InTx(context.Background(), func(tx onboarding.Tx) error {
		ctx := context.Background()
		if err := tx.CreateOrganization(ctx, org); err != nil {
			return err
		}
		if err := tx.CreateUser(ctx, u); err != nil {
			return err
		}
		return tx.AddMembership(ctx, u.ID, org.ID)
	})
}

// --- users ---

// FindUserByLogin matches the normalized login.
func (s *Store) FindUserByLogin(_ context.Context, login string) (auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.st.logins[auth.NormalizeLogin(login)]
	if !ok {
		return auth.User{}, business.NotFound("user", login)
	}
	return s.st.users[id], nil
}

// FindUser looks a user up by id.
func (s *Store) FindUser(_ context.Context, id string) (auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.st.users[id]
	if !ok {
		return auth.User{}, business.NotFound("user", id)
	}
	return u, nil
}

// UpdateUser replaces an existing user.
func (s *Store) UpdateUser(_ context.Context, u auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.st.users[u.ID]
	if !ok {
		return business.NotFound("user", u.ID)
	}
	if prev.Login != u.Login {
		if _, taken := s.st.logins[u.Login]; taken {
			return business.Duplicate("user", u.Login)
		}
		delete(s.st.logins, prev.Login)
		s.st.logins[u.Login] = u.ID
	}
	s.st.users[u.ID] = u
	return nil
}

// UserOrganizations returns the user's organizations in membership order.
func (s *Store) UserOrganizations(_ context.Context, userID string) ([]auth.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []auth.Organization
	for _, orgID := range s.st.members[userID] {
		org := s.st.orgs[orgID]
		out = append(out, auth.Organization{ID: org.ID, Name: org.Name, TaxID: org.TaxID})
	}
	return out, nil
}

// --- applications ---

// ListApplications filters by kind and a case-insensitive name fragment.
func (s *Store) ListApplications(_ context.Context, orgID string, kind catalog.Kind, name string) ([]catalog.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(name)
	var out []catalog.Application
	for _, app := range s.st.apps {
		if app.OrganizationID != orgID || app.Kind != kind {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(app.Name), needle) {
			continue
		}
		out = append(out, app)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CreateApplication enforces (organization, kind, name) uniqueness.
func (s *Store) CreateApplication(_ context.Context, app catalog.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.createApplication(app)
}

// FindApplication looks an application up by id.
func (s *Store) FindApplication(_ context.Context, id string) (catalog.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.st.apps[id]
	if !ok {
		return catalog.Application{}, business.NotFound("application", id)
	}
	return app, nil
}

// UpdateApplication replaces an existing application.
func (s *Store) UpdateApplication(_ context.Context, app catalog.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.apps[app.ID]; !ok {
		return business.NotFound("application", app.ID)
	}
	if s.st.applicationNameTaken(app) {
		return business.Duplicate("application", app.Name)
	}
	s.st.apps[app.ID] = app
	return nil
}

// --- accounts ---

// FindAccount looks an account up by id.
func (s *Store) FindAccount(_ context.Context, id string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.st.accounts[id]
	if !ok {
		return account.Account{}, business.NotFound("account", id)
	}
	return acc, nil
}

// ListAccounts returns the accounts of orgID.
func (s *Store) ListAccounts(_ context.Context, orgID string) ([]account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []account.Account
	for _, acc := range s.st.accounts {
		if acc.OrganizationID == orgID {
			out = append(out, acc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateAccount stores a new account.
func (s *Store) CreateAccount(_ context.Context, acc account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.createAccount(acc)
}

// ListPaymentMethods returns the payment methods of accountID.
func (s *Store) ListPaymentMethods(_ context.Context, accountID string) ([]account.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []account.PaymentMethod
	for _, pm := range s.st.methods {
		if pm.AccountID == accountID {
			out = append(out, pm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PaymentMethodExists reports whether the (account, means, installments) tuple is taken.
func (s *Store) PaymentMethodExists(_ context.Context, accountID string, means account.Means, installments int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.paymentMethodExists(accountID, means, installments), nil
}

// CreatePaymentMethod stores a new payment method.
func (s *Store) CreatePaymentMethod(_ context.Context, pm account.PaymentMethod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.createPaymentMethod(pm)
}

// FindPaymentMethod looks a payment method up by id.
func (s *Store) FindPaymentMethod(_ context.Context, id string) (account.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pm, ok := s.st.methods[id]
	if !ok {
		return account.PaymentMethod{}, business.NotFound("payment method", id)
	}
	return pm, nil
}

// DeletePaymentMethod removes a payment method.
func (s *Store) DeletePaymentMethod(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.methods[id]; !ok {
		return business.NotFound("payment method", id)
	}
	delete(s.st.methods, id)
	return nil
}

// --- provisioning ---

// InTx holds the write lock for the whole of fn and restores the previous state if fn fails.
func (s *Store) InTx(_ context.Context, fn func(tx onboarding.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.st.clone()
	if err := fn(txView{st: s.st}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

type txView struct {
	st *state
}

func (t txView) OrganizationExists(_ context.Context, taxID string) (bool, error) {
	_, ok := t.st.taxIDs[taxID]
	return ok, nil
}

func (t txView) CreateOrganization(_ context.Context, org onboarding.Organization) error {
	if _, ok := t.st.taxIDs[org.TaxID]; ok {
		return business.Duplicate("organization", org.TaxID)
	}
	t.st.orgs[org.ID] = org
	t.st.taxIDs[org.TaxID] = org.ID
	return nil
}

func (t txView) CreateUser(_ context.Context, u auth.User) error {
	if _, ok := t.st.logins[u.Login]; ok {
		return business.Duplicate("user", u.Login)
	}
	t.st.users[u.ID] = u
	t.st.logins[u.Login] = u.ID
	return nil
}

func (t txView) AddMembership(_ context.Context, userID, orgID string) error {
	if _, ok := t.st.users[userID]; !ok {
		return business.NotFound("user", userID)
	}
	if _, ok := t.st.orgs[orgID]; !ok {
		return business.NotFound("organization", orgID)
	}
	if !slices.Contains(t.st.members[userID], orgID) {
		t.st.members[userID] = append(t.st.members[userID], orgID)
	}
	return nil
}

func (t txView) CreateAccount(_ context.Context, acc account.Account) error {
	return t.st.createAccount(acc)
}

func (t txView) CreateApplication(_ context.Context, app catalog.Application) error {
	return t.st.createApplication(app)
}

func (t txView) CreatePaymentMethod(_ context.Context, pm account.PaymentMethod) error {
	return t.st.createPaymentMethod(pm)
}

// --- shared write paths (caller holds the lock) ---

func (s *state) createApplication(app catalog.Application) error {
	if s.applicationNameTaken(app) {
		return business.Duplicate("application", app.Name)
	}
	s.apps[app.ID] = app
	return nil
}

func (s *state) applicationNameTaken(app catalog.Application) bool {
	for _, other := range s.apps {
		if other.ID != app.ID && other.OrganizationID == app.OrganizationID &&
			other.Kind == app.Kind && strings.EqualFold(other.Name, app.Name) {
			return true
		}
	}
	return false
}

func (s *state) createAccount(acc account.Account) error {
	if _, ok := s.orgs[acc.OrganizationID]; !ok {
		return business.NotFound("organization", acc.OrganizationID)
	}
	s.accounts[acc.ID] = acc
	return nil
}

func (s *state) paymentMethodExists(accountID string, means account.Means, installments int) bool {
	for _, pm := range s.methods {
		if pm.AccountID == accountID && pm.Means == means && pm.Installments == installments {
			return true
		}
	}
	return false
}

func (s *state) createPaymentMethod(pm account.PaymentMethod) error {
	if _, ok := s.accounts[pm.AccountID]; !ok {
		return business.NotFound("account", pm.AccountID)
	}
	if s.paymentMethodExists(pm.AccountID, pm.Means, pm.Installments) {
		return business.Duplicate("payment method", string(pm.Means))
	}
	s.methods[pm.ID] = pm
	return nil
}
