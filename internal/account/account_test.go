package account

import (
	"context"
	"errors"
	"testing"

	"digytal.com/control/internal/business"
	"digytal.com/control/internal/ids"
)

type stubStore struct {
	accounts map[string]Account
	methods  map[string]PaymentMethod
	deletes  []string
	creates  []PaymentMethod
	existsFn func(accountID string, means Means, installments int) (bool, error)
}

func newStub() *stubStore {
	return &stubStore{
		accounts: map[string]Account{"acc-1": {ID: "acc-1", OrganizationID: "org-1", Name: "Carteira", Kind: KindPersonal}},
		methods:  map[string]PaymentMethod{},
	}
}

func (s *stubStore) FindAccount(_ context.Context, id string) (Account, error) {
	acc, ok := s.accounts[id]
	if !ok {
		return Account{}, business.NotFound("account", id)
	}
	return acc, nil
}

func (s *stubStore) ListAccounts(_ context.Context, orgID string) ([]Account, error) {
	var out []Account
	for _, a := range s.accounts {
		if a.OrganizationID == orgID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubStore) CreateAccount(_ context.Context, acc Account) error {
	s.accounts[acc.ID] = acc
	return nil
}

func (s *stubStore) ListPaymentMethods(_ context.Context, accountID string) ([]PaymentMethod, error) {
	var out []PaymentMethod
	for _, pm := range s.methods {
		if pm.AccountID == accountID {
			out = append(out, pm)
		}
	}
	return out, nil
}

func (s *stubStore) PaymentMethodExists(_ context.Context, accountID string, means Means, installments int) (bool, error) {
	if s.existsFn != nil {
		return s.existsFn(accountID, means, installments)
	}
	for _, pm := range s.methods {
		if pm.AccountID == accountID && pm.Means == means && pm.Installments == installments {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubStore) CreatePaymentMethod(_ context.Context, pm PaymentMethod) error {
	s.creates = append(s.creates, pm)
	s.methods[pm.ID] = pm
	return nil
}

func (s *stubStore) FindPaymentMethod(_ context.Context, id string) (PaymentMethod, error) {
	pm, ok := s.methods[id]
	if !ok {
		return PaymentMethod{}, business.NotFound("payment method", id)
	}
	return pm, nil
}

func (s *stubStore) DeletePaymentMethod(_ context.Context, id string) error {
	s.deletes = append(s.deletes, id)
	delete(s.methods, id)
	return nil
}

func TestGetAccount(t *testing.T) {
	svc := NewService(newStub())
	acc, err := svc.GetAccount(context.Background(), "org-1", "acc-1")
	if err != nil || acc.Name != "Carteira" {
		t.Fatalf("GetAccount: %+v %v", acc, err)
	}
	if _, err := svc.GetAccount(context.Background(), "org-1", "acc-9"); !errors.Is(err, business.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.GetAccount(context.Background(), "org-2", "acc-1"); !errors.Is(err, business.ErrNotFound) {
		t.Fatalf("foreign org should look missing, got %v", err)
	}
}

func TestAddPaymentMethod(t *testing.T) {
	store := newStub()
	svc := NewService(store, WithIDGenerator(ids.Sequence("pm")))

	id, err := svc.AddPaymentMethod(context.Background(), "org-1", "acc-1", PaymentMethodRequest{
		Description: "Cartão 3x", Means: "CREDIT_CARD", Installments: 3, FeeRate: 2.5,
	})
	if err != nil {
		t.Fatalf("AddPaymentMethod: %v", err)
	}
	if id != "pm-1" || len(store.creates) != 1 {
		t.Fatalf("unexpected create: %s %+v", id, store.creates)
	}
	got := store.creates[0]
	if got.Means != MeansCreditCard || got.Installments != 3 || got.OrganizationID != "org-1" {
		t.Fatalf("unexpected payment method: %+v", got)
	}
}

func TestAddPaymentMethodDefaultsToCash(t *testing.T) {
	store := newStub()
	svc := NewService(store, WithIDGenerator(ids.Sequence("pm")))

	id, err := svc.AddPaymentMethod(context.Background(), "org-1", "acc-1", PaymentMethodRequest{
		Description: "Forma Pagamento Teste", FeeRate: 2.0,
	})
	if err != nil {
		t.Fatalf("AddPaymentMethod: %v", err)
	}
	if id == "" || len(store.creates) != 1 {
		t.Fatalf("expected one save, got %s %+v", id, store.creates)
	}
	if got := store.creates[0]; got.Means != MeansCash || got.Installments != 1 || got.FeeRate != 2.0 {
		t.Fatalf("unexpected payment method: %+v", got)
	}
}

func TestAddPaymentMethodDuplicateTuple(t *testing.T) {
	store := newStub()
	store.existsFn = func(string, Means, int) (bool, error) { return true, nil }
	svc := NewService(store)

	_, err := svc.AddPaymentMethod(context.Background(), "org-1", "acc-1", PaymentMethodRequest{Description: "Pix", Means: MeansPix})
	if !errors.Is(err, business.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if len(store.creates) != 0 {
		t.Fatalf("duplicate must not persist")
	}
}

func TestAddPaymentMethodMissingAccount(t *testing.T) {
	svc := NewService(newStub())
	_, err := svc.AddPaymentMethod(context.Background(), "org-1", "acc-404", PaymentMethodRequest{Description: "Pix", Means: MeansPix})
	if !errors.Is(err, business.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAddPaymentMethodValidation(t *testing.T) {
	svc := NewService(newStub())
	cases := []struct {
		req  PaymentMethodRequest
		want error
	}{
		{PaymentMethodRequest{Means: MeansPix}, business.ErrRequiredField},
		{PaymentMethodRequest{Description: "x", Means: "barter"}, business.ErrIncompatible},
		{PaymentMethodRequest{Description: "x", Means: MeansCash, Installments: 2}, business.ErrIncompatible},
		{PaymentMethodRequest{Description: "x", Means: MeansPix, Installments: -1}, business.ErrIncompatible},
		{PaymentMethodRequest{Description: "x", Means: MeansPix, FeeRate: -1}, business.ErrIncompatible},
	}
	for _, tc := range cases {
		if _, err := svc.AddPaymentMethod(context.Background(), "org-1", "acc-1", tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("%+v: expected %v, got %v", tc.req, tc.want, err)
		}
	}
}

func TestRemovePaymentMethod(t *testing.T) {
	store := newStub()
	store.methods["pm-1"] = PaymentMethod{ID: "pm-1", AccountID: "acc-1", OrganizationID: "org-1"}
	svc := NewService(store)

	if err := svc.RemovePaymentMethod(context.Background(), "org-1", "pm-404"); !errors.Is(err, business.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(store.deletes) != 0 {
		t.Fatalf("missing id must not delete")
	}
	if err := svc.RemovePaymentMethod(context.Background(), "org-1", "pm-1"); err != nil {
		t.Fatalf("RemovePaymentMethod: %v", err)
	}
	if len(store.deletes) != 1 || store.deletes[0] != "pm-1" {
		t.Fatalf("expected exactly one delete, got %v", store.deletes)
	}
}

func TestCreateAndListAccounts(t *testing.T) {
	store := newStub()
	svc := NewService(store, WithIDGenerator(ids.Sequence("acc-new")))

	acc, err := svc.CreateAccount(context.Background(), "org-1", AccountRequest{Name: "Banco"})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if acc.Kind != KindCorporate || acc.Balance != 0 {
		t.Fatalf("unexpected account: %+v", acc)
	}
	if _, err := svc.CreateAccount(context.Background(), "org-1", AccountRequest{Name: "x", Kind: "savings"}); !errors.Is(err, business.ErrIncompatible) {
		t.Fatalf("expected incompatible, got %v", err)
	}
	accs, err := svc.ListAccounts(context.Background(), "org-1")
	if err != nil || len(accs) != 2 {
		t.Fatalf("ListAccounts: %v %v", accs, err)
	}
	pms, err := svc.ListPaymentMethods(context.Background(), "org-1", "acc-1")
	if err != nil || pms == nil {
		t.Fatalf("ListPaymentMethods: %v %v", pms, err)
	}
}
