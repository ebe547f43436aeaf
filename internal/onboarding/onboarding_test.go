package onboarding_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"digytal.com/control/internal/account"
	"digytal.com/control/internal/auth"
	"digytal.com/control/internal/business"
	"digytal.com/control/internal/catalog"
	"digytal.com/control/internal/mail"
	"digytal.com/control/internal/onboarding"
	"digytal.com/control/internal/store/memory"
)

var hasher = auth.BcryptHasher{Cost: bcrypt.MinCost}

type harness struct {
	store  *memory.Store
	outbox *mail.Outbox
	pw     *auth.PasswordService
	authn  *auth.Authenticator
	svc    *onboarding.Service
}

func newHarness(t *testing.T, store onboarding.Store, mem *memory.Store) harness {
	t.Helper()
	tokens, err := auth.NewTokenIssuer("test-secret", auth.WithSessionTTL(time.Hour))
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	outbox := &mail.Outbox{}
	authn := auth.NewAuthenticator(mem, tokens, auth.WithHasher(hasher))
	pw := auth.NewPasswordService(mem, tokens, authn, auth.WithHasher(hasher), auth.WithSender(outbox))
	return harness{
		store:  mem,
		outbox: outbox,
		pw:     pw,
		authn:  authn,
		svc:    onboarding.NewService(store, pw, onboarding.WithHasher(hasher)),
	}
}

func TestFirstAccessProvisionsTenant(t *testing.T) {
	mem := memory.New()
	h := newHarness(t, mem, mem)
	ctx := context.Background()

	cred, err := h.svc.FirstAccess(ctx, "12345678900", onboarding.Registration{Name: "Maria Silva", Email: "Maria@Example.com"})
	if err != nil {
		t.Fatalf("FirstAccess: %v", err)
	}
	counts := mem.Counts()
	if counts.Organizations != 1 || counts.Accounts != 1 || counts.Applications != 2 || counts.PaymentMethods != 1 || counts.Users != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
	if cred.Token == "" || cred.Login != "12345678900" || cred.OrganizationID == "" {
		t.Fatalf("unexpected credential: %+v", cred)
	}

	revenues, _ := catalog.NewService(mem).ListRevenues(ctx, cred.OrganizationID, "")
	expenses, _ := catalog.NewService(mem).ListExpenses(ctx, cred.OrganizationID, "")
	if len(revenues) != 1 || len(expenses) != 1 {
		t.Fatalf("expected one revenue and one expense, got %v %v", revenues, expenses)
	}
	acc, err := account.NewService(mem).GetAccount(ctx, cred.OrganizationID, cred.AccountID)
	if err != nil || acc.Kind != account.KindPersonal {
		t.Fatalf("expected personal account, got %+v %v", acc, err)
	}
	if sent := h.outbox.Sent(); len(sent) != 1 || sent[0].To != "maria@example.com" {
		t.Fatalf("expected welcome mail, got %+v", sent)
	}

	// The user cannot log in before defining a password.
	if _, err := h.authn.Login(ctx, auth.LoginRequest{Login: "12345678900", Password: "anything"}); !errors.Is(err, business.ErrInvalidLogin) {
		t.Fatalf("expected invalid login before definition, got %v", err)
	}
	session, err := h.pw.ConfirmReset(ctx, auth.ResetConfirmation{Token: cred.Token, NewPassword: "segredo1", Confirmation: "segredo1"})
	if err != nil {
		t.Fatalf("ConfirmReset: %v", err)
	}
	if len(session.User.Organizations) != 1 || session.User.Organizations[0].ID != cred.OrganizationID {
		t.Fatalf("unexpected organizations: %+v", session.User.Organizations)
	}
}

func TestFirstAccessCompanyAccount(t *testing.T) {
	mem := memory.New()
	h := newHarness(t, mem, mem)

	cred, err := h.svc.FirstAccess(context.Background(), "12.345.678/0001-90", onboarding.Registration{
		Name: "Digytal LTDA", Email: "contato@digytal.com.br", Login: "digytal", Kind: business.KindCompany,
	})
	if err != nil {
		t.Fatalf("FirstAccess: %v", err)
	}
	acc, err := account.NewService(mem).GetAccount(context.Background(), cred.OrganizationID, cred.AccountID)
	if err != nil || acc.Kind != account.KindCorporate {
		t.Fatalf("expected corporate account, got %+v %v", acc, err)
	}
	if cred.Login != "digytal" {
		t.Fatalf("unexpected login %s", cred.Login)
	}
}

func TestFirstAccessValidation(t *testing.T) {
	mem := memory.New()
	h := newHarness(t, mem, mem)
	reg := onboarding.Registration{Name: "Maria", Email: "maria@example.com"}
	cases := []struct {
		taxID string
		reg   onboarding.Registration
		want  error
	}{
		{"", reg, business.ErrRequiredField},
		{"123456789", reg, business.ErrInvalidTaxID},
		{"12345678900", onboarding.Registration{Name: "Maria", Email: "m@example.com", Kind: business.KindCompany}, business.ErrIncompatible},
	}
	for _, tc := range cases {
		if _, err := h.svc.FirstAccess(context.Background(), tc.taxID, tc.reg); !errors.Is(err, tc.want) {
			t.Fatalf("%q %+v: expected %v, got %v", tc.taxID, tc.reg, tc.want, err)
		}
	}
	if c := mem.Counts(); c.Organizations != 0 {
		t.Fatalf("validation failures must not write: %+v", c)
	}
}

func TestFirstAccessWithEmptyRegistration(t *testing.T) {
	mem := memory.New()
	h := newHarness(t, mem, mem)

	cred, err := h.svc.FirstAccess(context.Background(), "123.456.789-00", onboarding.Registration{})
	if err != nil {
		t.Fatalf("FirstAccess: %v", err)
	}
	counts := mem.Counts()
	if counts.Users != 1 || counts.Organizations != 1 || counts.Applications != 2 || counts.PaymentMethods != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
	if cred.Login != "12345678900" || cred.Name != "12345678900" || cred.Token == "" {
		t.Fatalf("unexpected credential: %+v", cred)
	}
	if sent := h.outbox.Sent(); len(sent) != 0 {
		t.Fatalf("no welcome mail without an email, got %+v", sent)
	}
}

func TestFirstAccessDuplicateTaxID(t *testing.T) {
	mem := memory.New()
	h := newHarness(t, mem, mem)
	reg := onboarding.Registration{Name: "Maria", Email: "maria@example.com"}
	if _, err := h.svc.FirstAccess(context.Background(), "12345678900", reg); err != nil {
		t.Fatalf("first FirstAccess: %v", err)
	}
	reg.Login = "maria2"
	if _, err := h.svc.FirstAccess(context.Background(), "123.456.789-00", reg); !errors.Is(err, business.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if c := mem.Counts(); c.Organizations != 1 || c.Users != 1 {
		t.Fatalf("duplicate must not write: %+v", c)
	}
}

type failingStore struct {
	inner *memory.Store
	err   error
}

func (f failingStore) InTx(ctx context.Context, fn func(tx onboarding.Tx) error) error {
	return f.inner.InTx(ctx, func(tx onboarding.Tx) error {
		return fn(failingTx{Tx: tx, err: f.err})
	})
}

type failingTx struct {
	onboarding.Tx
	err error
}

func (f failingTx) CreatePaymentMethod(context.Context, account.PaymentMethod) error {
	return f.err
}

func TestFirstAccessRollsBackOnFailure(t *testing.T) {
	mem := memory.New()
	boom := errors.New("disk full")
	h := newHarness(t, failingStore{inner: mem, err: boom}, mem)

	_, err := h.svc.FirstAccess(context.Background(), "12345678900", onboarding.Registration{Name: "Maria", Email: "maria@example.com"})
	if !errors.Is(err, business.ErrUnmapped) || !errors.Is(err, boom) {
		t.Fatalf("expected unmapped disk error, got %v", err)
	}
	if c := mem.Counts(); c != (memory.Counts{}) {
		t.Fatalf("expected nothing persisted, got %+v", c)
	}
	if len(h.outbox.Sent()) != 0 {
		t.Fatal("no mail should be sent on failure")
	}
}
