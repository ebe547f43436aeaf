package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"digytal.com/control/internal/account"
	"digytal.com/control/internal/auth"
	"digytal.com/control/internal/business"
	"digytal.com/control/internal/catalog"
	"digytal.com/control/internal/onboarding"
)

var userCols = []string{"id", "login", "name", "email", "password_hash", "locked", "expired",
	"reset_token_id", "reset_requested_at", "reset_expires_at", "used_reset_token_id",
	"password_changed_at", "created_at", "updated_at"}

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestFindUserByLogin(t *testing.T) {
	store, mock := newMock(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("select .* from users where login = \\$1").
		WithArgs("testuser").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u-1", "testuser", "Test User", "t@example.com", "hash", false, false, "", nil, nil, "", now, now, now))

	u, err := store.FindUserByLogin(context.Background(), "  TestUser ")
	if err != nil {
		t.Fatalf("FindUserByLogin: %v", err)
	}
	if u.ID != "u-1" || u.Login != "testuser" || !u.PasswordChangedAt.Equal(now) {
		t.Fatalf("unexpected user: %+v", u)
	}
	if !u.ResetExpiresAt.IsZero() {
		t.Fatalf("null reset_expires_at should scan as zero time, got %v", u.ResetExpiresAt)
	}

	mock.ExpectQuery("select .* from users where login = \\$1").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(userCols))
	if _, err := store.FindUserByLogin(context.Background(), "ghost"); !errors.Is(err, business.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateUserMissingRow(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("update users").
		WithArgs("u-9", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateUser(context.Background(), auth.User{ID: "u-9", Login: "nobody"})
	if !errors.Is(err, business.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserOrganizations(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("from memberships m").
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "tax_id"}).
			AddRow("org-1", "Digytal", "12345678000190").
			AddRow("org-2", "Casa", "12345678900"))

	orgs, err := store.UserOrganizations(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("UserOrganizations: %v", err)
	}
	if len(orgs) != 2 || orgs[0].ID != "org-1" || orgs[1].TaxID != "12345678900" {
		t.Fatalf("unexpected orgs: %+v", orgs)
	}
}

func TestListApplicationsEscapesFilter(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery("from applications").
		WithArgs("org-1", "expense", `%50\%%`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "name", "kind", "created_at"}).
			AddRow("app-1", "org-1", "Desconto 50%", "expense", now))

	apps, err := store.ListApplications(context.Background(), "org-1", catalog.KindExpense, " 50% ")
	if err != nil {
		t.Fatalf("ListApplications: %v", err)
	}
	if len(apps) != 1 || apps[0].Kind != catalog.KindExpense {
		t.Fatalf("unexpected applications: %+v", apps)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreatePaymentMethodDuplicate(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("insert into payment_methods").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "payment_methods_account_id_means_installments_key"})

	err := store.CreatePaymentMethod(context.Background(), account.PaymentMethod{
		ID: "pm-1", AccountID: "acc-1", OrganizationID: "org-1", Means: account.MeansCash, Installments: 1,
	})
	if !errors.Is(err, business.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
}

func TestCreateAccountMissingOrganization(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("insert into accounts").
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation, ConstraintName: "accounts_organization_id_fkey"})

	err := store.CreateAccount(context.Background(), account.Account{ID: "acc-1", OrganizationID: "ghost", Name: "Caixa"})
	if !errors.Is(err, business.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeletePaymentMethod(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("delete from payment_methods").WithArgs("pm-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("delete from payment_methods").WithArgs("pm-1").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeletePaymentMethod(context.Background(), "pm-1"); err != nil {
		t.Fatalf("DeletePaymentMethod: %v", err)
	}
	if err := store.DeletePaymentMethod(context.Background(), "pm-1"); !errors.Is(err, business.ErrNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
}

func TestInTxCommits(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select exists \\(select 1 from organizations").
		WithArgs("12345678900").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("insert into organizations").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into memberships").WithArgs("u-1", "org-1").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := store.InTx(context.Background(), func(tx onboarding.Tx) error {
		exists, err := tx.OrganizationExists(context.Background(), "12345678900")
		if err != nil || exists {
			t.Fatalf("OrganizationExists=%v, %v", exists, err)
		}
		if err := tx.CreateOrganization(context.Background(), onboarding.Organization{ID: "org-1", TaxID: "12345678900"}); err != nil {
			return err
		}
		return tx.AddMembership(context.Background(), "u-1", "org-1")
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("insert into organizations").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into users").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "users_login_key"})
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(tx onboarding.Tx) error {
		if err := tx.CreateOrganization(context.Background(), onboarding.Organization{ID: "org-1", TaxID: "12345678900"}); err != nil {
			return err
		}
		return tx.CreateUser(context.Background(), auth.User{ID: "u-1", Login: "12345678900"})
	})
	if !errors.Is(err, business.ErrDuplicate) {
		t.Fatalf("expected duplicate login, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
