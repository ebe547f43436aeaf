package pg

import (
	"context"

	"digytal.com/control/internal/account"
	"digytal.com/control/internal/auth"
	"digytal.com/control/internal/catalog"
	"digytal.com/control/internal/onboarding"
)

// txView runs the provisioning writes on an open transaction.
type txView struct {
	q querier
}

func (t txView) OrganizationExists(ctx context.Context, taxID string) (bool, error) {
	var exists bool
	err := t.q.QueryRowContext(ctx, `select exists (select 1 from organizations where tax_id = $1)`, taxID).Scan(&exists)
	return exists, err
}

func (t txView) CreateOrganization(ctx context.Context, org onboarding.Organization) error {
	_, err := t.q.ExecContext(ctx, `
		insert into organizations (id, tax_id, name, email, created_at)
		values ($1, $2, $3, $4, $5)
	`, org.ID, org.TaxID, org.Name, org.Email, org.CreatedAt)
	return mapError(err, "organization", org.TaxID)
}

func (t txView) CreateUser(ctx context.Context, u auth.User) error {
	return insertUser(ctx, t.q, u)
}

func (t txView) AddMembership(ctx context.Context, userID, orgID string) error {
	_, err := t.q.ExecContext(ctx, `
		insert into memberships (user_id, organization_id)
		values ($1, $2)
		on conflict do nothing
	`, userID, orgID)
	return mapError(err, "membership", userID)
}

func (t txView) CreateAccount(ctx context.Context, acc account.Account) error {
	return insertAccount(ctx, t.q, acc)
}

func (t txView) CreateApplication(ctx context.Context, app catalog.Application) error {
	return insertApplication(ctx, t.q, app)
}

func (t txView) CreatePaymentMethod(ctx context.Context, pm account.PaymentMethod) error {
	return insertPaymentMethod(ctx, t.q, pm)
}
