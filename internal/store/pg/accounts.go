package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"digytal.com/control/internal/account"
	"digytal.com/control/internal/business"
)

// FindAccount returns business.ErrNotFound for unknown ids.
func (s *Store) FindAccount(ctx context.Context, id string) (account.Account, error) {
	var (
		acc  account.Account
		kind string
	)
	err := s.db.QueryRowContext(ctx, `
		select id, organization_id, name, kind, balance, created_at
		from accounts
		where id = $1
	`, id).Scan(&acc.ID, &acc.OrganizationID, &acc.Name, &kind, &acc.Balance, &acc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return account.Account{}, business.NotFound("account", id)
	}
	if err != nil {
		return account.Account{}, err
	}
	acc.Kind = account.Kind(kind)
	return acc, nil
}

// ListAccounts returns the accounts of orgID in ULID (creation) order.
func (s *Store) ListAccounts(ctx context.Context, orgID string) ([]account.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, organization_id, name, kind, balance, created_at
		from accounts
		where organization_id = $1
		order by id
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []account.Account
	for rows.Next() {
		var (
			acc  account.Account
			kind string
		)
		if err := rows.Scan(&acc.ID, &acc.OrganizationID, &acc.Name, &kind, &acc.Balance, &acc.CreatedAt); err != nil {
			return nil, err
		}
		acc.Kind = account.Kind(kind)
		out = append(out, acc)
	}
	return out, rows.Err()
}

// CreateAccount maps a missing organization to business.ErrNotFound.
func (s *Store) CreateAccount(ctx context.Context, acc account.Account) error {
	return insertAccount(ctx, s.db, acc)
}

// ListPaymentMethods returns the payment methods of accountID.
func (s *Store) ListPaymentMethods(ctx context.Context, accountID string) ([]account.PaymentMethod, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, account_id, organization_id, description, means, installments, fee_rate, created_at
		from payment_methods
		where account_id = $1
		order by means, installments
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []account.PaymentMethod
	for rows.Next() {
		pm, err := scanPaymentMethod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pm)
	}
	return out, rows.Err()
}

// PaymentMethodExists checks the (account, means, installments) tuple.
func (s *Store) PaymentMethodExists(ctx context.Context, accountID string, means account.Means, installments int) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		select exists (
			select 1 from payment_methods
			where account_id = $1 and means = $2 and installments = $3
		)
	`, accountID, string(means), installments).Scan(&exists)
	return exists, err
}

// CreatePaymentMethod maps the tuple constraint to business.ErrDuplicate.
func (s *Store) CreatePaymentMethod(ctx context.Context, pm account.PaymentMethod) error {
	return insertPaymentMethod(ctx, s.db, pm)
}

// FindPaymentMethod returns business.ErrNotFound for unknown ids.
func (s *Store) FindPaymentMethod(ctx context.Context, id string) (account.PaymentMethod, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, account_id, organization_id, description, means, installments, fee_rate, created_at
		from payment_methods
		where id = $1
	`, id)
	if err != nil {
		return account.PaymentMethod{}, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return account.PaymentMethod{}, err
		}
		return account.PaymentMethod{}, business.NotFound("payment method", id)
	}
	return scanPaymentMethod(rows)
}

// DeletePaymentMethod returns business.ErrNotFound when nothing was deleted.
func (s *Store) DeletePaymentMethod(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from payment_methods where id = $1`, id)
	if err != nil {
		return err
	}
	return expectOne(res, "payment method", id)
}

func scanPaymentMethod(rows *sql.Rows) (account.PaymentMethod, error) {
	var (
		pm    account.PaymentMethod
		means string
	)
	if err := rows.Scan(&pm.ID, &pm.AccountID, &pm.OrganizationID, &pm.Description, &means, &pm.Installments, &pm.FeeRate, &pm.CreatedAt); err != nil {
		return account.PaymentMethod{}, err
	}
	pm.Means = account.Means(means)
	return pm, nil
}

func insertAccount(ctx context.Context, q querier, acc account.Account) error {
	_, err := q.ExecContext(ctx, `
		insert into accounts (id, organization_id, name, kind, balance, created_at)
		values ($1, $2, $3, $4, $5, $6)
	`, acc.ID, acc.OrganizationID, acc.Name, string(acc.Kind), acc.Balance, acc.CreatedAt)
	return mapError(err, "account", acc.Name)
}

func insertPaymentMethod(ctx context.Context, q querier, pm account.PaymentMethod) error {
	_, err := q.ExecContext(ctx, `
		insert into payment_methods (id, account_id, organization_id, description, means, installments, fee_rate, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, pm.ID, pm.AccountID, pm.OrganizationID, pm.Description, string(pm.Means), pm.Installments, pm.FeeRate, pm.CreatedAt)
	return mapError(err, "payment method", fmt.Sprintf("%s/%dx", pm.Means, pm.Installments))
}
