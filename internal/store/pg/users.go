package pg

import (
	"context"
	"database/sql"
	"errors"

	"digytal.com/control/internal/auth"
	"digytal.com/control/internal/business"
)

const userColumns = `id, login, name, email, password_hash, locked, expired,
	coalesce(reset_token_id, ''), reset_requested_at, reset_expires_at, coalesce(used_reset_token_id, ''),
	password_changed_at, created_at, updated_at`

func scanUser(row *sql.Row, key string) (auth.User, error) {
	var (
		u                               auth.User
		resetReq, resetExp, pwChangedAt sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Login, &u.Name, &u.Email, &u.PasswordHash, &u.Locked, &u.Expired,
		&u.ResetTokenID, &resetReq, &resetExp, &u.UsedResetTokenID, &pwChangedAt, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, business.NotFound("user", key)
	}
	if err != nil {
		return auth.User{}, err
	}
	u.ResetRequestedAt = resetReq.Time
	u.ResetExpiresAt = resetExp.Time
	u.PasswordChangedAt = pwChangedAt.Time
	return u, nil
}

// FindUserByLogin returns business.ErrNotFound when no row matches the normalized login.
func (s *Store) FindUserByLogin(ctx context.Context, login string) (auth.User, error) {
	login = auth.NormalizeLogin(login)
	return scanUser(s.db.QueryRowContext(ctx, `select `+userColumns+` from users where login = $1`, login), login)
}

// FindUser returns business.ErrNotFound for unknown ids.
func (s *Store) FindUser(ctx context.Context, id string) (auth.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `select `+userColumns+` from users where id = $1`, id), id)
}

// UpdateUser rewrites every mutable column, including the reset stamp.
func (s *Store) UpdateUser(ctx context.Context, u auth.User) error {
	res, err := s.db.ExecContext(ctx, `
		update users
		set login = $2, name = $3, email = $4, password_hash = $5, locked = $6, expired = $7,
			reset_token_id = $8, reset_requested_at = $9, reset_expires_at = $10, used_reset_token_id = $11,
			password_changed_at = $12, updated_at = $13
		where id = $1
	`, u.ID, u.Login, u.Name, u.Email, u.PasswordHash, u.Locked, u.Expired,
		nullIfEmpty(u.ResetTokenID), nullTime(u.ResetRequestedAt), nullTime(u.ResetExpiresAt),
		nullIfEmpty(u.UsedResetTokenID), nullTime(u.PasswordChangedAt), u.UpdatedAt)
	if err != nil {
		return mapError(err, "user", u.Login)
	}
	return expectOne(res, "user", u.ID)
}

// UserOrganizations lists memberships oldest first; the first one is the default organization.
func (s *Store) UserOrganizations(ctx context.Context, userID string) ([]auth.Organization, error) {
	rows, err := s.db.QueryContext(ctx, `
		select o.id, o.name, o.tax_id
		from memberships m
		join organizations o on o.id = m.organization_id
		where m.user_id = $1
		order by m.created_at, o.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []auth.Organization
	for rows.Next() {
		var org auth.Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.TaxID); err != nil {
			return nil, err
		}
		out = append(out, org)
	}
	return out, rows.Err()
}

func insertUser(ctx context.Context, q querier, u auth.User) error {
	_, err := q.ExecContext(ctx, `
		insert into users (id, login, name, email, password_hash, locked, expired, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, u.ID, u.Login, u.Name, u.Email, u.PasswordHash, u.Locked, u.Expired, u.CreatedAt, u.UpdatedAt)
	return mapError(err, "user", u.Login)
}
