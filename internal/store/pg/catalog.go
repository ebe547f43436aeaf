package pg

import (
	"context"
	"database/sql"
	"errors"

	"digytal.com/control/internal/business"
	"digytal.com/control/internal/catalog"
)

// ListApplications matches name with ilike after escaping wildcards.
func (s *Store) ListApplications(ctx context.Context, orgID string, kind catalog.Kind, name string) ([]catalog.Application, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, organization_id, name, kind, created_at
		from applications
		where organization_id = $1 and kind = $2 and name ilike $3
		order by name
	`, orgID, string(kind), likePattern(name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Application
	for rows.Next() {
		var (
			app  catalog.Application
			kind string
		)
		if err := rows.Scan(&app.ID, &app.OrganizationID, &app.Name, &kind, &app.CreatedAt); err != nil {
			return nil, err
		}
		app.Kind = catalog.Kind(kind)
		out = append(out, app)
	}
	return out, rows.Err()
}

// CreateApplication maps the unique index violation to business.ErrDuplicate.
func (s *Store) CreateApplication(ctx context.Context, app catalog.Application) error {
	return insertApplication(ctx, s.db, app)
}

// FindApplication returns business.ErrNotFound for unknown ids.
func (s *Store) FindApplication(ctx context.Context, id string) (catalog.Application, error) {
	var (
		app  catalog.Application
		kind string
	)
	err := s.db.QueryRowContext(ctx, `
		select id, organization_id, name, kind, created_at
		from applications
		where id = $1
	`, id).Scan(&app.ID, &app.OrganizationID, &app.Name, &kind, &app.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Application{}, business.NotFound("application", id)
	}
	if err != nil {
		return catalog.Application{}, err
	}
	app.Kind = catalog.Kind(kind)
	return app, nil
}

// UpdateApplication renames an application.
func (s *Store) UpdateApplication(ctx context.Context, app catalog.Application) error {
	res, err := s.db.ExecContext(ctx, `update applications set name = $2 where id = $1`, app.ID, app.Name)
	if err != nil {
		return mapError(err, "application", app.Name)
	}
	return expectOne(res, "application", app.ID)
}

func insertApplication(ctx context.Context, q querier, app catalog.Application) error {
	_, err := q.ExecContext(ctx, `
		insert into applications (id, organization_id, name, kind, created_at)
		values ($1, $2, $3, $4, $5)
	`, app.ID, app.OrganizationID, app.Name, string(app.Kind), app.CreatedAt)
	return mapError(err, "application", app.Name)
}
