// Package catalog manages the application/category records of an organization:
// areas, revenue natures and expense natures.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"digytal.com/control/internal/business"
	"digytal.com/control/internal/ids"
)

// Kind classifies an application record.
type Kind string

const (
	KindArea    Kind = "area"
	KindRevenue Kind = "revenue"
	KindExpense Kind = "expense"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindArea || k == KindRevenue || k == KindExpense
}

// Application is an org-scoped category.
type Application struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Kind           Kind      `json:"kind"`
	CreatedAt      time.Time `json:"created_at"`
}

// ApplicationRequest is the client payload for create and rename.
type ApplicationRequest struct {
	Name string `json:"name"`
}

// Store persists applications. Find returns business.ErrNotFound for unknown ids,
// Create returns business.ErrDuplicate when (organization, kind, name) exists.
type Store interface {
	ListApplications(ctx context.Context, orgID string, kind Kind, name string) ([]Application, error)
	CreateApplication(ctx context.Context, app Application) error
	FindApplication(ctx context.Context, id string) (Application, error)
	UpdateApplication(ctx context.Context, app Application) error
}

// Service implements application management.
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

// ListAreas returns the areas of orgID whose name contains name (case-insensitive).
func (s *Service) ListAreas(ctx context.Context, orgID, name string) ([]Application, error) {
	return s.list(ctx, orgID, KindArea, name)
}

// ListRevenues returns the revenue natures of orgID filtered like ListAreas.
func (s *Service) ListRevenues(ctx context.Context, orgID, name string) ([]Application, error) {
	return s.list(ctx, orgID, KindRevenue, name)
}

// ListExpenses returns the expense natures of orgID filtered like ListAreas.
func (s *Service) ListExpenses(ctx context.Context, orgID, name string) ([]Application, error) {
	return s.list(ctx, orgID, KindExpense, name)
}

// IncludeArea creates an area and returns its id.
func (s *Service) IncludeArea(ctx context.Context, orgID string, req ApplicationRequest) (string, error) {
	return s.include(ctx, orgID, KindArea, req)
}

// IncludeRevenue creates a revenue nature and returns its id.
func (s *Service) IncludeRevenue(ctx context.Context, orgID string, req ApplicationRequest) (string, error) {
	return s.include(ctx, orgID, KindRevenue, req)
}

// IncludeExpense creates an expense nature and returns its id.
func (s *Service) IncludeExpense(ctx context.Context, orgID string, req ApplicationRequest) (string, error) {
	return s.include(ctx, orgID, KindExpense, req)
}

// Rename changes the name of an existing record. The name is validated before the lookup.
func (s *Service) Rename(ctx context.Context, orgID, id, name string) (Application, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Application{}, business.RequiredField("name")
	}
	app, err := s.store.FindApplication(ctx, strings.TrimSpace(id))
	if err != nil {
		return Application{}, business.Unmapped(err)
	}
	if app.OrganizationID != orgID {
		return Application{}, business.NotFound("application", id)
	}
	app.Name = name
	if err := s.store.UpdateApplication(ctx, app); err != nil {
		return Application{}, business.Unmapped(err)
	}
	return app, nil
}

func (s *Service) list(ctx context.Context, orgID string, kind Kind, name string) ([]Application, error) {
	if strings.TrimSpace(orgID) == "" {
		return nil, business.RequiredField("organization")
	}
	if !kind.Valid() {
		return nil, unknownKind(kind)
	}
	apps, err := s.store.ListApplications(ctx, orgID, kind, strings.TrimSpace(name))
	if err != nil {
		return nil, business.Unmapped(err)
	}
	if apps == nil {
		apps = []Application{}
	}
	return apps, nil
}

func (s *Service) include(ctx context.Context, orgID string, kind Kind, req ApplicationRequest) (string, error) {
	if strings.TrimSpace(orgID) == "" {
		return "", business.RequiredField("organization")
	}
	if !kind.Valid() {
		return "", unknownKind(kind)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", business.RequiredField("name")
	}
	app := Application{
		ID:             s.newID(),
		OrganizationID: orgID,
		Name:           name,
		Kind:           kind,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.store.CreateApplication(ctx, app); err != nil {
		return "", business.Unmapped(err)
	}
	return app.ID, nil
}

func unknownKind(kind Kind) error {
	return fmt.Errorf("%w: unknown application kind %q", business.ErrIncompatible, kind)
}

// Defaults returns the revenue and expense records seeded for a new organization.
func Defaults(orgID string, newID ids.Generator, now time.Time) []Application {
	return []Application{
		{ID: newID(), OrganizationID: orgID, Name: "Receitas Diversas", Kind: KindRevenue, CreatedAt: now},
		{ID: newID(), OrganizationID: orgID, Name: "Despesas Diversas", Kind: KindExpense, CreatedAt: now},
	}
}
