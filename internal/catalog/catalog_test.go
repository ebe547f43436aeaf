package catalog

import (
	"context"
	"errors"
	"testing"

	"digytal.com/control/internal/business"
	"digytal.com/control/internal/ids"
)

type stubStore struct {
	listFn   func(ctx context.Context, orgID string, kind Kind, name string) ([]Application, error)
	createFn func(ctx context.Context, app Application) error
	findFn   func(ctx context.Context, id string) (Application, error)
	updateFn func(ctx context.Context, app Application) error
}

func (s stubStore) ListApplications(ctx context.Context, orgID string, kind Kind, name string) ([]Application, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, orgID, kind, name)
}

func (s stubStore) CreateApplication(ctx context.Context, app Application) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, app)
}

func (s stubStore) FindApplication(ctx context.Context, id string) (Application, error) {
	if s.findFn == nil {
		return Application{}, business.NotFound("application", id)
	}
	return s.findFn(ctx, id)
}

func (s stubStore) UpdateApplication(ctx context.Context, app Application) error {
	if s.updateFn == nil {
		return nil
	}
	return s.updateFn(ctx, app)
}

func TestRenameRequiresNameBeforeLookup(t *testing.T) {
	lookups := 0
	svc := NewService(stubStore{findFn: func(context.Context, string) (Application, error) {
		lookups++
		return Application{ID: "a-1", OrganizationID: "org-1"}, nil
	}})
	for _, id := range []string{"a-1", "missing", ""} {
		if _, err := svc.Rename(context.Background(), "org-1", id, "  "); !errors.Is(err, business.ErrRequiredField) {
			t.Fatalf("id %q: expected required field, got %v", id, err)
		}
	}
	if lookups != 0 {
		t.Fatalf("expected no lookups, got %d", lookups)
	}
}

func TestRenameMissing(t *testing.T) {
	svc := NewService(stubStore{})
	if _, err := svc.Rename(context.Background(), "org-1", "nope", "Marketing"); !errors.Is(err, business.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRenameForeignOrganization(t *testing.T) {
	svc := NewService(stubStore{findFn: func(context.Context, string) (Application, error) {
		return Application{ID: "a-1", OrganizationID: "org-2"}, nil
	}, updateFn: func(context.Context, Application) error {
		t.Fatal("must not update a foreign record")
		return nil
	}})
	if _, err := svc.Rename(context.Background(), "org-1", "a-1", "Marketing"); !errors.Is(err, business.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRenameSaves(t *testing.T) {
	var saved Application
	svc := NewService(stubStore{
		findFn: func(context.Context, string) (Application, error) {
			return Application{ID: "a-1", OrganizationID: "org-1", Name: "Old", Kind: KindArea}, nil
		},
		updateFn: func(_ context.Context, app Application) error {
			saved = app
			return nil
		},
	})
	app, err := svc.Rename(context.Background(), "org-1", "a-1", " Marketing ")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if app.Name != "Marketing" || saved.Name != "Marketing" || saved.Kind != KindArea {
		t.Fatalf("unexpected save: %+v", saved)
	}
}

func TestIncludeKinds(t *testing.T) {
	var created []Application
	svc := NewService(stubStore{createFn: func(_ context.Context, app Application) error {
		created = append(created, app)
		return nil
	}}, WithIDGenerator(ids.Sequence("app")))

	ctx := context.Background()
	if _, err := svc.IncludeArea(ctx, "org-1", ApplicationRequest{Name: "Vendas"}); err != nil {
		t.Fatalf("IncludeArea: %v", err)
	}
	if _, err := svc.IncludeRevenue(ctx, "org-1", ApplicationRequest{Name: "Serviços"}); err != nil {
		t.Fatalf("IncludeRevenue: %v", err)
	}
	id, err := svc.IncludeExpense(ctx, "org-1", ApplicationRequest{Name: "Aluguel"})
	if err != nil {
		t.Fatalf("IncludeExpense: %v", err)
	}
	if id != "app-3" {
		t.Fatalf("unexpected id %s", id)
	}
	want := []Kind{KindArea, KindRevenue, KindExpense}
	for i, app := range created {
		if app.Kind != want[i] || app.OrganizationID != "org-1" {
			t.Fatalf("created[%d] = %+v", i, app)
		}
	}
	if _, err := svc.IncludeArea(ctx, "org-1", ApplicationRequest{}); !errors.Is(err, business.ErrRequiredField) {
		t.Fatalf("expected required field, got %v", err)
	}
}

func TestIncludeDuplicatePassesThrough(t *testing.T) {
	svc := NewService(stubStore{createFn: func(context.Context, Application) error {
		return business.Duplicate("application", "Vendas")
	}})
	if _, err := svc.IncludeArea(context.Background(), "org-1", ApplicationRequest{Name: "Vendas"}); !errors.Is(err, business.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
}

func TestListFiltersByKindAndWrapsFailures(t *testing.T) {
	var gotKind Kind
	var gotName string
	svc := NewService(stubStore{listFn: func(_ context.Context, orgID string, kind Kind, name string) ([]Application, error) {
		gotKind, gotName = kind, name
		return nil, nil
	}})
	apps, err := svc.ListExpenses(context.Background(), "org-1", " alu ")
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if apps == nil || len(apps) != 0 {
		t.Fatalf("expected empty slice, got %v", apps)
	}
	if gotKind != KindExpense || gotName != "alu" {
		t.Fatalf("unexpected filter %s %q", gotKind, gotName)
	}

	failing := NewService(stubStore{listFn: func(context.Context, string, Kind, string) ([]Application, error) {
		return nil, errors.New("db down")
	}})
	if _, err := failing.ListAreas(context.Background(), "org-1", ""); !errors.Is(err, business.ErrUnmapped) {
		t.Fatalf("expected unmapped, got %v", err)
	}
}

func TestUnknownKindRejectedBeforeStore(t *testing.T) {
	calls := 0
	svc := NewService(stubStore{
		listFn: func(context.Context, string, Kind, string) ([]Application, error) {
			calls++
			return nil, nil
		},
		createFn: func(context.Context, Application) error {
			calls++
			return nil
		},
	})
	if _, err := svc.list(context.Background(), "org-1", Kind("asset"), ""); !errors.Is(err, business.ErrIncompatible) {
		t.Fatalf("list: expected incompatible, got %v", err)
	}
	if _, err := svc.include(context.Background(), "org-1", Kind("asset"), ApplicationRequest{Name: "Imóveis"}); !errors.Is(err, business.ErrIncompatible) {
		t.Fatalf("include: expected incompatible, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("store must not be reached, got %d calls", calls)
	}
	if !KindExpense.Valid() || Kind("").Valid() {
		t.Fatal("unexpected Kind.Valid result")
	}
}
