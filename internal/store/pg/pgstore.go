package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"digytal.com/control/internal/account"
	"digytal.com/control/internal/auth"
	"digytal.com/control/internal/business"
	"digytal.com/control/internal/catalog"
	"digytal.com/control/internal/onboarding"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

var (
	_ auth.UserStore   = (*Store)(nil)
	_ catalog.Store    = (*Store)(nil)
	_ account.Store    = (*Store)(nil)
	_ onboarding.Store = (*Store)(nil)
)

// querier is satisfied by *sql.DB and *sql.Tx so every statement runs in or out of a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements the store ports on PostgreSQL.
type Store struct {
	db *sql.DB
}

// Open connects through the pgx stdlib driver.
func Open(dsn string, maxOpen int) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if maxOpen <= 0 {
		maxOpen = 20
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen / 2)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing handle (tests pass a sqlmock db).
func New(db *sql.DB) *Store { return &Store{db: db} }

// Close closes the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the handle for the readiness probe.
func (s *Store) DB() *sql.DB { return s.db }

// InTx runs fn inside one database transaction; any error rolls everything back.
func (s *Store) InTx(ctx context.Context, fn func(tx onboarding.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(txView{q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// mapError turns constraint violations into business errors.
func mapError(err error, entity, key string) error {
	if err == nil {
		return nil
	}
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return business.Duplicate(entity, key)
		case pgErrForeignKeyViolation:
			return fmt.Errorf("%w: %s references a missing record (%s)", business.ErrNotFound, entity, pgErr.ConstraintName)
		}
	}
	return err
}

func expectOne(res sql.Result, entity, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return business.NotFound(entity, key)
	}
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func likePattern(name string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.TrimSpace(name))
	return "%" + escaped + "%"
}
