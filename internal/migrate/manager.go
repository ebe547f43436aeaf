// Package migrate applies the embedded SQL migrations and development seeds.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

const (
	defaultMigrationsTable = "schema_migrations"
	defaultSeedsTable      = "schema_seeds"
)

//go:embed sql/migrations/*.sql sql/seeds/*.sql
var embedded embed.FS

// Files is the migration tree shipped with the binary.
var Files fs.FS = embedded

// ErrNothingApplied is returned by Down when no migration has run.
var ErrNothingApplied = errors.New("no migrations applied")

// Manager executes SQL migrations and seed files read from an fs.FS.
type Manager struct {
	db              *sql.DB
	fsys            fs.FS
	migrationsDir   string
	seedsDir        string
	migrationsTable string
	seedsTable      string
}

// Option configures Manager.
type Option func(*Manager)

// WithMigrationsTable overrides the default migrations bookkeeping table.
func WithMigrationsTable(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.migrationsTable = name
		}
	}
}

// WithSeedsTable overrides the default seeds bookkeeping table.
func WithSeedsTable(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.seedsTable = name
		}
	}
}

// WithDirs overrides the directories scanned inside the fs.FS.
func WithDirs(migrations, seeds string) Option {
	return func(m *Manager) {
		m.migrationsDir = migrations
		m.seedsDir = seeds
	}
}

// NewManager constructs a Manager. A nil fsys means the embedded Files.
func NewManager(db *sql.DB, fsys fs.FS, opts ...Option) *Manager {
	if fsys == nil {
		fsys = Files
	}
	m := &Manager{
		db:              db,
		fsys:            fsys,
		migrationsDir:   "sql/migrations",
		seedsDir:        "sql/seeds",
		migrationsTable: defaultMigrationsTable,
		seedsTable:      defaultSeedsTable,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Up applies all pending migrations and returns their names.
func (m *Manager) Up(ctx context.Context) ([]string, error) {
	return m.applyPending(ctx, m.migrationsTable, m.migrationsDir, ".up.sql")
}

// Seed applies seed files idempotently.
func (m *Manager) Seed(ctx context.Context) ([]string, error) {
	return m.applyPending(ctx, m.seedsTable, m.seedsDir, ".sql")
}

// Down rolls back the most recent applied migration and returns its name.
func (m *Manager) Down(ctx context.Context) (string, error) {
	if err := m.ensureTables(ctx); err != nil {
		return "", err
	}
	executed, err := m.history(ctx, m.migrationsTable)
	if err != nil {
		return "", err
	}
	if len(executed) == 0 {
		return "", ErrNothingApplied
	}
	last := executed[len(executed)-1]
	downPath := path.Join(m.migrationsDir, strings.TrimSuffix(last, ".up.sql")+".down.sql")
	if _, err := fs.Stat(m.fsys, downPath); err != nil {
		return "", fmt.Errorf("missing down migration for %s", last)
	}
	if err := m.exec(ctx, downPath); err != nil {
		return "", fmt.Errorf("rollback migration %s: %w", last, err)
	}
	if _, err := m.db.ExecContext(ctx, fmt.Sprintf(`delete from %s where name = $1`, m.migrationsTable), last); err != nil {
		return "", err
	}
	return last, nil
}

// Status returns ordered applied migrations.
func (m *Manager) Status(ctx context.Context) ([]string, error) {
	if err := m.ensureTables(ctx); err != nil {
		return nil, err
	}
	return m.history(ctx, m.migrationsTable)
}

func (m *Manager) applyPending(ctx context.Context, table, dir, suffix string) ([]string, error) {
	if err := m.ensureTables(ctx); err != nil {
		return nil, err
	}
	executed, err := m.listExecuted(ctx, table)
	if err != nil {
		return nil, err
	}
	files, err := collectSQL(m.fsys, dir, suffix)
	if err != nil {
		return nil, err
	}
	var applied []string
	for _, f := range files {
		if executed[f.Base] {
			continue
		}
		if err := m.exec(ctx, f.Path); err != nil {
			return applied, fmt.Errorf("apply %s: %w", f.Base, err)
		}
		if err := m.insertRecord(ctx, table, f.Base); err != nil {
			return applied, err
		}
		applied = append(applied, f.Base)
	}
	return applied, nil
}

func (m *Manager) ensureTables(ctx context.Context) error {
	for _, table := range []string{m.migrationsTable, m.seedsTable} {
		ddl := fmt.Sprintf(`
		create table if not exists %s (
			name text primary key,
			applied_at timestamptz not null default now()
		);`, table)
		if _, err := m.db.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) exec(ctx context.Context, name string) error {
	sqlBytes, err := fs.ReadFile(m.fsys, name)
	if err != nil {
		return err
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range splitStatements(string(sqlBytes)) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (m *Manager) insertRecord(ctx context.Context, table, name string) error {
	_, err := m.db.ExecContext(ctx, fmt.Sprintf(`insert into %s(name, applied_at) values ($1, $2)`, table),
		name, time.Now().UTC())
	return err
}

func (m *Manager) listExecuted(ctx context.Context, table string) (map[string]bool, error) {
	names, err := m.history(ctx, table)
	if err != nil {
		return nil, err
	}
	result := make(map[string]bool, len(names))
	for _, name := range names {
		result[name] = true
	}
	return result, nil
}

func (m *Manager) history(ctx context.Context, table string) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, fmt.Sprintf(`select name from %s order by applied_at asc, name asc`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		res = append(res, name)
	}
	return res, rows.Err()
}

type sqlFile struct {
	Base string
	Path string
}

func collectSQL(fsys fs.FS, dir, suffix string) ([]sqlFile, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var files []sqlFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		// down files also end in .sql; never pick them up as seeds or ups.
		if strings.HasSuffix(e.Name(), ".down.sql") {
			continue
		}
		files = append(files, sqlFile{Base: e.Name(), Path: path.Join(dir, e.Name())})
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Base < files[j].Base
	})
	return files, nil
}

// splitStatements splits SQL on semicolons outside single-quoted strings and
// drops line comments and empty statements.
func splitStatements(src string) []string {
	var (
		stmts     []string
		current   strings.Builder
		inString  bool
		inComment bool
	)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			stmts = append(stmts, s)
		}
		current.Reset()
	}
	runes := []rune(src)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case inComment:
			if r == '\n' {
				inComment = false
				current.WriteRune(r)
			}
		case !inString && r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			inComment = true
			i++
		case r == '\'':
			inString = !inString
			current.WriteRune(r)
		case r == ';' && !inString:
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return stmts
}
