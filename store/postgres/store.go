package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/flowforge/flowforge/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Ensure Store implements store.Store at compile time.
var _ store.Store = (*Store)(nil)

// Store is a Bun ORM implementation of store.Store using the
// PostgreSQL dialect.
type Store struct {
	db     *bun.DB
	ownsDB bool
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for migration progress messages.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New opens a PostgreSQL connection from a DSN and wraps it in bun.
// The returned Store owns the connection and closes it on Close.
func New(dsn string, opts ...Option) *Store {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	s := newStore(db, opts...)
	s.ownsDB = true
	return s
}

// NewFromDB wraps an existing *bun.DB. The caller retains ownership and
// Close is a no-op.
func NewFromDB(db *bun.DB, opts ...Option) *Store {
	return newStore(db, opts...)
}

func newStore(db *bun.DB, opts ...Option) *Store {
	s := &Store{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying *bun.DB for advanced usage (transactions,
// direct queries from tests).
func (s *Store) DB() *bun.DB { return s.db }

// Migrate runs all embedded SQL migration files in order, tracked in a
// flowforge_migrations table so re-runs are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS flowforge_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("flowforge/postgres: create migrations table: %w", err)
	}

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("flowforge/postgres: read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		var applied bool
		err = s.db.NewSelect().
			ColumnExpr("EXISTS(SELECT 1 FROM flowforge_migrations WHERE filename = ?)", entry.Name()).
			Scan(ctx, &applied)
		if err != nil {
			return fmt.Errorf("flowforge/postgres: check migration %s: %w", entry.Name(), err)
		}
		if applied {
			continue
		}

		data, readErr := fs.ReadFile(migrationsFS, "migrations/"+entry.Name())
		if readErr != nil {
			return fmt.Errorf("flowforge/postgres: read migration %s: %w", entry.Name(), readErr)
		}
		if _, execErr := s.db.ExecContext(ctx, string(data)); execErr != nil {
			return fmt.Errorf("flowforge/postgres: execute migration %s: %w", entry.Name(), execErr)
		}
		if _, recErr := s.db.NewInsert().
			Model(&migrationRow{Filename: entry.Name()}).
			Exec(ctx); recErr != nil {
			return fmt.Errorf("flowforge/postgres: record migration %s: %w", entry.Name(), recErr)
		}

		s.logger.Info("applied migration", slog.String("file", entry.Name()))
	}

	return nil
}

type migrationRow struct {
	bun.BaseModel `bun:"table:flowforge_migrations"`
	Filename      string `bun:"filename,pk"`
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying connection if this Store opened it.
func (s *Store) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}
