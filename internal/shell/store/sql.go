package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	migratev4 "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite3/*.sql
var migrationsFS embed.FS

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// =============================================================================
// Executor Interface - Shared by DB and Transaction
// =============================================================================

// executor abstracts database operations that can be performed on both
// a database connection and a transaction.
type executor interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// Config
// =============================================================================

// Config holds connection settings.
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// =============================================================================
// SQLStore
// =============================================================================

// SQLStore implements Store on PostgreSQL or SQLite.
type SQLStore struct {
	queries
	db *sqlx.DB
}

// Open connects, verifies the connection and applies pending migrations.
func Open(ctx context.Context, cfg Config) (*SQLStore, error) {
	dsn := cfg.DSN
	switch cfg.Driver {
	case DriverPostgres:
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
	default:
		return nil, NewStoreError("Open", "", "", fmt.Sprintf("driver %q", cfg.Driver), ErrUnsupportedDriver)
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, NewStoreError("Open", "", "", "failed to open database", ErrConnectionFailed)
	}

	if cfg.Driver == DriverSQLite {
		// Every connection to ":memory:" is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, NewStoreError("Open", "", "", "failed to ping database", fmt.Errorf("%w: %w", ErrConnectionFailed, err))
	}

	if err := applyMigrations(db, cfg.Driver, dsn); err != nil {
		db.Close()
		return nil, NewStoreError("Open", "", "", err.Error(), ErrMigrationFailed)
	}

	return newSQLStore(db), nil
}

// NewSQLiteStore opens a migrated SQLite store. Used for tests and local runs.
func NewSQLiteStore(dsn string) (*SQLStore, error) {
	return Open(context.Background(), Config{Driver: DriverSQLite, DSN: dsn})
}

func newSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{
		queries: queries{ex: db, d: dialectFor(db.DriverName())},
		db:      db,
	}
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}

// applyMigrations applies migrations. The postgres migration driver pins a pool
// connection until closed, so Postgres migrates over a short-lived pool of
// its own; SQLite must reuse db because ":memory:" lives in one connection.
func applyMigrations(db *sqlx.DB, driverName, dsn string) error {
	if driverName != DriverPostgres {
		return runMigrations(db.DB, driverName, false)
	}
	migDB, err := sql.Open(DriverPostgres, dsn)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer migDB.Close()
	return runMigrations(migDB, driverName, true)
}

// runMigrations runs database migrations using embedded SQL files. When
// closeAfter is set the migrator, and with it db, is closed on return.
func runMigrations(db *sql.DB, driverName string, closeAfter bool) error {
	var (
		driver database.Driver
		err    error
	)
	switch driverName {
	case DriverPostgres:
		driver, err = migratepg.WithInstance(db, &migratepg.Config{})
	default:
		driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations/"+driverName)
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migratev4.NewWithInstance("iofs", source, driverName, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if closeAfter {
		defer m.Close()
	}

	if err := m.Up(); err != nil && !errors.Is(err, migratev4.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Ping verifies the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return NewStoreError("Ping", "", "", err.Error(), fmt.Errorf("%w: %w", ErrConnectionFailed, err))
	}
	return nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (s *SQLStore) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewStoreError("WithTx", "", "", "failed to begin transaction", ErrTxFailed)
	}

	txS := &txSQLStore{queries: queries{ex: tx, d: s.d}, tx: tx}

	if err := fn(txS); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return NewStoreError("WithTx", "", "", fmt.Sprintf("rollback failed after error: %v", err), ErrTxFailed)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return NewStoreError("WithTx", "", "", "failed to commit transaction", ErrTxFailed)
	}

	return nil
}

// =============================================================================
// Transaction Store
// =============================================================================

// txSQLStore implements Store within a transaction.
type txSQLStore struct {
	queries
	tx *sqlx.Tx
}

func (s *txSQLStore) WithTx(ctx context.Context, fn func(Store) error) error {
	// Already in a transaction, just run the function
	return fn(s)
}

func (s *txSQLStore) Ping(ctx context.Context) error {
	return nil
}

func (s *txSQLStore) Close() error {
	// No-op for tx store
	return nil
}
