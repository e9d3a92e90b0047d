package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// Supported note store backends.
const (
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
	BackendBadger = "badger"
	BackendFile   = "file"
)

const (
	defaultSQLiteFile = "sealnote.db"
	defaultBadgerDir  = "badger"
	defaultNotesFile  = "notes.json"
)

// ErrNoMigrations is returned when migration commands target a non-SQL backend.
var ErrNoMigrations = errors.New("backend has no schema migrations")

// Options selects and locates a backend.
type Options struct {
	Backend  string
	DataDir  string
	DBPath   string
	MySQLDSN string
	Logger   *slog.Logger
}

// Backends lists the accepted backend names.
func Backends() []string {
	return []string{BackendSQLite, BackendMySQL, BackendBadger, BackendFile}
}

// NormalizeBackend lower-cases name and defaults an empty value to sqlite.
func NormalizeBackend(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return BackendSQLite, nil
	}
	for _, b := range Backends() {
		if name == b {
			return name, nil
		}
	}
	return "", fmt.Errorf("unknown storage backend %q (expected one of %s)", name, strings.Join(Backends(), ", "))
}

func (o Options) sqlitePath() string {
	if o.DBPath != "" {
		return o.DBPath
	}
	return filepath.Join(o.DataDir, defaultSQLiteFile)
}

// Open opens the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (NoteStore, error) {
	backend, err := NormalizeBackend(opts.Backend)
	if err != nil {
		return nil, err
	}

	var (
		opened  NoteStore
		openErr error
	)
	switch backend {
	case BackendSQLite:
		opened, openErr = OpenSQLite(opts.sqlitePath())
	case BackendMySQL:
		opened, openErr = OpenMySQL(ctx, opts.MySQLDSN)
	case BackendBadger:
		opened, openErr = OpenBadger(filepath.Join(opts.DataDir, defaultBadgerDir), opts.Logger)
	default:
		opened, openErr = OpenFile(filepath.Join(opts.DataDir, defaultNotesFile))
	}
	if openErr != nil {
		return nil, openErr
	}
	return opened, nil
}

// InspectMigrations reports migration status without applying anything.
func InspectMigrations(ctx context.Context, opts Options) (*MigrationStatus, error) {
	backend, err := NormalizeBackend(opts.Backend)
	if err != nil {
		return nil, err
	}

	switch backend {
	case BackendSQLite:
		db, err := openSQLiteDB(opts.sqlitePath())
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return migrationPlan(db, sqliteDialect)
	case BackendMySQL:
		db, err := openMySQLDB(ctx, opts.MySQLDSN)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return migrationPlan(db, mysqlDialect)
	default:
		return nil, fmt.Errorf("%s: %w", backend, ErrNoMigrations)
	}
}

// Migrate opens a SQL backend, which applies pending migrations, and
// returns the resulting status.
func Migrate(ctx context.Context, opts Options) (*MigrationStatus, error) {
	backend, err := NormalizeBackend(opts.Backend)
	if err != nil {
		return nil, err
	}
	if backend != BackendSQLite && backend != BackendMySQL {
		return nil, fmt.Errorf("%s: %w", backend, ErrNoMigrations)
	}

	opened, err := Open(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer opened.Close()

	sqlStore, ok := opened.(*SQLStore)
	if !ok {
		return nil, fmt.Errorf("%s: %w", backend, ErrNoMigrations)
	}
	return sqlStore.MigrationPlan()
}
