package store

import (
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite"
)

const (
	busyTimeoutMS   = 5000
	maxOpenConns    = 1
	maxIdleConns    = 1
	connMaxLifetime = 5 * time.Minute
)

var sqliteDialect = dialect{
	name:       BackendSQLite,
	migrations: sqliteMigrations,
	migrationsTableSQL: `CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at TEXT NOT NULL
)`,
	tableExistsQuery:  "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?",
	columnExistsQuery: "SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?",
	legacyColumns: []legacyColumn{
		{name: "salt", sqlType: "TEXT"},
		{name: "iv", sqlType: "TEXT"},
		{name: "data", sqlType: "TEXT"},
		{name: "files_json", sqlType: "TEXT"},
	},
}

// OpenSQLite opens the SQLite database at path and applies migrations.
func OpenSQLite(path string) (*SQLStore, error) {
	db, err := openSQLiteDB(path)
	if err != nil {
		return nil, err
	}
	s, err := newSQLStore(db, sqliteDialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func openSQLiteDB(path string) (*sql.DB, error) {
	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := configureSQLite(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func configureSQLite(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		fmt.Sprintf("PRAGMA busy_timeout = %d;", busyTimeoutMS),
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	// A single writer connection serializes read-modify-write transactions.
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	return nil
}

func sqliteDSN(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("db path is required")
	}
	u := url.URL{Scheme: "file", Path: path}
	return u.String(), nil
}
