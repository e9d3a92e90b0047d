package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

const (
	maxOpenConnsEnvKey    = "SEALNOTE_DB_MAX_OPEN_CONNS"
	maxIdleConnsEnvKey    = "SEALNOTE_DB_MAX_IDLE_CONNS"
	connMaxLifetimeEnvKey = "SEALNOTE_DB_CONN_MAX_LIFETIME"

	defaultMySQLMaxOpenConns = 25
	defaultMySQLMaxIdleConns = 5
	mysqlPingTimeout         = 5 * time.Second

	mysqlErrDuplicateEntry = 1062
)

var mysqlDialect = dialect{
	name:       BackendMySQL,
	migrations: mysqlMigrations,
	migrationsTableSQL: `CREATE TABLE IF NOT EXISTS schema_migrations (
  version INT NOT NULL PRIMARY KEY,
  applied_at CHAR(30) NOT NULL
) ENGINE=InnoDB`,
	tableExistsQuery:  "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?",
	columnExistsQuery: "SELECT COUNT(*) FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ? AND column_name = ?",
	legacyColumns: []legacyColumn{
		{name: "salt", sqlType: "TEXT"},
		{name: "iv", sqlType: "TEXT"},
		{name: "data", sqlType: "LONGTEXT"},
		{name: "files_json", sqlType: "LONGTEXT"},
	},
	lockSuffix:     " FOR UPDATE",
	isDuplicateKey: isMySQLDuplicateKey,
}

// OpenMySQL connects to MySQL using dsn and applies migrations.
func OpenMySQL(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := openMySQLDB(ctx, dsn)
	if err != nil {
		return nil, err
	}
	s, err := newSQLStore(db, mysqlDialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func openMySQLDB(ctx context.Context, dsn string) (*sql.DB, error) {
	normalized, err := normalizeMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", normalized)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(intFromEnv(maxOpenConnsEnvKey, defaultMySQLMaxOpenConns))
	db.SetMaxIdleConns(intFromEnv(maxIdleConnsEnvKey, defaultMySQLMaxIdleConns))
	db.SetConnMaxLifetime(durationFromEnv(connMaxLifetimeEnvKey, connMaxLifetime))

	pingCtx, cancel := context.WithTimeout(ctx, mysqlPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql ping: %w", err)
	}
	return db, nil
}

// normalizeMySQLDSN validates dsn and pins the options the store relies on.
func normalizeMySQLDSN(dsn string) (string, error) {
	if strings.TrimSpace(dsn) == "" {
		return "", fmt.Errorf("mysql dsn is required")
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	if cfg.DBName == "" {
		return "", fmt.Errorf("mysql dsn must name a database")
	}
	// created_at is stored as fixed-width text, never as DATETIME.
	cfg.ParseTime = false
	cfg.MultiStatements = false
	return cfg.FormatDSN(), nil
}

func isMySQLDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry
}

func intFromEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds <= 0 {
			return fallback
		}
		return time.Duration(seconds) * time.Second
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
