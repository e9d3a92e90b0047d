package store

import (
	"database/sql"
	"fmt"
	"sort"
	"time"
)

// Migration represents a schema migration step.
type Migration struct {
	Version     int
	Description string
	Statements  []string
}

// MigrationStatus reports the current and available migration versions.
type MigrationStatus struct {
	Backend          string          `json:"backend" yaml:"backend"`
	CurrentVersion   int             `json:"current_version" yaml:"current_version"`
	AvailableVersion int             `json:"available_version" yaml:"available_version"`
	Pending          []MigrationInfo `json:"pending" yaml:"pending"`
}

// MigrationInfo describes a single migration.
type MigrationInfo struct {
	Version     int    `json:"version" yaml:"version"`
	Description string `json:"description" yaml:"description"`
}

var sqliteMigrations = []Migration{
	{
		Version:     1,
		Description: "initial schema: notes table",
		Statements: []string{`
CREATE TABLE IF NOT EXISTS notes (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL,
  salt TEXT,
  iv TEXT,
  data TEXT,
  files_json TEXT
)`},
	},
	{
		Version:     2,
		Description: "list ordering index",
		Statements: []string{
			`CREATE INDEX IF NOT EXISTS idx_notes_created_at ON notes(created_at DESC, id DESC)`,
		},
	},
}

var mysqlMigrations = []Migration{
	{
		Version:     1,
		Description: "initial schema: notes table",
		Statements: []string{`
CREATE TABLE IF NOT EXISTS notes (
  id VARCHAR(128) NOT NULL PRIMARY KEY,
  title TEXT NOT NULL,
  created_at CHAR(30) NOT NULL,
  salt TEXT,
  iv TEXT,
  data LONGTEXT,
  files_json LONGTEXT
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	},
	{
		Version:     2,
		Description: "list ordering index",
		Statements: []string{
			`CREATE INDEX idx_notes_created_at ON notes (created_at, id)`,
		},
	},
}

// ensureMigrationsTable creates the schema_migrations table if it doesn't exist.
func ensureMigrationsTable(db *sql.DB, d dialect) error {
	_, err := db.Exec(d.migrationsTableSQL)
	return err
}

// currentVersion returns the highest applied migration version, or 0 if none.
func currentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func tableExists(db *sql.DB, d dialect, name string) (bool, error) {
	var count int
	if err := db.QueryRow(d.tableExistsQuery, name).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func columnExists(db *sql.DB, d dialect, table, column string) (bool, error) {
	var count int
	if err := db.QueryRow(d.columnExistsQuery, table, column).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// repairLegacyColumns adds nullable note columns missing from a table that
// an older build created before migrations were tracked.
func repairLegacyColumns(db *sql.DB, d dialect) error {
	for _, col := range d.legacyColumns {
		exists, err := columnExists(db, d, "notes", col.name)
		if err != nil {
			return fmt.Errorf("inspect column %s: %w", col.name, err)
		}
		if exists {
			continue
		}
		if _, err := db.Exec(fmt.Sprintf("ALTER TABLE notes ADD COLUMN %s %s", col.name, col.sqlType)); err != nil {
			return fmt.Errorf("add column %s: %w", col.name, err)
		}
	}
	return nil
}

// detectPreMigrationDB checks if the notes table exists but no migrations have been recorded.
// Such databases were created by an earlier server build that bootstrapped the table directly.
func detectPreMigrationDB(db *sql.DB, d dialect) (bool, error) {
	notesExist, err := tableExists(db, d, "notes")
	if err != nil || !notesExist {
		return false, err
	}

	migrationsExist, err := tableExists(db, d, "schema_migrations")
	if err != nil {
		return false, err
	}
	if !migrationsExist {
		return true, nil
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

func sortedMigrations(d dialect) []Migration {
	sorted := make([]Migration, len(d.migrations))
	copy(sorted, d.migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	return sorted
}

// runMigrations applies all pending migrations in order.
func runMigrations(db *sql.DB, d dialect) error {
	// Detect pre-migration databases BEFORE creating the migrations table.
	preMigration, err := detectPreMigrationDB(db, d)
	if err != nil {
		return fmt.Errorf("detect pre-migration db: %w", err)
	}

	if err := ensureMigrationsTable(db, d); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	if preMigration {
		if err := repairLegacyColumns(db, d); err != nil {
			return fmt.Errorf("repair pre-migration db: %w", err)
		}
		// Mark migration 1 as applied since the table already exists.
		if _, err := db.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)", 1, formatTime(time.Now())); err != nil {
			return fmt.Errorf("stamp pre-migration db: %w", err)
		}
	}

	current, err := currentVersion(db)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	for _, m := range sortedMigrations(d) {
		if m.Version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		for _, stmt := range m.Statements {
			if _, err := tx.Exec(stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
			}
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)", m.Version, formatTime(time.Now())); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// migrationPlan returns the current migration status without applying anything.
func migrationPlan(db *sql.DB, d dialect) (*MigrationStatus, error) {
	preMigration, err := detectPreMigrationDB(db, d)
	if err != nil {
		return nil, err
	}

	migrationsExist, err := tableExists(db, d, "schema_migrations")
	if err != nil {
		return nil, err
	}
	current := 0
	if migrationsExist {
		current, err = currentVersion(db)
		if err != nil {
			return nil, err
		}
	}

	// If pre-migration DB, treat as version 1 for planning purposes.
	effective := current
	if preMigration && effective == 0 {
		effective = 1
	}

	sorted := sortedMigrations(d)
	available := 0
	if len(sorted) > 0 {
		available = sorted[len(sorted)-1].Version
	}

	pending := []MigrationInfo{}
	for _, m := range sorted {
		if m.Version > effective {
			pending = append(pending, MigrationInfo{Version: m.Version, Description: m.Description})
		}
	}

	return &MigrationStatus{
		Backend:          d.name,
		CurrentVersion:   effective,
		AvailableVersion: available,
		Pending:          pending,
	}, nil
}
