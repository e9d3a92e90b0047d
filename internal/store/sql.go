package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sealnote/internal/models"
)

// dialect captures what differs between the SQL backends.
type legacyColumn struct {
	name    string
	sqlType string
}

type dialect struct {
	name               string
	migrations         []Migration
	migrationsTableSQL string
	// tableExistsQuery takes the table name as its only argument and returns a count.
	tableExistsQuery string
	// columnExistsQuery takes table and column names and returns a count.
	columnExistsQuery string
	// legacyColumns are nullable note columns an older bootstrapped table may lack.
	legacyColumns []legacyColumn
	// lockSuffix is appended to the row read inside SaveNote.
	lockSuffix     string
	isDuplicateKey func(error) bool
}

const maxSaveAttempts = 5

// SQLStore is a NoteStore on top of database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

func newSQLStore(db *sql.DB, d dialect) (*SQLStore, error) {
	if err := runMigrations(db, d); err != nil {
		return nil, err
	}
	return &SQLStore{db: db, dialect: d, now: time.Now}, nil
}

// DB exposes the underlying handle for maintenance commands.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// MigrationPlan reports applied and pending migrations.
func (s *SQLStore) MigrationPlan() (*MigrationStatus, error) {
	return migrationPlan(s.db, s.dialect)
}

// NoteExists checks whether a note exists by id.
func (s *SQLStore) NoteExists(ctx context.Context, id string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM notes WHERE id = ? LIMIT 1", id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SaveNote inserts a note or merges it onto the stored one inside a single transaction.
func (s *SQLStore) SaveNote(ctx context.Context, note *models.Note, added []models.Attachment) (*models.Note, bool, error) {
	if note == nil || note.ID == "" {
		return nil, false, fmt.Errorf("note id is required")
	}

	var lastErr error
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		saved, created, err := s.saveOnce(ctx, note, added)
		if err == nil {
			return saved, created, nil
		}
		// Two first writes raced on the same id; the loser retries as an update.
		if s.dialect.isDuplicateKey != nil && s.dialect.isDuplicateKey(err) {
			lastErr = err
			continue
		}
		return nil, false, err
	}
	return nil, false, fmt.Errorf("save note %s: %w", note.ID, lastErr)
}

func (s *SQLStore) saveOnce(ctx context.Context, note *models.Note, added []models.Attachment) (*models.Note, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx, "SELECT id, title, created_at, salt, iv, data, files_json FROM notes WHERE id = ?"+s.dialect.lockSuffix, note.ID)
	existing, err := scanNote(row)
	if err != nil {
		return nil, false, err
	}

	merged, created := prepareNote(existing, note, added, s.now())
	filesJSON, err := filesToJSON(merged.Files)
	if err != nil {
		return nil, false, err
	}

	if created {
		_, err = tx.ExecContext(ctx, `INSERT INTO notes (id, title, created_at, salt, iv, data, files_json) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			merged.ID, merged.Title, formatTime(merged.CreatedAt), merged.Salt, merged.IV, merged.Data, filesJSON,
		)
	} else {
		_, err = tx.ExecContext(ctx, `UPDATE notes SET title = ?, salt = ?, iv = ?, data = ?, files_json = ? WHERE id = ?`,
			merged.Title, merged.Salt, merged.IV, merged.Data, filesJSON, merged.ID,
		)
	}
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	return merged, created, nil
}

// GetNote fetches a full note record by id.
func (s *SQLStore) GetNote(ctx context.Context, id string) (*models.Note, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, title, created_at, salt, iv, data, files_json FROM notes WHERE id = ?", id)
	return scanNote(row)
}

// ListNoteMetadata returns every note without ciphertext, newest first.
func (s *SQLStore) ListNoteMetadata(ctx context.Context) ([]models.NoteMetadata, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, title, created_at, files_json FROM notes ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []models.NoteMetadata{}
	for rows.Next() {
		var (
			meta      models.NoteMetadata
			title     sql.NullString
			createdAt string
			filesJSON sql.NullString
		)
		if err := rows.Scan(&meta.ID, &title, &createdAt, &filesJSON); err != nil {
			return nil, err
		}
		meta.Title = title.String
		if meta.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("note %s: %w", meta.ID, err)
		}
		if meta.Files, err = fileMetaFromJSON(filesJSON.String); err != nil {
			return nil, fmt.Errorf("note %s: %w", meta.ID, err)
		}
		notes = append(notes, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Rows written with a different timestamp layout still sort correctly.
	sortMetadata(notes)
	return notes, nil
}

// DeleteNote removes a note record. It reports whether a row was removed.
func (s *SQLStore) DeleteNote(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// StoreInfo reports the backend name, note count and schema version.
func (s *SQLStore) StoreInfo(ctx context.Context) (StoreInfo, error) {
	info := StoreInfo{Backend: s.dialect.name}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notes").Scan(&info.NoteCount); err != nil {
		return info, err
	}
	version, err := currentVersion(s.db)
	if err != nil {
		return info, err
	}
	info.SchemaVersion = version
	return info, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(row scanner) (*models.Note, error) {
	var (
		note      models.Note
		title     sql.NullString
		createdAt string
		salt      sql.NullString
		iv        sql.NullString
		data      sql.NullString
		filesJSON sql.NullString
	)
	err := row.Scan(&note.ID, &title, &createdAt, &salt, &iv, &data, &filesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if note.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("note %s: %w", note.ID, err)
	}
	note.Title = title.String
	note.Salt = salt.String
	note.IV = iv.String
	note.Data = data.String
	if note.Files, err = filesFromJSON(filesJSON.String); err != nil {
		return nil, fmt.Errorf("note %s: %w", note.ID, err)
	}
	return &note, nil
}
