package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v3"

	"sealnote/internal/models"
)

const badgerNotePrefix = "note:"

// BadgerStore keeps one JSON document per note in an embedded badger database.
type BadgerStore struct {
	db  *badger.DB
	now func() time.Time
}

// OpenBadger opens (or creates) a badger database in dir.
// An empty dir opens an in-memory database.
func OpenBadger(dir string, logger *slog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(newBadgerLogger(logger))

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db, now: time.Now}, nil
}

// Close closes the badger database.
func (s *BadgerStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func badgerKey(id string) []byte {
	return []byte(badgerNotePrefix + id)
}

// NoteExists checks whether a note exists by id.
func (s *BadgerStore) NoteExists(_ context.Context, id string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(badgerKey(id))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SaveNote merges inside one badger transaction and retries on write conflicts.
func (s *BadgerStore) SaveNote(ctx context.Context, note *models.Note, added []models.Attachment) (*models.Note, bool, error) {
	if note == nil || note.ID == "" {
		return nil, false, fmt.Errorf("note id is required")
	}

	var lastErr error
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		var (
			saved   *models.Note
			created bool
		)
		err := s.db.Update(func(txn *badger.Txn) error {
			existing, err := badgerGet(txn, note.ID)
			if err != nil {
				return err
			}
			saved, created = prepareNote(existing, note, added, s.now())
			payload, err := json.Marshal(newStoredNote(saved))
			if err != nil {
				return fmt.Errorf("marshal note: %w", err)
			}
			return txn.Set(badgerKey(saved.ID), payload)
		})
		if err == nil {
			return saved, created, nil
		}
		if !errors.Is(err, badger.ErrConflict) {
			return nil, false, err
		}
		lastErr = err
	}
	return nil, false, fmt.Errorf("save note %s: %w", note.ID, lastErr)
}

// GetNote fetches a full note record by id.
func (s *BadgerStore) GetNote(_ context.Context, id string) (*models.Note, error) {
	var note *models.Note
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		note, err = badgerGet(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// ListNoteMetadata returns every note without ciphertext, newest first.
func (s *BadgerStore) ListNoteMetadata(_ context.Context) ([]models.NoteMetadata, error) {
	notes := []models.NoteMetadata{}
	prefix := []byte(badgerNotePrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var raw storedNoteMeta
				if err := json.Unmarshal(val, &raw); err != nil {
					return fmt.Errorf("unmarshal %s: %w", item.Key(), err)
				}
				meta, err := raw.toMetadata()
				if err != nil {
					return err
				}
				notes = append(notes, meta)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortMetadata(notes)
	return notes, nil
}

// DeleteNote removes a note record. It reports whether the key existed.
func (s *BadgerStore) DeleteNote(_ context.Context, id string) (bool, error) {
	removed := false
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(badgerKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		removed = true
		return txn.Delete(badgerKey(id))
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// StoreInfo reports the backend name and note count.
func (s *BadgerStore) StoreInfo(_ context.Context) (StoreInfo, error) {
	info := StoreInfo{Backend: BackendBadger}
	prefix := []byte(badgerNotePrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			info.NoteCount++
		}
		return nil
	})
	return info, err
}

func badgerGet(txn *badger.Txn, id string) (*models.Note, error) {
	item, err := txn.Get(badgerKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var raw storedNote
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &raw)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal note %s: %w", id, err)
	}
	return raw.toNote()
}

// badgerLogger routes badger's printf-style logging into slog.
type badgerLogger struct {
	logger *slog.Logger
}

func newBadgerLogger(logger *slog.Logger) *badgerLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &badgerLogger{logger: logger.With("component", "badger")}
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(badgerMessage(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(badgerMessage(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(badgerMessage(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(badgerMessage(format, args...))
}

func badgerMessage(format string, args ...any) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}
