package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sealnote/internal/models"
)

const fileCollectionVersion = 1

// FileStore keeps every note in a single JSON collection file.
// All operations hold the mutex; mutations rewrite the whole file.
type FileStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

type fileCollection struct {
	Version int          `json:"version"`
	Notes   []storedNote `json:"notes"`
}

// OpenFile opens the collection at path, creating its directory if needed.
func OpenFile(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("notes file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create notes dir: %w", err)
	}
	s := &FileStore{path: path, now: time.Now}
	// Fail early on an unreadable collection.
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close is a no-op; nothing is held open between calls.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) load() (*fileCollection, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &fileCollection{Version: fileCollectionVersion, Notes: []storedNote{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read notes file: %w", err)
	}
	var coll fileCollection
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &coll); err != nil {
			return nil, fmt.Errorf("parse notes file: %w", err)
		}
	}
	if coll.Notes == nil {
		coll.Notes = []storedNote{}
	}
	if coll.Version == 0 {
		coll.Version = fileCollectionVersion
	}
	return &coll, nil
}

func (s *FileStore) save(coll *fileCollection) error {
	payload, err := json.MarshalIndent(coll, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal notes file: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".notes-*")
	if err != nil {
		return fmt.Errorf("create temp notes file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp notes file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp notes file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp notes file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replace notes file: %w", err)
	}
	return nil
}

func (c *fileCollection) index(id string) int {
	for i := range c.Notes {
		if c.Notes[i].ID == id {
			return i
		}
	}
	return -1
}

// NoteExists checks whether a note exists by id.
func (s *FileStore) NoteExists(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.load()
	if err != nil {
		return false, err
	}
	return coll.index(id) >= 0, nil
}

// SaveNote merges under the store mutex and rewrites the collection.
func (s *FileStore) SaveNote(_ context.Context, note *models.Note, added []models.Attachment) (*models.Note, bool, error) {
	if note == nil || note.ID == "" {
		return nil, false, fmt.Errorf("note id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.load()
	if err != nil {
		return nil, false, err
	}

	var existing *models.Note
	idx := coll.index(note.ID)
	if idx >= 0 {
		if existing, err = coll.Notes[idx].toNote(); err != nil {
			return nil, false, err
		}
	}

	saved, created := prepareNote(existing, note, added, s.now())
	if created {
		coll.Notes = append(coll.Notes, newStoredNote(saved))
	} else {
		coll.Notes[idx] = newStoredNote(saved)
	}

	if err := s.save(coll); err != nil {
		return nil, false, err
	}
	return saved, created, nil
}

// GetNote fetches a full note record by id.
func (s *FileStore) GetNote(_ context.Context, id string) (*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.load()
	if err != nil {
		return nil, err
	}
	idx := coll.index(id)
	if idx < 0 {
		return nil, nil
	}
	return coll.Notes[idx].toNote()
}

// ListNoteMetadata returns every note without ciphertext, newest first.
func (s *FileStore) ListNoteMetadata(_ context.Context) ([]models.NoteMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.load()
	if err != nil {
		return nil, err
	}
	notes := make([]models.NoteMetadata, 0, len(coll.Notes))
	for _, stored := range coll.Notes {
		meta, err := stored.metadata()
		if err != nil {
			return nil, err
		}
		notes = append(notes, meta)
	}
	sortMetadata(notes)
	return notes, nil
}

// DeleteNote removes a note record. It reports whether the note existed.
func (s *FileStore) DeleteNote(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.load()
	if err != nil {
		return false, err
	}
	idx := coll.index(id)
	if idx < 0 {
		return false, nil
	}
	coll.Notes = append(coll.Notes[:idx], coll.Notes[idx+1:]...)
	if err := s.save(coll); err != nil {
		return false, err
	}
	return true, nil
}

// StoreInfo reports the backend name and note count.
func (s *FileStore) StoreInfo(_ context.Context) (StoreInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.load()
	if err != nil {
		return StoreInfo{Backend: BackendFile}, err
	}
	return StoreInfo{Backend: BackendFile, NoteCount: len(coll.Notes), SchemaVersion: coll.Version}, nil
}
