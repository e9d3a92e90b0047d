package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"sealnote/internal/models"
)

// dbTimeLayout is fixed width so lexical order equals chronological order.
const dbTimeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(dbTimeLayout)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dbTimeLayout, value)
	if err == nil {
		return t, nil
	}
	// Rows written by other tools may carry plain RFC 3339.
	return time.Parse(time.RFC3339Nano, value)
}

func filesToJSON(files []models.Attachment) (string, error) {
	if files == nil {
		files = []models.Attachment{}
	}
	data, err := json.Marshal(files)
	if err != nil {
		return "", fmt.Errorf("marshal files_json: %w", err)
	}
	return string(data), nil
}

func filesFromJSON(raw string) ([]models.Attachment, error) {
	files := []models.Attachment{}
	if raw == "" {
		return files, nil
	}
	if err := json.Unmarshal([]byte(raw), &files); err != nil {
		return nil, fmt.Errorf("parse files_json: %w", err)
	}
	return files, nil
}

// fileMetaFromJSON decodes only filename and size from files_json.
func fileMetaFromJSON(raw string) ([]models.FileMeta, error) {
	files := []models.FileMeta{}
	if raw == "" {
		return files, nil
	}
	if err := json.Unmarshal([]byte(raw), &files); err != nil {
		return nil, fmt.Errorf("parse files_json: %w", err)
	}
	return files, nil
}

// prepareNote merges an update onto existing (which may be nil) and fills
// CreatedAt for new notes.
func prepareNote(existing, note *models.Note, added []models.Attachment, now time.Time) (*models.Note, bool) {
	if existing != nil {
		return existing.Merge(note, added), false
	}
	created := &models.Note{
		ID:        note.ID,
		CreatedAt: note.CreatedAt,
		Files:     []models.Attachment{},
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = now.UTC()
	}
	return created.Merge(note, added), true
}

// sortMetadata orders newest first; ties fall back to id descending.
func sortMetadata(notes []models.NoteMetadata) {
	sort.SliceStable(notes, func(i, j int) bool {
		if !notes[i].CreatedAt.Equal(notes[j].CreatedAt) {
			return notes[i].CreatedAt.After(notes[j].CreatedAt)
		}
		return notes[i].ID > notes[j].ID
	})
}

// storedNote is the document form used by the key-value and file backends.
type storedNote struct {
	ID        string              `json:"id"`
	Title     string              `json:"title"`
	CreatedAt string              `json:"created_at"`
	Salt      string              `json:"salt"`
	IV        string              `json:"iv"`
	Data      string              `json:"data"`
	Files     []models.Attachment `json:"files"`
}

// storedNoteMeta decodes the listing fields of a storedNote only.
type storedNoteMeta struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	CreatedAt string            `json:"created_at"`
	Files     []models.FileMeta `json:"files"`
}

func newStoredNote(note *models.Note) storedNote {
	files := note.Files
	if files == nil {
		files = []models.Attachment{}
	}
	return storedNote{
		ID:        note.ID,
		Title:     note.Title,
		CreatedAt: formatTime(note.CreatedAt),
		Salt:      note.Salt,
		IV:        note.IV,
		Data:      note.Data,
		Files:     files,
	}
}

func (s storedNote) toNote() (*models.Note, error) {
	createdAt, err := parseTime(s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("note %s: %w", s.ID, err)
	}
	files := s.Files
	if files == nil {
		files = []models.Attachment{}
	}
	return &models.Note{
		ID:        s.ID,
		Title:     s.Title,
		CreatedAt: createdAt,
		Salt:      s.Salt,
		IV:        s.IV,
		Data:      s.Data,
		Files:     files,
	}, nil
}

func (s storedNote) metadata() (models.NoteMetadata, error) {
	note, err := s.toNote()
	if err != nil {
		return models.NoteMetadata{}, err
	}
	return note.Metadata(), nil
}

func (m storedNoteMeta) toMetadata() (models.NoteMetadata, error) {
	createdAt, err := parseTime(m.CreatedAt)
	if err != nil {
		return models.NoteMetadata{}, fmt.Errorf("note %s: %w", m.ID, err)
	}
	files := m.Files
	if files == nil {
		files = []models.FileMeta{}
	}
	return models.NoteMetadata{ID: m.ID, Title: m.Title, CreatedAt: createdAt, Files: files}, nil
}
