package store

import (
	"context"

	"sealnote/internal/models"
)

// NoteStore abstracts note persistence backends.
//
// SaveNote is one atomic read-modify-write per id: an existing note keeps its
// CreatedAt and gets the added files appended; an unknown id is inserted.
// GetNote returns (nil, nil) when the id is unknown.
type NoteStore interface {
	NoteExists(ctx context.Context, id string) (bool, error)
	SaveNote(ctx context.Context, note *models.Note, added []models.Attachment) (*models.Note, bool, error)
	GetNote(ctx context.Context, id string) (*models.Note, error)
	ListNoteMetadata(ctx context.Context) ([]models.NoteMetadata, error)
	DeleteNote(ctx context.Context, id string) (bool, error)
	StoreInfo(ctx context.Context) (StoreInfo, error)
	Close() error
}

// StoreInfo summarizes a backend for the info endpoint.
type StoreInfo struct {
	Backend       string `json:"backend"`
	NoteCount     int    `json:"note_count"`
	SchemaVersion int    `json:"schema_version,omitempty"`
}
