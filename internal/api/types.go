package api

import (
	"time"

	"sealnote/internal/models"
)

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// FileUpload is one attachment in an upsert payload. Data is base64 ciphertext.
type FileUpload struct {
	Filename string `json:"filename"`
	Data     string `json:"data"`
	IV       string `json:"iv"`
}

// NoteUpsertRequest creates or updates a note.
// Pointer fields distinguish an absent field from an empty one.
type NoteUpsertRequest struct {
	ID    string       `json:"id,omitempty"`
	Title *string      `json:"title"`
	Salt  *string      `json:"salt"`
	IV    *string      `json:"iv"`
	Data  *string      `json:"data"`
	Files []FileUpload `json:"files,omitempty"`
}

// NoteUpsertResponse acknowledges an upsert.
type NoteUpsertResponse struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
}

// DeleteResponse acknowledges a delete.
type DeleteResponse struct {
	OK bool `json:"ok"`
}

// NoteListResponse is the listing payload; it never carries ciphertext.
type NoteListResponse struct {
	Notes []models.NoteMetadata `json:"notes"`
}

// AttachmentResponse is a hydrated attachment in a note detail.
type AttachmentResponse struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	IV       string `json:"iv"`
	Data     string `json:"data"`
}

// NoteResponse is the full note detail.
type NoteResponse struct {
	ID        string               `json:"id"`
	Title     string               `json:"title"`
	CreatedAt time.Time            `json:"created_at"`
	Salt      string               `json:"salt"`
	IV        string               `json:"iv"`
	Data      string               `json:"data"`
	Files     []AttachmentResponse `json:"files"`
}

// InfoResponse describes the running server.
type InfoResponse struct {
	Backend            string `json:"backend"`
	BlobBackend        string `json:"blob_backend"`
	NoteCount          int    `json:"note_count"`
	SchemaVersion      int    `json:"schema_version,omitempty"`
	MaxAttachmentBytes int64  `json:"max_attachment_bytes"`
}

// NewNoteResponse converts a hydrated note into its wire form.
func NewNoteResponse(note *models.Note) NoteResponse {
	files := make([]AttachmentResponse, 0, len(note.Files))
	for _, f := range note.Files {
		files = append(files, AttachmentResponse{
			Filename: f.Filename,
			Size:     f.Size,
			IV:       f.IV,
			Data:     f.Data,
		})
	}
	return NoteResponse{
		ID:        note.ID,
		Title:     note.Title,
		CreatedAt: note.CreatedAt,
		Salt:      note.Salt,
		IV:        note.IV,
		Data:      note.Data,
		Files:     files,
	}
}
