package models

import "time"

// Note is one client-encrypted record. Salt, IV and Data are opaque to the
// server and stored verbatim.
type Note struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	CreatedAt time.Time    `json:"created_at"`
	Salt      string       `json:"salt"`
	IV        string       `json:"iv"`
	Data      string       `json:"data"`
	Files     []Attachment `json:"files"`
}

// NoteMetadata is the list-view projection of a note. It never carries the
// note body or attachment payloads.
type NoteMetadata struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	Files     []FileMeta `json:"files"`
}

// Metadata reduces a note to its list-view projection.
func (n *Note) Metadata() NoteMetadata {
	files := make([]FileMeta, 0, len(n.Files))
	for _, file := range n.Files {
		files = append(files, file.Meta())
	}
	return NoteMetadata{
		ID:        n.ID,
		Title:     n.Title,
		CreatedAt: n.CreatedAt,
		Files:     files,
	}
}

// Merge applies an update onto an existing note. Title, IV and body are
// last-write-wins; CreatedAt is kept; added files are appended after the
// existing ones.
//
// Salt is replaced together with the body it arrived with, so the stored
// salt always belongs to the stored ciphertext. A first-salt-wins store
// would pair an old salt with a body derived from a new one.
func (n *Note) Merge(update *Note, added []Attachment) *Note {
	files := make([]Attachment, 0, len(n.Files)+len(added))
	files = append(files, n.Files...)
	files = append(files, added...)
	return &Note{
		ID:        n.ID,
		Title:     update.Title,
		CreatedAt: n.CreatedAt,
		Salt:      update.Salt,
		IV:        update.IV,
		Data:      update.Data,
		Files:     files,
	}
}
