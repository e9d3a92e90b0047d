package models

// Attachment is one encrypted file stored with a note.
//
// Exactly one of Path and Data is set once persisted: Path names a blob held
// by a file-resident blob store, Data carries base64 ciphertext inline in the
// note record. Size is the decoded ciphertext length in bytes.
type Attachment struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	IV       string `json:"iv"`
	Path     string `json:"path,omitempty"`
	Data     string `json:"data,omitempty"`
}

// FileMeta is the list-view projection of an attachment.
type FileMeta struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// Meta drops everything but filename and size.
func (a Attachment) Meta() FileMeta {
	return FileMeta{Filename: a.Filename, Size: a.Size}
}

// IsInline reports whether the payload lives inside the note record.
func (a Attachment) IsInline() bool {
	return a.Path == "" && a.Data != ""
}
