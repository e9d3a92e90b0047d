package server

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"sealnote/internal/blobstore"
	"sealnote/internal/models"
	"sealnote/internal/store"
)

// NoteRepository combines the note store with the blob store. It owns the
// translation between attachment records and blob refs.
type NoteRepository struct {
	store  store.NoteStore
	blobs  blobstore.BlobStore
	logger *slog.Logger
}

// NewNoteRepository constructs a NoteRepository.
func NewNoteRepository(noteStore store.NoteStore, blobs blobstore.BlobStore, logger *slog.Logger) *NoteRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoteRepository{store: noteStore, blobs: blobs, logger: logger.With("component", "note_repository")}
}

// Exists reports whether a note with id is stored.
func (r *NoteRepository) Exists(ctx context.Context, id string) (bool, error) {
	exists, err := r.store.NoteExists(ctx, id)
	if err != nil {
		return false, storeFailure(err)
	}
	return exists, nil
}

// CheckSize validates an attachment length against the blob store cap.
func (r *NoteRepository) CheckSize(size int64) error {
	return r.blobs.CheckSize(size)
}

// PutAttachment writes one decoded payload and returns its attachment record.
func (r *NoteRepository) PutAttachment(ctx context.Context, noteID, filename, iv string, payload []byte) (models.Attachment, error) {
	ref, err := r.blobs.Put(ctx, noteID, filename, payload)
	if err != nil {
		if errors.Is(err, blobstore.ErrTooLarge) {
			return models.Attachment{}, payloadTooLarge(err)
		}
		return models.Attachment{}, storeFailure(fmt.Errorf("store attachment %q: %w", filename, err))
	}

	att := models.Attachment{
		Filename: filename,
		Size:     int64(len(payload)),
		IV:       iv,
	}
	if ref.IsInline() {
		att.Data = encodePayload(ref.Inline)
	} else {
		att.Path = ref.Name
	}
	return att, nil
}

// DiscardAttachments removes blobs written for a request that did not commit.
func (r *NoteRepository) DiscardAttachments(ctx context.Context, files []models.Attachment) {
	for _, f := range files {
		if f.Path == "" {
			continue
		}
		if err := r.blobs.Delete(ctx, blobstore.Ref{Name: f.Path}); err != nil {
			r.logger.Warn("discard attachment blob", "path", f.Path, "error", err)
		}
	}
}

// Save persists note and appends added to its attachments.
func (r *NoteRepository) Save(ctx context.Context, note *models.Note, added []models.Attachment) (*models.Note, bool, error) {
	saved, created, err := r.store.SaveNote(ctx, note, added)
	if err != nil {
		return nil, false, storeFailure(err)
	}
	return saved, created, nil
}

// ListMetadata returns the list view. It never reads the blob store.
func (r *NoteRepository) ListMetadata(ctx context.Context) ([]models.NoteMetadata, error) {
	notes, err := r.store.ListNoteMetadata(ctx)
	if err != nil {
		return nil, storeFailure(err)
	}
	return notes, nil
}

// GetFull returns a note with every attachment payload inline as base64.
// Attachments whose blob is gone are left out.
func (r *NoteRepository) GetFull(ctx context.Context, id string) (*models.Note, error) {
	note, err := r.store.GetNote(ctx, id)
	if err != nil {
		return nil, storeFailure(err)
	}
	if note == nil {
		return nil, notFound(fmt.Errorf("note %s not found", id))
	}

	files := make([]models.Attachment, 0, len(note.Files))
	for _, f := range note.Files {
		payload, err := r.readAttachment(ctx, f)
		if errors.Is(err, blobstore.ErrBlobNotFound) {
			r.logger.Debug("attachment blob missing", "note_id", id, "filename", f.Filename, "path", f.Path)
			continue
		}
		if err != nil {
			return nil, storeFailure(fmt.Errorf("read attachment %q of note %s: %w", f.Filename, id, err))
		}
		files = append(files, models.Attachment{
			Filename: f.Filename,
			Size:     f.Size,
			IV:       f.IV,
			Data:     encodePayload(payload),
		})
	}
	note.Files = files
	return note, nil
}

func (r *NoteRepository) readAttachment(ctx context.Context, f models.Attachment) ([]byte, error) {
	if f.Path != "" {
		return r.blobs.Get(ctx, blobstore.Ref{Name: f.Path})
	}
	if f.Data == "" {
		return nil, blobstore.ErrBlobNotFound
	}
	inline, err := base64.StdEncoding.DecodeString(f.Data)
	if err != nil {
		return nil, fmt.Errorf("decode inline attachment: %w", err)
	}
	return r.blobs.Get(ctx, blobstore.Ref{Inline: inline})
}

// Delete removes a note and its attachment blobs. Blob delete failures are
// logged and do not stop the record removal.
func (r *NoteRepository) Delete(ctx context.Context, id string) error {
	note, err := r.store.GetNote(ctx, id)
	if err != nil {
		return storeFailure(err)
	}
	if note == nil {
		return notFound(fmt.Errorf("note %s not found", id))
	}

	for _, f := range note.Files {
		if f.Path == "" {
			continue
		}
		if err := r.blobs.Delete(ctx, blobstore.Ref{Name: f.Path}); err != nil {
			r.logger.Warn("delete attachment blob", "note_id", id, "path", f.Path, "error", err)
		}
	}

	removed, err := r.store.DeleteNote(ctx, id)
	if err != nil {
		return storeFailure(err)
	}
	if !removed {
		return notFound(fmt.Errorf("note %s not found", id))
	}
	return nil
}

// Info summarizes the note store and blob store.
func (r *NoteRepository) Info(ctx context.Context) (store.StoreInfo, string, int64, error) {
	info, err := r.store.StoreInfo(ctx)
	if err != nil {
		return info, "", 0, storeFailure(err)
	}
	return info, r.blobs.Backend(), r.blobs.Limit(), nil
}
