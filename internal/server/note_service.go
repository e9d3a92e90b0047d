package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sealnote/internal/api"
	"sealnote/internal/blobstore"
	"sealnote/internal/models"
	"sealnote/internal/store"
)

// NoteService implements the note operations exposed over HTTP.
type NoteService struct {
	repo *NoteRepository
	now  func() time.Time
}

// NewNoteService constructs a NoteService.
func NewNoteService(repo *NoteRepository) *NoteService {
	return &NoteService{repo: repo, now: time.Now}
}

type pendingFile struct {
	filename string
	iv       string
	payload  []byte
}

// Upsert creates a note or updates an existing one. Either every new
// attachment is stored together with the note fields, or nothing is.
func (s *NoteService) Upsert(ctx context.Context, req api.NoteUpsertRequest) (api.NoteUpsertResponse, error) {
	title, err := requireField("title", req.Title, true)
	if err != nil {
		return api.NoteUpsertResponse{}, err
	}
	salt, err := requireField("salt", req.Salt, false)
	if err != nil {
		return api.NoteUpsertResponse{}, err
	}
	iv, err := requireField("iv", req.IV, false)
	if err != nil {
		return api.NoteUpsertResponse{}, err
	}
	data, err := requireField("data", req.Data, false)
	if err != nil {
		return api.NoteUpsertResponse{}, err
	}

	id, err := s.resolveID(ctx, req.ID)
	if err != nil {
		return api.NoteUpsertResponse{}, err
	}

	pending, err := s.decodeFiles(req.Files)
	if err != nil {
		return api.NoteUpsertResponse{}, err
	}

	added := make([]models.Attachment, 0, len(pending))
	for _, f := range pending {
		att, err := s.repo.PutAttachment(ctx, id, f.filename, f.iv, f.payload)
		if err != nil {
			s.repo.DiscardAttachments(ctx, added)
			return api.NoteUpsertResponse{}, err
		}
		added = append(added, att)
	}

	note := &models.Note{
		ID:    id,
		Title: title,
		Salt:  salt,
		IV:    iv,
		Data:  data,
	}
	if _, _, err := s.repo.Save(ctx, note, added); err != nil {
		s.repo.DiscardAttachments(ctx, added)
		return api.NoteUpsertResponse{}, err
	}

	return api.NoteUpsertResponse{OK: true, ID: id}, nil
}

func (s *NoteService) resolveID(ctx context.Context, id string) (string, error) {
	if id != "" {
		if err := validateNoteID(id); err != nil {
			return "", err
		}
		return id, nil
	}

	var existsErr error
	generated, err := store.GenerateNoteID(s.now(), func(candidate string) (bool, error) {
		exists, err := s.repo.Exists(ctx, candidate)
		if err != nil {
			existsErr = err
		}
		return exists, err
	})
	if existsErr != nil {
		return "", existsErr
	}
	if err != nil {
		return "", internalError(fmt.Errorf("generate note id: %w", err))
	}
	return generated, nil
}

// decodeFiles drops incomplete entries and payloads that decode to nothing,
// then checks every size before anything is written.
func (s *NoteService) decodeFiles(files []api.FileUpload) ([]pendingFile, error) {
	pending := make([]pendingFile, 0, len(files))
	for _, f := range files {
		if f.Filename == "" || f.Data == "" {
			continue
		}
		payload, err := decodePayload("file data", f.Data)
		if err != nil {
			return nil, err
		}
		if len(payload) == 0 {
			continue
		}
		if err := s.repo.CheckSize(int64(len(payload))); err != nil {
			if errors.Is(err, blobstore.ErrTooLarge) {
				return nil, payloadTooLarge(fmt.Errorf("file %q: %w", f.Filename, err))
			}
			return nil, badRequest(err)
		}
		pending = append(pending, pendingFile{filename: f.Filename, iv: f.IV, payload: payload})
	}
	return pending, nil
}

// List returns the metadata view of every note.
func (s *NoteService) List(ctx context.Context) (api.NoteListResponse, error) {
	notes, err := s.repo.ListMetadata(ctx)
	if err != nil {
		return api.NoteListResponse{}, err
	}
	return api.NoteListResponse{Notes: notes}, nil
}

// Get returns a note with its attachment payloads.
func (s *NoteService) Get(ctx context.Context, id string) (api.NoteResponse, error) {
	if !validateID(id) {
		return api.NoteResponse{}, notFound(fmt.Errorf("note %s not found", id))
	}
	note, err := s.repo.GetFull(ctx, id)
	if err != nil {
		return api.NoteResponse{}, err
	}
	return api.NewNoteResponse(note), nil
}

// Delete removes a note and its attachments.
func (s *NoteService) Delete(ctx context.Context, id string) (api.DeleteResponse, error) {
	if !validateID(id) {
		return api.DeleteResponse{}, notFound(fmt.Errorf("note %s not found", id))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return api.DeleteResponse{}, err
	}
	return api.DeleteResponse{OK: true}, nil
}

// Info reports backend details for the info endpoint.
func (s *NoteService) Info(ctx context.Context) (api.InfoResponse, error) {
	info, blobBackend, limit, err := s.repo.Info(ctx)
	if err != nil {
		return api.InfoResponse{}, err
	}
	return api.InfoResponse{
		Backend:            info.Backend,
		BlobBackend:        blobBackend,
		NoteCount:          info.NoteCount,
		SchemaVersion:      info.SchemaVersion,
		MaxAttachmentBytes: limit,
	}, nil
}
