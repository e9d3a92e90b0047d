package blobstore

import (
	"context"
	"fmt"
)

// Inline keeps attachment bytes co-resident with the note record. Put only
// enforces the size cap and hands the bytes back for the record to carry.
type Inline struct {
	sizeLimit
}

// NewInline returns an inline store capped at maxBytes (0 disables the cap).
func NewInline(maxBytes int64) *Inline {
	return &Inline{sizeLimit: sizeLimit(maxBytes)}
}

func (s *Inline) Put(ctx context.Context, owner, nameHint string, data []byte) (Ref, error) {
	if err := ctx.Err(); err != nil {
		return Ref{}, err
	}
	if data == nil {
		return Ref{}, fmt.Errorf("blob data is required")
	}
	if err := s.CheckSize(int64(len(data))); err != nil {
		return Ref{}, err
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return Ref{Inline: buf}, nil
}

// Get returns inline bytes. Named refs belong to a file-resident store and are
// reported missing.
func (s *Inline) Get(ctx context.Context, ref Ref) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ref.IsInline() {
		return ref.Inline, nil
	}
	return nil, ErrBlobNotFound
}

// Delete is a no-op: inline bytes go away with the record.
func (s *Inline) Delete(ctx context.Context, ref Ref) error {
	return ctx.Err()
}

func (s *Inline) Backend() string {
	return BackendInline
}

var _ BlobStore = (*Inline)(nil)
