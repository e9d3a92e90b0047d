package blobstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBlobNotFound reports a referenced blob that no longer exists.
	ErrBlobNotFound = errors.New("blob not found")
	// ErrTooLarge reports a payload over the configured size cap.
	ErrTooLarge = errors.New("attachment too large")
)

// TooLargeError carries the rejected size and the cap.
type TooLargeError struct {
	Size  int64
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("attachment is %d bytes; limit is %d bytes", e.Size, e.Limit)
}

func (e *TooLargeError) Is(target error) bool {
	return target == ErrTooLarge
}

// Ref locates one stored blob. Name is set for blobs held by the store
// itself, Inline for payloads kept inside the owning note record.
type Ref struct {
	Name   string
	Inline []byte
}

// IsInline reports whether the payload travels with the record.
func (r Ref) IsInline() bool {
	return r.Name == "" && r.Inline != nil
}

// BlobStore is the byte-storage abstraction used by the note repository.
type BlobStore interface {
	Put(ctx context.Context, owner, nameHint string, data []byte) (Ref, error)
	Get(ctx context.Context, ref Ref) ([]byte, error)
	Delete(ctx context.Context, ref Ref) error
	CheckSize(n int64) error
	Limit() int64
	Backend() string
}

const (
	BackendInline = "inline"
	BackendDisk   = "disk"
)

type sizeLimit int64

func (l sizeLimit) CheckSize(n int64) error {
	if l > 0 && n > int64(l) {
		return &TooLargeError{Size: n, Limit: int64(l)}
	}
	return nil
}

func (l sizeLimit) Limit() int64 {
	return int64(l)
}

// Open returns the blob store variant named by backend. root is only used
// by the disk variant; an empty backend selects disk.
func Open(backend, root string, maxBytes int64) (BlobStore, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendDisk:
		disk, err := NewDisk(root, maxBytes)
		if err != nil {
			return nil, err
		}
		return disk, nil
	case BackendInline:
		return NewInline(maxBytes), nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q (expected %s or %s)", backend, BackendDisk, BackendInline)
	}
}
