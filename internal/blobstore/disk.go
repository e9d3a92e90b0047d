package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	diskTmpDir       = ".tmp"
	diskNameAttempts = 8
)

// Disk stores each attachment as one file under root, named by SafeName.
type Disk struct {
	sizeLimit
	root string
	now  func() time.Time
}

// NewDisk creates a disk store rooted at root, capped at maxBytes per blob.
func NewDisk(root string, maxBytes int64) (*Disk, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("blob root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, diskTmpDir), 0o755); err != nil {
		return nil, err
	}
	return &Disk{sizeLimit: sizeLimit(maxBytes), root: abs, now: time.Now}, nil
}

// Root returns the absolute blob directory.
func (d *Disk) Root() string {
	return d.root
}

// Put checks the cap, then writes data to a temp file and renames it into
// place under a fresh storage name.
func (d *Disk) Put(ctx context.Context, owner, nameHint string, data []byte) (Ref, error) {
	if d == nil {
		return Ref{}, fmt.Errorf("blob store is not configured")
	}
	if data == nil {
		return Ref{}, fmt.Errorf("blob data is required")
	}
	if err := d.CheckSize(int64(len(data))); err != nil {
		return Ref{}, err
	}
	if err := ctx.Err(); err != nil {
		return Ref{}, err
	}

	tmp, err := os.CreateTemp(filepath.Join(d.root, diskTmpDir), "put-*")
	if err != nil {
		return Ref{}, err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return Ref{}, err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return Ref{}, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return Ref{}, err
	}

	for i := 0; i < diskNameAttempts; i++ {
		name := SafeName(owner, stamps.next(d.now()), nameHint)
		dst := filepath.Join(d.root, name)
		if _, err := os.Lstat(dst); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			cleanup()
			return Ref{}, err
		}
		if err := os.Rename(tmpPath, dst); err != nil {
			cleanup()
			return Ref{}, err
		}
		return Ref{Name: name}, nil
	}

	cleanup()
	return Ref{}, fmt.Errorf("unable to allocate blob name for %q", nameHint)
}

// Get reads one blob. Inline refs are returned as-is.
func (d *Disk) Get(ctx context.Context, ref Ref) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ref.IsInline() {
		return ref.Inline, nil
	}
	path, err := d.pathFromName(ref.Name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrBlobNotFound
	}
	return data, err
}

// Delete removes a blob file. Missing files and inline refs are ignored.
func (d *Disk) Delete(ctx context.Context, ref Ref) error {
	if d == nil {
		return fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if ref.Name == "" {
		return nil
	}
	path, err := d.pathFromName(ref.Name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (d *Disk) Backend() string {
	return BackendDisk
}

func (d *Disk) pathFromName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("blob name is required")
	}
	if filepath.IsAbs(name) || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid blob name")
	}
	clean := filepath.Clean(name)
	if clean == "." || clean == ".." || clean == diskTmpDir {
		return "", fmt.Errorf("invalid blob name")
	}
	return filepath.Join(d.root, clean), nil
}

var _ BlobStore = (*Disk)(nil)
