package blobstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDiskPutGetDelete(t *testing.T) {
	disk, err := NewDisk(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("new disk: %v", err)
	}
	ctx := context.Background()

	ref, err := disk.Put(ctx, "lq1x-abc123", "report.pdf", []byte("hello"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if ref.Name == "" || ref.IsInline() {
		t.Fatalf("expected named ref, got %#v", ref)
	}
	if !strings.HasPrefix(ref.Name, "lq1x-abc123-") || !strings.HasSuffix(ref.Name, "-report.pdf") {
		t.Fatalf("unexpected storage name %q", ref.Name)
	}

	data, err := disk.Get(ctx, ref)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("expected hello, got %q", string(data))
	}

	if err := disk.Delete(ctx, ref); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := disk.Delete(ctx, ref); err != nil {
		t.Fatalf("delete missing should be noop: %v", err)
	}
	if _, err := disk.Get(ctx, ref); !errors.Is(err, ErrBlobNotFound) {
		t.Fatalf("expected ErrBlobNotFound after delete, got %v", err)
	}
}

func TestDiskPutNamesNeverCollide(t *testing.T) {
	disk, err := NewDisk(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("new disk: %v", err)
	}
	frozen := time.Unix(1700000000, 0)
	disk.now = func() time.Time { return frozen }

	seen := map[string]struct{}{}
	for i := 0; i < 20; i++ {
		ref, err := disk.Put(context.Background(), "same-note", "same.txt", []byte{byte(i)})
		if err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
		if _, dup := seen[ref.Name]; dup {
			t.Fatalf("duplicate storage name %q", ref.Name)
		}
		seen[ref.Name] = struct{}{}
	}

	entries, err := os.ReadDir(disk.Root())
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	files := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			files++
		}
	}
	if files != 20 {
		t.Fatalf("expected 20 blob files, got %d", files)
	}
}

func TestDiskPutRejectsOversizeBeforeWriting(t *testing.T) {
	root := t.TempDir()
	disk, err := NewDisk(root, 4)
	if err != nil {
		t.Fatalf("new disk: %v", err)
	}

	_, err = disk.Put(context.Background(), "n1", "big.bin", []byte("12345"))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	var tooLarge *TooLargeError
	if !errors.As(err, &tooLarge) || tooLarge.Size != 5 || tooLarge.Limit != 4 {
		t.Fatalf("expected TooLargeError{5,4}, got %#v", err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			t.Fatalf("expected no blob written, found %s", entry.Name())
		}
	}
	tmpEntries, err := os.ReadDir(filepath.Join(root, diskTmpDir))
	if err != nil {
		t.Fatalf("read tmp dir: %v", err)
	}
	if len(tmpEntries) != 0 {
		t.Fatalf("expected empty tmp dir, got %d entries", len(tmpEntries))
	}

	if _, err := disk.Put(context.Background(), "n1", "ok.bin", []byte("1234")); err != nil {
		t.Fatalf("put at limit: %v", err)
	}
}

func TestDiskRejectsTraversalNames(t *testing.T) {
	disk, err := NewDisk(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("new disk: %v", err)
	}

	for _, name := range []string{"../etc/passwd", "/etc/passwd", "a/b", "..", diskTmpDir} {
		if _, err := disk.Get(context.Background(), Ref{Name: name}); err == nil || errors.Is(err, ErrBlobNotFound) {
			t.Fatalf("expected invalid name error for %q, got %v", name, err)
		}
	}
}

func TestDiskGetResolvesInlineRefs(t *testing.T) {
	disk, err := NewDisk(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("new disk: %v", err)
	}
	data, err := disk.Get(context.Background(), Ref{Inline: []byte("abc")})
	if err != nil {
		t.Fatalf("get inline: %v", err)
	}
	if string(data) != "abc" {
		t.Fatalf("expected abc, got %q", data)
	}
}
