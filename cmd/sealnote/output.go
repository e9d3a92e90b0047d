package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"sealnote/internal/api"
	"sealnote/internal/format"
	"sealnote/internal/models"
)

var stdout io.Writer = os.Stdout

// outputFlags holds the global --json/--yaml selection.
type outputFlags struct {
	json bool
	yaml bool
}

func (o *outputFlags) formatter() format.Formatter {
	if o == nil {
		return nil
	}
	return format.ForFlags(o.json, o.yaml)
}

// writeStructured writes payload with the selected formatter and reports
// whether it did.
func writeStructured(out *outputFlags, payload any) (bool, error) {
	f := out.formatter()
	if f == nil {
		return false, nil
	}
	return true, f.Write(stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(stdout, format, args...)
	return err
}

var (
	idColor    = color.New(color.FgCyan).SprintFunc()
	dimColor   = color.New(color.Faint).SprintFunc()
	titleColor = color.New(color.Bold).SprintFunc()
)

func writeNoteList(notes []models.NoteMetadata, now time.Time) error {
	if len(notes) == 0 {
		return writePlain("no notes\n")
	}
	for _, note := range notes {
		if err := writePlain("%s\n", formatNoteLine(note, now)); err != nil {
			return err
		}
	}
	return nil
}

func formatNoteLine(note models.NoteMetadata, now time.Time) string {
	line := fmt.Sprintf("%s  %s  %s", idColor(note.ID), dimColor(humanize.RelTime(note.CreatedAt, now, "ago", "from now")), titleOrPlaceholder(note.Title))
	if len(note.Files) == 0 {
		return line
	}
	var total int64
	for _, f := range note.Files {
		total += f.Size
	}
	return fmt.Sprintf("%s  %s", line, dimColor(fmt.Sprintf("[%d %s, %s]", len(note.Files), plural(len(note.Files), "file", "files"), humanize.IBytes(uint64(total)))))
}

func writeNoteDetail(note api.NoteResponse) error {
	lines := []string{
		fmt.Sprintf("id: %s", idColor(note.ID)),
		fmt.Sprintf("title: %s", titleOrPlaceholder(note.Title)),
		fmt.Sprintf("created_at: %s", formatTime(note.CreatedAt)),
		fmt.Sprintf("salt: %s", note.Salt),
		fmt.Sprintf("iv: %s", note.IV),
		fmt.Sprintf("data: %s base64", humanize.IBytes(uint64(len(note.Data)))),
	}
	if len(note.Files) > 0 {
		lines = append(lines, "files:")
		for _, f := range note.Files {
			lines = append(lines, fmt.Sprintf("  - %s (%s)", f.Filename, humanize.IBytes(uint64(f.Size))))
		}
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func writeInfo(info api.InfoResponse) error {
	lines := []string{
		fmt.Sprintf("backend: %s", info.Backend),
		fmt.Sprintf("blob_backend: %s", info.BlobBackend),
		fmt.Sprintf("notes: %s", humanize.Comma(int64(info.NoteCount))),
		fmt.Sprintf("max_attachment: %s", humanize.IBytes(uint64(info.MaxAttachmentBytes))),
	}
	if info.SchemaVersion > 0 {
		lines = append(lines, fmt.Sprintf("schema_version: %d", info.SchemaVersion))
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func titleOrPlaceholder(title string) string {
	if strings.TrimSpace(title) == "" {
		return dimColor("(untitled)")
	}
	return titleColor(title)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
