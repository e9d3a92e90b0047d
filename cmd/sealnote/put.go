package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sealnote/internal/api"
	"sealnote/internal/config"
)

func newPutCmd(cfg *config.Config, out *outputFlags) *cobra.Command {
	var (
		file string
		id   string
	)

	cmd := &cobra.Command{
		Use:   "put --file <note.json>",
		Short: "Create or update a note from an already-encrypted JSON payload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readUpsertRequest(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if id = strings.TrimSpace(id); id != "" {
				req.ID = id
			}

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.UpsertNote(cmd.Context(), req)
				if err != nil {
					return err
				}
				if done, err := writeStructured(out, resp); done {
					return err
				}
				return writePlain("%s\n", idColor(resp.ID))
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON payload file (- for stdin)")
	cmd.Flags().StringVar(&id, "id", "", "note id to create or update (overrides the payload)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readUpsertRequest(path string, stdin io.Reader) (api.NoteUpsertRequest, error) {
	var req api.NoteUpsertRequest

	var r io.Reader
	if path == "-" {
		r = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return req, err
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("parse %s: %w", displayPath(path), err)
	}
	if req.Title == nil || req.Salt == nil || req.IV == nil || req.Data == nil {
		return req, fmt.Errorf("%s: title, salt, iv and data are required", displayPath(path))
	}
	return req, nil
}

func displayPath(path string) string {
	if path == "-" {
		return "stdin"
	}
	return path
}
