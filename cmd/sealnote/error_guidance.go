package main

import (
	"context"
	"errors"
	"net"

	"sealnote/internal/api"
	"sealnote/internal/store"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode {
		case api.CodeRequestTooLarge:
			lines = append(lines, "hint: the request exceeds limits.max_request_bytes on the server.")
		case api.CodeAttachmentTooLarge:
			lines = append(lines, "hint: an attachment exceeds limits.max_attachment_bytes; no part of the request was saved.")
		}
		if apiErr.Retryable() {
			lines = append(lines, "hint: the server is busy; retry shortly.")
		}
		if !apiErr.FromServer() {
			lines = append(lines, "hint: verify SEALNOTE_API_URL points to a sealnote server.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, store.ErrNoMigrations) {
		lines = append(lines, "hint: only the sqlite and mysql backends have schema migrations.")
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase SEALNOTE_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure a sealnote server is running at SEALNOTE_API_URL.",
			"hint: start a server manually with: sealnote srv",
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
