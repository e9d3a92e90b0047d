package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"sealnote/internal/api"
	"sealnote/internal/blobstore"
	"sealnote/internal/store"
)

func TestListenAddrRemoteGuard(t *testing.T) {
	t.Run("allows loopback", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		addr, err := ListenAddr("http://127.0.0.1:8787")
		if err != nil {
			t.Fatalf("expected loopback to be allowed, got error: %v", err)
		}
		if addr != "127.0.0.1:8787" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})

	t.Run("blocks non-loopback by default", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		_, err := ListenAddr("http://0.0.0.0:8787")
		if err == nil {
			t.Fatal("expected error for non-loopback listen host")
		}
	})

	t.Run("allows non-loopback when explicitly enabled", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "true")
		addr, err := ListenAddr("http://0.0.0.0:8787")
		if err != nil {
			t.Fatalf("expected allow-remote to permit host, got error: %v", err)
		}
		if addr != "0.0.0.0:8787" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "notes.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	blobs, err := blobstore.NewDisk(filepath.Join(t.TempDir(), "blobs"), testAttachmentLimit)
	if err != nil {
		t.Fatalf("open blobs: %v", err)
	}
	return New("127.0.0.1:0", st, blobs, opts, nil)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var errResp api.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decode error response: %v (%s)", err, w.Body.String())
	}
	return errResp
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()
	w := doJSON(t, h, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestNotesHTTPLifecycle(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	w := doJSON(t, h, http.MethodPost, "/api/notes", upsertReq("", api.FileUpload{Filename: "a.bin", Data: b64("hello"), IV: "iv"}))
	if w.Code != http.StatusOK {
		t.Fatalf("upsert: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var created api.NoteUpsertResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode upsert: %v", err)
	}
	if !created.OK || created.ID == "" {
		t.Fatalf("unexpected upsert response: %+v", created)
	}

	w = doJSON(t, h, http.MethodGet, "/api/notes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	var raw map[string][]map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(raw["notes"]) != 1 {
		t.Fatalf("expected one listed note, got %s", w.Body.String())
	}
	listed := raw["notes"][0]
	for _, forbidden := range []string{"data", "salt", "iv"} {
		if _, ok := listed[forbidden]; ok {
			t.Fatalf("list leaked %q: %s", forbidden, w.Body.String())
		}
	}
	files, _ := listed["files"].([]any)
	if len(files) != 1 {
		t.Fatalf("expected file metadata in list, got %s", w.Body.String())
	}
	if _, ok := files[0].(map[string]any)["data"]; ok {
		t.Fatalf("list leaked attachment data: %s", w.Body.String())
	}

	w = doJSON(t, h, http.MethodGet, "/api/notes/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}
	var detail api.NoteResponse
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if len(detail.Files) != 1 || detail.Files[0].Data != b64("hello") || detail.Files[0].Size != 5 {
		t.Fatalf("unexpected detail files: %+v", detail.Files)
	}
	if strings.Contains(w.Body.String(), `"path"`) {
		t.Fatalf("detail leaked storage path: %s", w.Body.String())
	}

	w = doJSON(t, h, http.MethodDelete, "/api/notes/"+created.ID, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("delete: unexpected response %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodDelete, "/api/notes/"+created.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", w.Code)
	}
	errResp := decodeErrorBody(t, w)
	if errResp.Kind != kindNotFound || errResp.ErrorCode != ErrCodeNoteNotFound {
		t.Fatalf("unexpected error body: %+v", errResp)
	}
}

func TestUpsertHTTPErrors(t *testing.T) {
	h := newTestServer(t, Options{MaxRequestBytes: 512}).Handler()

	tests := []struct {
		name   string
		body   string
		status int
		kind   string
		code   int
	}{
		{"invalid json", `{"title":`, http.StatusBadRequest, kindValidation, ErrCodeInvalidJSON},
		{"missing title", `{"salt":"s","iv":"i","data":"d"}`, http.StatusBadRequest, kindValidation, ErrCodeMissingRequired},
		{"too large body", `{"title":"` + strings.Repeat("x", 1024) + `"}`, http.StatusBadRequest, kindValidation, ErrCodeRequestTooLarge},
		{"oversize file", `{"title":"t","salt":"s","iv":"i","data":"d","files":[{"filename":"a","iv":"i","data":"` + b64(strings.Repeat("z", testAttachmentLimit+1)) + `"}]}`, http.StatusBadRequest, kindPayloadTooLarge, ErrCodePayloadTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/notes", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d (%s)", tt.status, w.Code, w.Body.String())
			}
			errResp := decodeErrorBody(t, w)
			if errResp.Kind != tt.kind || errResp.ErrorCode != tt.code {
				t.Fatalf("unexpected error body: %+v", errResp)
			}
			if errResp.Error == "" {
				t.Fatal("expected error message")
			}
		})
	}
}

func TestStoreErrorsHideDetail(t *testing.T) {
	srv := newTestServer(t, Options{})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
	srv.writeServiceError(w, req, storeFailure(errString("database is locked at /secret/path")))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	errResp := decodeErrorBody(t, w)
	if errResp.Error != "internal error" || errResp.Kind != kindStore || errResp.ErrorCode != ErrCodeStoreFailure {
		t.Fatalf("unexpected error body: %+v", errResp)
	}
}

type errString string

func (e errString) Error() string { return string(e) }

func TestGetUnknownNoteHTTP(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()
	w := doJSON(t, h, http.MethodGet, "/api/notes/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "client-req-1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get(requestIDHeader); got != "client-req-1" {
		t.Fatalf("expected client request id echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "has space")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	got := w.Header().Get(requestIDHeader)
	if got == "" || got == "has space" {
		t.Fatalf("expected generated request id, got %q", got)
	}
}

func TestWritesAreRateLimited(t *testing.T) {
	h := newTestServer(t, Options{WriteRPS: 0.001, WriteBurst: 1}).Handler()

	w := doJSON(t, h, http.MethodPost, "/api/notes", upsertReq("n1"))
	if w.Code != http.StatusOK {
		t.Fatalf("first write: expected 200, got %d", w.Code)
	}
	w = doJSON(t, h, http.MethodPost, "/api/notes", upsertReq("n1"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second write: expected 429, got %d", w.Code)
	}
	errResp := decodeErrorBody(t, w)
	if errResp.Kind != kindRateLimited || errResp.ErrorCode != ErrCodeResourceExhausted {
		t.Fatalf("unexpected error body: %+v", errResp)
	}

	// Reads are not limited.
	w = doJSON(t, h, http.MethodGet, "/api/notes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("read: expected 200, got %d", w.Code)
	}
}

func TestInfoHTTP(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()
	w := doJSON(t, h, http.MethodGet, "/api/info", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var info api.InfoResponse
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Backend != store.BackendSQLite || info.BlobBackend != blobstore.BackendDisk || info.MaxAttachmentBytes != testAttachmentLimit {
		t.Fatalf("unexpected info: %+v", info)
	}
}
