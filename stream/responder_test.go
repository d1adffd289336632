package stream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"mediaproxy/store"
)

func newTestResponder(t *testing.T, files map[string][]byte) *Responder {
	t.Helper()
	st, err := store.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local store: %v", err)
	}
	ctx := t.Context()
	for p, data := range files {
		wc, err := st.OpenWrite(ctx, p)
		if err != nil {
			t.Fatalf("failed to open %s for writing: %v", p, err)
		}
		if _, err := wc.Write(data); err != nil {
			t.Fatalf("failed to write %s: %v", p, err)
		}
		if err := wc.Close(); err != nil {
			t.Fatalf("failed to close %s: %v", p, err)
		}
	}
	return &Responder{Store: st}
}

func serve(rp *Responder, method, path, rangeHeader string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, "/files", nil)
	if rangeHeader != "" {
		r.Header.Set("Range", rangeHeader)
	}
	w := httptest.NewRecorder()
	rp.ServeFile(w, r, path)
	return w
}

func TestServeFileFull(t *testing.T) {
	content := []byte("the quick brown fox jumps over the lazy dog")
	rp := newTestResponder(t, map[string][]byte{"/organizations/acme/a.txt": content})

	w := serve(rp, http.MethodGet, "/organizations/acme/a.txt", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Content-Length"); got != fmt.Sprint(len(content)) {
		t.Errorf("Content-Length = %s, want %d", got, len(content))
	}
	if got := w.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Errorf("Accept-Ranges = %q, want bytes", got)
	}
	if got := w.Header().Get("Content-Type"); got != "text/plain" {
		t.Errorf("Content-Type = %q, want text/plain", got)
	}
	if !bytes.Equal(w.Body.Bytes(), content) {
		t.Errorf("body mismatch: got %q", w.Body.String())
	}
}

func TestServeFilePartial(t *testing.T) {
	content := []byte("0123456789abcdefghij")
	rp := newTestResponder(t, map[string][]byte{"/x/data.bin": content})

	w := serve(rp, http.MethodGet, "/x/data.bin", "bytes=5-9")
	if w.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", w.Code)
	}
	if got := w.Header().Get("Content-Range"); got != "bytes 5-9/20" {
		t.Errorf("Content-Range = %q, want bytes 5-9/20", got)
	}
	if got := w.Header().Get("Content-Length"); got != "5" {
		t.Errorf("Content-Length = %q, want 5", got)
	}
	if w.Body.String() != "56789" {
		t.Errorf("body = %q, want 56789", w.Body.String())
	}
}

// The 10MB seek scenario: a one-megabyte window out of a ten-megabyte video.
func TestServeFileVideoSeek(t *testing.T) {
	content := make([]byte, 10_000_000)
	for i := range content {
		content[i] = byte(i % 251)
	}
	rp := newTestResponder(t, map[string][]byte{"/orgs/acme/clips/video.mp4": content})

	w := serve(rp, http.MethodGet, "/orgs/acme/clips/video.mp4", "bytes=1000000-1999999")
	if w.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", w.Code)
	}
	if got := w.Header().Get("Content-Range"); got != "bytes 1000000-1999999/10000000" {
		t.Errorf("Content-Range = %q", got)
	}
	if got := w.Header().Get("Content-Length"); got != "1000000" {
		t.Errorf("Content-Length = %q, want 1000000", got)
	}
	if got := w.Header().Get("Content-Type"); got != "video/mp4" {
		t.Errorf("Content-Type = %q, want video/mp4", got)
	}
	if !bytes.Equal(w.Body.Bytes(), content[1000000:2000000]) {
		t.Error("body does not match the requested byte window")
	}
}

func TestServeFileRangeBodiesMatchSource(t *testing.T) {
	content := []byte("abcdefghijklmnopqrstuvwxyz")
	rp := newTestResponder(t, map[string][]byte{"/w.bin": content})

	for start := int64(0); start < int64(len(content)); start += 7 {
		for end := start; end < int64(len(content)); end += 5 {
			w := serve(rp, http.MethodGet, "/w.bin", fmt.Sprintf("bytes=%d-%d", start, end))
			if w.Code != http.StatusPartialContent {
				t.Fatalf("range %d-%d: status %d", start, end, w.Code)
			}
			if !bytes.Equal(w.Body.Bytes(), content[start:end+1]) {
				t.Fatalf("range %d-%d: body %q", start, end, w.Body.String())
			}
		}
	}
}

func TestServeFileEndClamped(t *testing.T) {
	content := []byte("0123456789")
	rp := newTestResponder(t, map[string][]byte{"/c.bin": content})

	w := serve(rp, http.MethodGet, "/c.bin", "bytes=5-5000")
	if w.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", w.Code)
	}
	if got := w.Header().Get("Content-Range"); got != "bytes 5-9/10" {
		t.Errorf("Content-Range = %q, want bytes 5-9/10", got)
	}
	if w.Body.String() != "56789" {
		t.Errorf("body = %q, want 56789", w.Body.String())
	}
}

func TestServeFileUnsatisfiable(t *testing.T) {
	rp := newTestResponder(t, map[string][]byte{"/c.bin": []byte("0123456789")})

	w := serve(rp, http.MethodGet, "/c.bin", "bytes=10-")
	if w.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Fatalf("status = %d, want 416", w.Code)
	}
	if got := w.Header().Get("Content-Range"); got != "bytes */10" {
		t.Errorf("Content-Range = %q, want bytes */10", got)
	}
}

func TestServeFileMissingPath(t *testing.T) {
	rp := newTestResponder(t, nil)
	w := serve(rp, http.MethodGet, "", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestServeFileMalformedRange(t *testing.T) {
	rp := newTestResponder(t, map[string][]byte{"/c.bin": []byte("0123456789")})
	w := serve(rp, http.MethodGet, "/c.bin", "bytes=zz-yy")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestServeFileNotFound(t *testing.T) {
	rp := newTestResponder(t, nil)
	w := serve(rp, http.MethodGet, "/nope/missing.png", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestServeFileHead(t *testing.T) {
	content := []byte("0123456789")
	rp := newTestResponder(t, map[string][]byte{"/h.bin": content})

	w := serve(rp, http.MethodHead, "/h.bin", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Content-Length"); got != "10" {
		t.Errorf("Content-Length = %q, want 10", got)
	}
	if w.Body.Len() != 0 {
		t.Errorf("HEAD response has a body of %d bytes", w.Body.Len())
	}

	w = serve(rp, http.MethodHead, "/h.bin", "bytes=2-4")
	if w.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("HEAD response has a body of %d bytes", w.Body.Len())
	}
}

// failingStore fails every call with a transport-style error, exercising
// the 500 path as distinct from not-found.
type failingStore struct{}

var errBackendDown = fmt.Errorf("backend down")

func (failingStore) Exists(ctx context.Context, p string) (bool, error) {
	return false, errBackendDown
}

func (failingStore) Stat(ctx context.Context, p string) (store.FileInfo, error) {
	return store.FileInfo{}, errBackendDown
}

func (failingStore) OpenRead(ctx context.Context, p string, br *store.ByteRange) (io.ReadCloser, error) {
	return nil, errBackendDown
}

func (failingStore) OpenWrite(ctx context.Context, p string) (io.WriteCloser, error) {
	return nil, errBackendDown
}

func (failingStore) List(ctx context.Context, p string) ([]store.Entry, error) {
	return nil, errBackendDown
}

func (failingStore) Move(ctx context.Context, from, to string) error { return errBackendDown }
func (failingStore) Delete(ctx context.Context, p string) error      { return errBackendDown }

func TestServeFileTransportError(t *testing.T) {
	rp := &Responder{Store: failingStore{}}
	w := serve(rp, http.MethodGet, "/x.bin", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if w.Body.String() == errBackendDown.Error()+"\n" {
		t.Error("error detail leaked to the client body")
	}
}

// openFailStore stats fine but every read open fails, exercising the window
// between a successful Stat and a failed OpenRead.
type openFailStore struct{ failingStore }

func (openFailStore) Stat(ctx context.Context, p string) (store.FileInfo, error) {
	return store.FileInfo{Size: 100}, nil
}

func TestServeFileOpenFailureDropsContentRange(t *testing.T) {
	rp := &Responder{Store: openFailStore{}}
	w := serve(rp, http.MethodGet, "/x.bin", "bytes=0-9")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if got := w.Header().Get("Content-Range"); got != "" {
		t.Errorf("error response carries Content-Range %q", got)
	}
}

// truncatedStore delivers only a prefix of each object before its reader
// fails with a transport error.
type truncatedStore struct {
	failingStore
	data    []byte
	deliver int
}

func (s *truncatedStore) Stat(ctx context.Context, p string) (store.FileInfo, error) {
	return store.FileInfo{Size: int64(len(s.data))}, nil
}

func (s *truncatedStore) OpenRead(ctx context.Context, p string, br *store.ByteRange) (io.ReadCloser, error) {
	window := s.data
	if br != nil {
		window = s.data[br.Start : br.End+1]
	}
	n := s.deliver
	if n > len(window) {
		n = len(window)
	}
	return io.NopCloser(&truncatedReader{data: window[:n]}), nil
}

type truncatedReader struct {
	data []byte
	off  int
}

func (r *truncatedReader) Read(p []byte) (int, error) {
	if r.off >= len(r.data) {
		return 0, errBackendDown
	}
	n := copy(p, r.data[r.off:])
	r.off += n
	return n, nil
}

// A reader that dies after headers are committed must not disturb the
// already-written status; the body is simply cut short.
func TestServeFileMidStreamFailureKeepsStatus(t *testing.T) {
	st := &truncatedStore{data: []byte("0123456789"), deliver: 5}
	rp := &Responder{Store: st}

	w := serve(rp, http.MethodGet, "/x.bin", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want the committed 200", w.Code)
	}
	if w.Body.String() != "01234" {
		t.Errorf("body = %q, want the delivered prefix 01234", w.Body.String())
	}

	w = serve(rp, http.MethodGet, "/x.bin", "bytes=2-8")
	if w.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want the committed 206", w.Code)
	}
	if got := w.Header().Get("Content-Range"); got != "bytes 2-8/10" {
		t.Errorf("Content-Range = %q, want bytes 2-8/10", got)
	}
	if w.Body.String() != "23456" {
		t.Errorf("body = %q, want the delivered window prefix 23456", w.Body.String())
	}
}
