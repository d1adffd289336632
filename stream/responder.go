// Package stream translates read requests with optional Range headers into
// store reads and correctly framed 200/206 responses.
package stream

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"mediaproxy/logger"
	"mediaproxy/store"
)

// Responder serves store objects over HTTP with byte-range support.
type Responder struct {
	Store store.Store
}

// ServeFile writes the object at path to w, honoring the request's Range
// header. Status codes: 200 full body, 206 partial, 400 missing path or
// malformed range, 404 absent object, 416 unsatisfiable range, 500 other
// store failures. Once headers are committed, a mid-stream read error only
// terminates the body; no second header write is ever attempted.
func (rp *Responder) ServeFile(w http.ResponseWriter, r *http.Request, path string) {
	if path == "" {
		http.Error(w, "missing path parameter", http.StatusBadRequest)
		return
	}

	fi, err := rp.Store.Stat(r.Context(), path)
	if err != nil {
		if store.IsNotFound(err) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		logger.Errorf("stat %s failed: %v", path, err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	br, err := ParseRange(r.Header.Get("Range"), fi.Size)
	if err != nil {
		if errors.Is(err, ErrUnsatisfiable) {
			w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", fi.Size))
			http.Error(w, "range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
			return
		}
		http.Error(w, "malformed range header", http.StatusBadRequest)
		return
	}

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", MimeForPath(path))

	if br == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(fi.Size, 10))
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		rc, err := rp.Store.OpenRead(r.Context(), path, nil)
		if err != nil {
			rp.openError(w, path, err)
			return
		}
		defer rc.Close()
		w.WriteHeader(http.StatusOK)
		rp.copyBody(w, rc, path)
		return
	}

	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", br.Start, br.End, fi.Size))
	w.Header().Set("Content-Length", strconv.FormatInt(br.Length(), 10))
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusPartialContent)
		return
	}
	rc, err := rp.Store.OpenRead(r.Context(), path, br)
	if err != nil {
		rp.openError(w, path, err)
		return
	}
	defer rc.Close()
	w.WriteHeader(http.StatusPartialContent)
	rp.copyBody(w, rc, path)
}

// openError handles read-open failures that happen before headers commit.
// Any staged Content-Range is dropped so the error response is not framed
// as a partial body.
func (rp *Responder) openError(w http.ResponseWriter, path string, err error) {
	w.Header().Del("Content-Range")
	if store.IsNotFound(err) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	logger.Errorf("open %s failed: %v", path, err)
	http.Error(w, "storage error", http.StatusInternalServerError)
}

// copyBody streams the object after headers are committed. Errors here
// (backend drop, client disconnect) are logged and the body is cut short.
func (rp *Responder) copyBody(w io.Writer, rc io.Reader, path string) {
	if _, err := io.Copy(w, rc); err != nil {
		logger.Warnf("stream of %s terminated: %v", path, err)
	}
}
