package routes

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"mediaproxy/logger"
	"mediaproxy/orgs"
)

// UploadHandler receives a media file for an organization, runs the
// watermark pipeline selected by content type and writes the result to the
// remote store. The pipeline is strictly best-effort: a failed watermark
// still stores the original upload.
func (s *Server) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}

	org := r.FormValue("org")
	folder := r.FormValue("folder")
	if org == "" || folder == "" {
		http.Error(w, "org and folder are required", http.StatusBadRequest)
		return
	}
	record, err := orgs.Get(org)
	if err != nil {
		logger.Errorf("organization lookup for %s failed: %v", org, err)
		http.Error(w, "organization lookup failed", http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.Error(w, "unknown organization", http.StatusNotFound)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Failed to get file from form", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Failed to read file data", http.StatusInternalServerError)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}

	filename := path.Base(header.Filename)
	if filename == "" || filename == "." || filename == "/" {
		http.Error(w, "invalid filename", http.StatusBadRequest)
		return
	}

	out := s.applyWatermark(r, data, contentType, filename, org)

	destPath := fmt.Sprintf("/organizations/%s/%s/%s", org, folder, filename)
	wc, err := s.Store.OpenWrite(r.Context(), destPath)
	if err != nil {
		logger.Errorf("open write %s failed: %v", destPath, err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	if _, err := wc.Write(out); err != nil {
		wc.Close()
		logger.Errorf("write %s failed: %v", destPath, err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	if err := wc.Close(); err != nil {
		logger.Errorf("finish write %s failed: %v", destPath, err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	logger.Infof("stored upload %s (%d bytes, %s) for org %s", destPath, len(out), contentType, org)
	writeJSON(w, http.StatusOK, map[string]string{"path": destPath})
}

// applyWatermark selects the pipeline variant by declared content type.
// Anything that is neither image nor video passes through unmodified.
func (s *Server) applyWatermark(r *http.Request, data []byte, contentType, filename, org string) []byte {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return s.Marks.Image(r.Context(), data, org)
	case strings.HasPrefix(contentType, "video/"):
		return s.Marks.Video(r.Context(), data, strings.ToLower(path.Ext(filename)), org)
	default:
		return data
	}
}
