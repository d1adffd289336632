package routes

import (
	"net/http"
	"path"
	"strconv"
	"strings"

	"mediaproxy/logger"
	"mediaproxy/logo"
	"mediaproxy/stream"
)

// OrgLogoHandler fetches or replaces an organization's logo.
func (s *Server) OrgLogoHandler(w http.ResponseWriter, r *http.Request) {
	org := r.URL.Query().Get("org")
	if org == "" {
		http.Error(w, "org is required", http.StatusBadRequest)
		return
	}
	s.logoHandler(w, r, logo.OrgScope(org))
}

// AdminLogoHandler fetches or replaces the service-wide fallback logo.
func (s *Server) AdminLogoHandler(w http.ResponseWriter, r *http.Request) {
	s.logoHandler(w, r, logo.AdminScope)
}

func (s *Server) logoHandler(w http.ResponseWriter, r *http.Request, scope string) {
	switch r.Method {
	case http.MethodGet:
		s.fetchLogo(w, r, scope)
	case http.MethodPut, http.MethodPost:
		s.replaceLogo(w, r, scope)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) fetchLogo(w http.ResponseWriter, r *http.Request, scope string) {
	asset, err := s.Logos.Resolve(r.Context(), scope)
	if err != nil {
		logger.Errorf("logo resolve for %s failed: %v", scope, err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	if asset == nil {
		http.Error(w, "no logo", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", stream.MimeForPath("logo"+asset.Ext))
	w.Header().Set("Content-Length", strconv.Itoa(len(asset.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(asset.Data)
}

func (s *Server) replaceLogo(w http.ResponseWriter, r *http.Request, scope string) {
	if err := r.ParseMultipartForm(16 << 20); err != nil {
		http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Failed to get file from form", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ext := strings.ToLower(path.Ext(header.Filename))
	if !logo.ValidExt(ext) {
		http.Error(w, "unsupported logo extension", http.StatusBadRequest)
		return
	}
	stored, err := s.Logos.Replace(r.Context(), scope, ext, file)
	if err != nil {
		logger.Errorf("logo replace for %s failed: %v", scope, err)
		http.Error(w, "failed to replace logo", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": stored})
}
