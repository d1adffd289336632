// Package routes holds the HTTP handlers. Handlers translate store and
// input errors to status codes; watermark failures never surface here.
package routes

import (
	"encoding/json"
	"net/http"

	"mediaproxy/logo"
	"mediaproxy/store"
	"mediaproxy/stream"
	"mediaproxy/watermark"
)

// Server bundles the dependencies the handlers share.
type Server struct {
	Store  store.Store
	Stream *stream.Responder
	Logos  *logo.Resolver
	Marks  *watermark.Pipeline
}

// Register wires every route onto the mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/files", s.FileHandler)
	mux.HandleFunc("/upload", s.UploadHandler)
	mux.HandleFunc("/organizations", s.OrgHandler)
	mux.HandleFunc("/organizations/rename", s.OrgRenameHandler)
	mux.HandleFunc("/organizations/logo", s.OrgLogoHandler)
	mux.HandleFunc("/admin/logo", s.AdminLogoHandler)
	mux.HandleFunc("/health", HealthHandler)
	mux.HandleFunc("/version", VersionHandler)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
