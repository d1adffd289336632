package routes

import (
	"net/http"
)

// FileHandler streams a stored object back to the client with byte-range
// support. GET and HEAD only; the path comes from the "path" query
// parameter and the optional window from the standard Range header.
func (s *Server) FileHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.Stream.ServeFile(w, r, r.URL.Query().Get("path"))
}
