package routes

import (
	"encoding/json"
	"net/http"

	"mediaproxy/logger"
	"mediaproxy/logo"
	"mediaproxy/orgs"
	"mediaproxy/store"
)

// OrgHandler manages organization records and their store folders.
// POST creates, GET lists, DELETE removes the record and its media folder.
func (s *Server) OrgHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createOrg(w, r)
	case http.MethodGet:
		s.listOrgs(w, r)
	case http.MethodDelete:
		s.deleteOrg(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) createOrg(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string            `json:"name"`
		Settings map[string]string `json:"settings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	org := orgs.Organization{
		Name:     req.Name,
		Folder:   logo.OrgScope(req.Name),
		Settings: req.Settings,
	}
	if err := orgs.Put(org); err != nil {
		logger.Errorf("create organization %s failed: %v", req.Name, err)
		http.Error(w, "failed to create organization", http.StatusInternalServerError)
		return
	}
	logger.Infof("created organization %s", req.Name)
	writeJSON(w, http.StatusOK, org)
}

func (s *Server) listOrgs(w http.ResponseWriter, r *http.Request) {
	all, err := orgs.List()
	if err != nil {
		logger.Errorf("list organizations failed: %v", err)
		http.Error(w, "failed to list organizations", http.StatusInternalServerError)
		return
	}
	if all == nil {
		all = []orgs.Organization{}
	}
	writeJSON(w, http.StatusOK, all)
}

func (s *Server) deleteOrg(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	record, err := orgs.Get(name)
	if err != nil {
		logger.Errorf("organization lookup for %s failed: %v", name, err)
		http.Error(w, "organization lookup failed", http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.Error(w, "unknown organization", http.StatusNotFound)
		return
	}
	if err := s.Store.Delete(r.Context(), record.Folder); err != nil && !store.IsNotFound(err) {
		logger.Errorf("delete folder %s failed: %v", record.Folder, err)
		http.Error(w, "failed to delete organization media", http.StatusInternalServerError)
		return
	}
	if err := orgs.Delete(name); err != nil {
		logger.Errorf("delete organization %s failed: %v", name, err)
		http.Error(w, "failed to delete organization", http.StatusInternalServerError)
		return
	}
	logger.Infof("deleted organization %s", name)
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// OrgRenameHandler renames an organization: the store folder moves and the
// record is rewritten under the new name.
func (s *Server) OrgRenameHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.From == "" || req.To == "" {
		http.Error(w, "from and to are required", http.StatusBadRequest)
		return
	}
	record, err := orgs.Get(req.From)
	if err != nil {
		logger.Errorf("organization lookup for %s failed: %v", req.From, err)
		http.Error(w, "organization lookup failed", http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.Error(w, "unknown organization", http.StatusNotFound)
		return
	}

	newFolder := logo.OrgScope(req.To)
	if err := s.Store.Move(r.Context(), record.Folder, newFolder); err != nil && !store.IsNotFound(err) {
		logger.Errorf("move folder %s -> %s failed: %v", record.Folder, newFolder, err)
		http.Error(w, "failed to move organization media", http.StatusInternalServerError)
		return
	}

	renamed := *record
	renamed.Name = req.To
	renamed.Folder = newFolder
	if err := orgs.Put(renamed); err != nil {
		logger.Errorf("store renamed organization %s failed: %v", req.To, err)
		http.Error(w, "failed to rename organization", http.StatusInternalServerError)
		return
	}
	if err := orgs.Delete(req.From); err != nil {
		logger.Errorf("remove old organization record %s failed: %v", req.From, err)
	}
	logger.Infof("renamed organization %s -> %s", req.From, req.To)
	writeJSON(w, http.StatusOK, renamed)
}
