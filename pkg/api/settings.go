package api

import "net/http"

// handleGetSettings serves GET /api/settings with the effective
// document, defaults merged in.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Get())
}

// handleUpdateSettings serves PUT /api/settings. The body is a partial
// document merged over the stored one; the full effective document
// comes back.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "Request body must be JSON")
		return
	}
	updated, err := s.settings.Update(patch)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
