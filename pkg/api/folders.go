package api

import (
	"net/http"
	"strings"
)

type createFolderRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleFolderTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.notes.Files().FolderTree(r.URL.Query().Get("path"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "validation", "path is required")
		return
	}

	if err := s.notes.Files().CreateFolder(req.Path); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": req.Path})
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	recursive := r.URL.Query().Get("recursive") == "true"
	if err := s.notes.Files().DeleteFolder(notePath(r), recursive); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleFolderPatch dispatches PATCH /api/folders/{path}/rename and
// /move, same shape as the note actions.
func (s *Server) handleFolderPatch(w http.ResponseWriter, r *http.Request) {
	wild := notePath(r)
	switch {
	case strings.HasSuffix(wild, "/rename"):
		var req renameRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "validation", err.Error())
			return
		}
		newPath, err := s.notes.Files().RenameFolder(strings.TrimSuffix(wild, "/rename"), req.NewName)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"path": newPath})
	case strings.HasSuffix(wild, "/move"):
		var req moveRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "validation", err.Error())
			return
		}
		if req.TargetFolder == nil {
			writeError(w, http.StatusBadRequest, "validation", "target_folder is required")
			return
		}
		newPath, err := s.notes.Files().MoveFolder(strings.TrimSuffix(wild, "/move"), *req.TargetFolder)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"path": newPath})
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown folder action")
	}
}
