package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/murmurnotes/murmur/pkg/types"
)

type createNoteRequest struct {
	Folder   string `json:"folder"`
	Name     string `json:"name"`
	Content  string `json:"content"`
	FileType string `json:"file_type"`
}

type updateNoteRequest struct {
	Content          *string `json:"content"`
	ExpectedRevision *int    `json:"expected_revision"`
}

type renameRequest struct {
	NewName string `json:"new_name"`
}

type moveRequest struct {
	TargetFolder *string `json:"target_folder"`
}

type replaceMarkerRequest struct {
	MarkerToken string `json:"marker_token"`
	Replacement string `json:"replacement_text"`
}

// notePath extracts the wildcard note path from the route.
func notePath(r *http.Request) string {
	return strings.Trim(chi.URLParam(r, "*"), "/")
}

// handleListNotes lists every note, or one folder's notes when
// ?folder= is non-empty.
func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	var err error
	var items []types.NoteListItem
	if folder := r.URL.Query().Get("folder"); folder != "" {
		items, err = s.notes.ListNotes(folder)
	} else {
		items, err = s.notes.ListAllNotes()
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": items, "count": len(items)})
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "validation", "name is required")
		return
	}
	if req.FileType == "" {
		req.FileType = "txt"
	}

	note, err := s.notes.CreateNote(req.Folder, req.Name, req.Content, req.FileType)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	note, err := s.notes.GetNote(notePath(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (s *Server) handleGetNoteByID(w http.ResponseWriter, r *http.Request) {
	note, err := s.notes.GetNoteByID(chi.URLParam(r, "noteID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var req updateNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	if req.Content == nil {
		writeError(w, http.StatusBadRequest, "validation", "content is required")
		return
	}

	note, err := s.notes.UpdateNote(notePath(r), *req.Content, req.ExpectedRevision)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.notes.DeleteNote(notePath(r)); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleNotePatch dispatches PATCH /api/notes/{path}/rename and
// /move. The action is the last path segment because the note path
// itself spans segments.
func (s *Server) handleNotePatch(w http.ResponseWriter, r *http.Request) {
	wild := notePath(r)
	switch {
	case strings.HasSuffix(wild, "/rename"):
		var req renameRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "validation", err.Error())
			return
		}
		note, err := s.notes.RenameNote(strings.TrimSuffix(wild, "/rename"), req.NewName)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, note)
	case strings.HasSuffix(wild, "/move"):
		var req moveRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "validation", err.Error())
			return
		}
		// target_folder must be present; "" moves the note to the root.
		if req.TargetFolder == nil {
			writeError(w, http.StatusBadRequest, "validation", "target_folder is required")
			return
		}
		note, err := s.notes.MoveNote(strings.TrimSuffix(wild, "/move"), *req.TargetFolder)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, note)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown note action")
	}
}

func (s *Server) handleReplaceMarker(w http.ResponseWriter, r *http.Request) {
	var req replaceMarkerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	result, err := s.notes.ReplaceMarker(chi.URLParam(r, "noteID"), req.MarkerToken, req.Replacement)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
