package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murmurnotes/murmur/pkg/types"
)

func TestFolderTree(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodPost, "/api/folders", map[string]any{"path": "projects"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/folders", map[string]any{"path": "projects/go"})
	require.Equal(t, http.StatusCreated, rec.Code)
	env.createNote(t, "projects", "roadmap", "")

	rec = env.do(t, http.MethodGet, "/api/folders/tree", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var tree types.FolderTree
	decodeBody(t, rec, &tree)
	require.Len(t, tree.Children, 1)
	assert.Equal(t, "projects", tree.Children[0].Name)
	require.Len(t, tree.Children[0].Children, 1)
	assert.Equal(t, "go", tree.Children[0].Children[0].Name)
	require.Len(t, tree.Children[0].Notes, 1)
	assert.Equal(t, "projects/roadmap.txt", tree.Children[0].Notes[0].Path)

	// Subtree query starts at the named folder.
	rec = env.do(t, http.MethodGet, "/api/folders/tree?path=projects", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &tree)
	assert.Equal(t, "projects", tree.Name)
}

func TestCreateFolderValidation(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodPost, "/api/folders", map[string]any{"path": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/folders", map[string]any{"path": "dup"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/folders", map[string]any{"path": "dup"})
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "folder_exists", resp.Error)
}

func TestDeleteFolder(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodPost, "/api/folders", map[string]any{"path": "stuffed"})
	require.Equal(t, http.StatusCreated, rec.Code)
	env.createNote(t, "stuffed", "keep", "")

	// Non-recursive delete refuses a folder with contents.
	rec = env.do(t, http.MethodDelete, "/api/folders/stuffed", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "folder_not_empty", resp.Error)

	rec = env.do(t, http.MethodDelete, "/api/folders/stuffed?recursive=true", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/folders/stuffed", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFolderRenameAndMove(t *testing.T) {
	env := newAPIEnv(t)

	for _, path := range []string{"inbox", "archive"} {
		rec := env.do(t, http.MethodPost, "/api/folders", map[string]any{"path": path})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.do(t, http.MethodPatch, "/api/folders/inbox/rename", map[string]any{
		"new_name": "triage",
	})
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	var renamed map[string]string
	decodeBody(t, rec, &renamed)
	assert.Equal(t, "triage", renamed["path"])

	rec = env.do(t, http.MethodPatch, "/api/folders/triage/move", map[string]any{
		"target_folder": "archive",
	})
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	var moved map[string]string
	decodeBody(t, rec, &moved)
	assert.Equal(t, "archive/triage", moved["path"])
}
