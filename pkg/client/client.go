package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/murmurnotes/murmur/pkg/types"
)

// Client is a typed HTTP client for the murmur backend API.
type Client struct {
	baseURL string
	// Separate clients because audio endpoints block on whisper.
	http   *http.Client
	upload *http.Client
}

// New creates a client for a backend at baseURL, e.g.
// "http://127.0.0.1:8487".
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		upload:  &http.Client{Timeout: 10 * time.Minute},
	}
}

// APIError is a non-2xx response decoded from the backend's error
// contract.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// IsNotFound reports whether err is an APIError with the not_found
// code.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Code == "not_found"
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Code = body.Error
		apiErr.Message = body.Message
	} else {
		apiErr.Code = "unknown"
		apiErr.Message = resp.Status
	}
	return apiErr
}

// escapePath escapes each segment of a note or folder path without
// touching the separators.
func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

func (c *Client) doJSON(hc *http.Client, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) doMultipart(path string, fields map[string]string, filename string, audio io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("failed to build form: %w", err)
		}
	}
	part, err := mw.CreateFormFile("audio", filename)
	if err != nil {
		return fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return fmt.Errorf("failed to read audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to build form: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.upload.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Health checks that the backend is up.
func (c *Client) Health() error {
	return c.doJSON(c.http, http.MethodGet, "/api/health", nil, nil)
}

// CreateNote creates a note; fileType "" defaults server-side.
func (c *Client) CreateNote(folder, name, content, fileType string) (*types.Note, error) {
	var note types.Note
	err := c.doJSON(c.http, http.MethodPost, "/api/notes", map[string]any{
		"folder":    folder,
		"name":      name,
		"content":   content,
		"file_type": fileType,
	}, &note)
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// GetNote fetches a note by path.
func (c *Client) GetNote(path string) (*types.Note, error) {
	var note types.Note
	if err := c.doJSON(c.http, http.MethodGet, "/api/notes/"+escapePath(path), nil, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

// GetNoteByID fetches a note by its stable ID.
func (c *Client) GetNoteByID(noteID string) (*types.Note, error) {
	var note types.Note
	if err := c.doJSON(c.http, http.MethodGet, "/api/notes/id/"+url.PathEscape(noteID), nil, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

// ListAllNotes lists every note in the vault.
func (c *Client) ListAllNotes() ([]types.NoteListItem, error) {
	var body struct {
		Notes []types.NoteListItem `json:"notes"`
	}
	if err := c.doJSON(c.http, http.MethodGet, "/api/notes", nil, &body); err != nil {
		return nil, err
	}
	return body.Notes, nil
}

// ListNotes lists the notes directly inside folder. An empty folder
// behaves like ListAllNotes.
func (c *Client) ListNotes(folder string) ([]types.NoteListItem, error) {
	var body struct {
		Notes []types.NoteListItem `json:"notes"`
	}
	q := url.Values{"folder": {folder}}
	if err := c.doJSON(c.http, http.MethodGet, "/api/notes?"+q.Encode(), nil, &body); err != nil {
		return nil, err
	}
	return body.Notes, nil
}

// UpdateNote replaces a note's content. A non-nil expectedRevision
// turns on optimistic concurrency; a stale value comes back as a 409
// APIError with code revision_conflict.
func (c *Client) UpdateNote(path, content string, expectedRevision *int) (*types.Note, error) {
	payload := map[string]any{"content": content}
	if expectedRevision != nil {
		payload["expected_revision"] = *expectedRevision
	}
	var note types.Note
	if err := c.doJSON(c.http, http.MethodPut, "/api/notes/"+escapePath(path), payload, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

// DeleteNote removes a note.
func (c *Client) DeleteNote(path string) error {
	return c.doJSON(c.http, http.MethodDelete, "/api/notes/"+escapePath(path), nil, nil)
}

// RenameNote renames a note within its folder; identity is kept.
func (c *Client) RenameNote(path, newName string) (*types.Note, error) {
	var note types.Note
	err := c.doJSON(c.http, http.MethodPatch, "/api/notes/"+escapePath(path)+"/rename", map[string]any{
		"new_name": newName,
	}, &note)
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// MoveNote moves a note to another folder; identity is kept.
func (c *Client) MoveNote(path, targetFolder string) (*types.Note, error) {
	var note types.Note
	err := c.doJSON(c.http, http.MethodPatch, "/api/notes/"+escapePath(path)+"/move", map[string]any{
		"target_folder": targetFolder,
	}, &note)
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// ReplaceMarker splices replacement over the first occurrence of
// markerToken in the identified note. The result reports applied,
// marker_missing, or note_deleted; only transport and validation
// failures are errors.
func (c *Client) ReplaceMarker(noteID, markerToken, replacement string) (*types.ApplyResult, error) {
	var result types.ApplyResult
	err := c.doJSON(c.http, http.MethodPatch, "/api/notes/id/"+url.PathEscape(noteID)+"/replace-marker", map[string]any{
		"marker_token":     markerToken,
		"replacement_text": replacement,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// FolderTree fetches the nested folder structure from path ("" for
// the whole vault).
func (c *Client) FolderTree(path string) (*types.FolderTree, error) {
	endpoint := "/api/folders/tree"
	if path != "" {
		endpoint += "?" + url.Values{"path": {path}}.Encode()
	}
	var tree types.FolderTree
	if err := c.doJSON(c.http, http.MethodGet, endpoint, nil, &tree); err != nil {
		return nil, err
	}
	return &tree, nil
}

// CreateFolder creates a folder, parents included.
func (c *Client) CreateFolder(path string) error {
	return c.doJSON(c.http, http.MethodPost, "/api/folders", map[string]any{"path": path}, nil)
}

// DeleteFolder removes a folder; recursive deletes contents too.
func (c *Client) DeleteFolder(path string, recursive bool) error {
	endpoint := "/api/folders/" + escapePath(path)
	if recursive {
		endpoint += "?recursive=true"
	}
	return c.doJSON(c.http, http.MethodDelete, endpoint, nil, nil)
}

// RenameFolder renames a folder in place and returns its new path.
func (c *Client) RenameFolder(path, newName string) (string, error) {
	var body struct {
		Path string `json:"path"`
	}
	err := c.doJSON(c.http, http.MethodPatch, "/api/folders/"+escapePath(path)+"/rename", map[string]any{
		"new_name": newName,
	}, &body)
	if err != nil {
		return "", err
	}
	return body.Path, nil
}

// MoveFolder moves a folder under targetFolder and returns its new
// path.
func (c *Client) MoveFolder(path, targetFolder string) (string, error) {
	var body struct {
		Path string `json:"path"`
	}
	err := c.doJSON(c.http, http.MethodPatch, "/api/folders/"+escapePath(path)+"/move", map[string]any{
		"target_folder": targetFolder,
	}, &body)
	if err != nil {
		return "", err
	}
	return body.Path, nil
}

// Formats reports the accepted audio extensions and the size cap in
// megabytes.
func (c *Client) Formats() ([]string, int, error) {
	var body struct {
		Formats   []string `json:"formats"`
		MaxSizeMB int      `json:"max_size_mb"`
	}
	if err := c.doJSON(c.http, http.MethodGet, "/api/transcription/formats", nil, &body); err != nil {
		return nil, 0, err
	}
	return body.Formats, body.MaxSizeMB, nil
}

// TranscribeAudio uploads audio and blocks until the transcript is
// ready. No job is recorded.
func (c *Client) TranscribeAudio(filename string, audio io.Reader) (*types.Transcript, error) {
	var transcript types.Transcript
	if err := c.doMultipart("/api/transcription/audio", nil, filename, audio, &transcript); err != nil {
		return nil, err
	}
	return &transcript, nil
}

// CreateJob uploads audio and queues an asynchronous transcription
// job against a marker token in the identified note.
func (c *Client) CreateJob(noteID, markerToken, launchSource, filename string, audio io.Reader) (*types.JobView, error) {
	fields := map[string]string{
		"note_id":      noteID,
		"marker_token": markerToken,
	}
	if launchSource != "" {
		fields["launch_source"] = launchSource
	}
	var view types.JobView
	if err := c.doMultipart("/api/transcription/jobs", fields, filename, audio, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// ListJobs returns all jobs, newest first.
func (c *Client) ListJobs() ([]types.JobView, error) {
	var body struct {
		Jobs []types.JobView `json:"jobs"`
	}
	if err := c.doJSON(c.http, http.MethodGet, "/api/transcription/jobs", nil, &body); err != nil {
		return nil, err
	}
	return body.Jobs, nil
}

// GetJob fetches one job by ID.
func (c *Client) GetJob(jobID string) (*types.JobView, error) {
	var view types.JobView
	if err := c.doJSON(c.http, http.MethodGet, "/api/transcription/jobs/"+url.PathEscape(jobID), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// CancelJob requests cancellation; queued jobs cancel immediately,
// running jobs at the next checkpoint.
func (c *Client) CancelJob(jobID string) (*types.JobView, error) {
	var view types.JobView
	if err := c.doJSON(c.http, http.MethodPost, "/api/transcription/jobs/"+url.PathEscape(jobID)+"/cancel", nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// ResumeJob requeues one interrupted job.
func (c *Client) ResumeJob(jobID string) (*types.JobView, error) {
	var view types.JobView
	if err := c.doJSON(c.http, http.MethodPost, "/api/transcription/jobs/"+url.PathEscape(jobID)+"/resume", nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// ResumeInterrupted requeues every interrupted job and returns the
// count.
func (c *Client) ResumeInterrupted() (int, error) {
	var body struct {
		Resumed int `json:"resumed"`
	}
	if err := c.doJSON(c.http, http.MethodPost, "/api/transcription/jobs/resume-interrupted", nil, &body); err != nil {
		return 0, err
	}
	return body.Resumed, nil
}

// GetSettings fetches the effective settings document.
func (c *Client) GetSettings() (map[string]any, error) {
	var doc map[string]any
	if err := c.doJSON(c.http, http.MethodGet, "/api/settings", nil, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// UpdateSettings merges a partial document and returns the effective
// result.
func (c *Client) UpdateSettings(patch map[string]any) (map[string]any, error) {
	var doc map[string]any
	if err := c.doJSON(c.http, http.MethodPut, "/api/settings", patch, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
