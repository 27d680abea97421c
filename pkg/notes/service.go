package notes

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/murmurnotes/murmur/pkg/log"
	"github.com/murmurnotes/murmur/pkg/metrics"
	"github.com/murmurnotes/murmur/pkg/noteindex"
	"github.com/murmurnotes/murmur/pkg/notestore"
	"github.com/murmurnotes/murmur/pkg/types"
)

var (
	ErrExpectedRevisionRequired = errors.New("expected_revision is required")
	ErrInvalidFileType          = errors.New("invalid file type")
	ErrMarkerRequired           = errors.New("marker_token is required")
)

// RevisionConflictError is returned when an update's expected
// revision does not match the current one. The API surfaces all three
// fields so clients can re-read and retry.
type RevisionConflictError struct {
	NoteID           string `json:"note_id"`
	ExpectedRevision int    `json:"expected_revision"`
	CurrentRevision  int    `json:"current_revision"`
}

func (e *RevisionConflictError) Error() string {
	return fmt.Sprintf("revision conflict for note %q: expected %d, current %d",
		e.NoteID, e.ExpectedRevision, e.CurrentRevision)
}

// Service composes the note store and the note index: every read
// attaches identity, every committed mutation bumps the revision.
// A single write lock serializes content mutations (updates and
// marker replacements) so revisions are strictly monotonic per note.
type Service struct {
	mu     sync.Mutex
	files  *notestore.Store
	index  *noteindex.Index
	logger zerolog.Logger
}

// NewService wires the store and index together.
func NewService(files *notestore.Store, index *noteindex.Index) *Service {
	return &Service{
		files:  files,
		index:  index,
		logger: log.WithComponent("notes"),
	}
}

// Files exposes the underlying store for folder operations.
func (s *Service) Files() *notestore.Store {
	return s.files
}

// SyncIndex reconciles the index with the notes on disk. Called at
// startup, before the job engine recovers.
func (s *Service) SyncIndex() error {
	files, err := s.files.ListAllNotes()
	if err != nil {
		return fmt.Errorf("failed to sync note index: %w", err)
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, notestore.StripExtension(f.Path))
	}
	if _, err := s.index.SyncPaths(paths); err != nil {
		return fmt.Errorf("failed to sync note index: %w", err)
	}
	return nil
}

// buildNote reads a note and attaches identity, ensuring an index
// record exists for it.
func (s *Service) buildNote(path string) (*types.Note, error) {
	resolved := s.files.ResolveNotePath(path)
	content, err := s.files.ReadNote(resolved)
	if err != nil {
		return nil, err
	}
	file, err := s.files.StatNote(resolved)
	if err != nil {
		return nil, err
	}

	canonical := notestore.StripExtension(resolved)
	identity, err := s.index.EnsurePath(canonical)
	if err != nil {
		return nil, err
	}
	return &types.Note{
		NoteID:     identity.NoteID,
		Path:       canonical,
		Name:       file.Name,
		FileType:   file.FileType,
		Content:    content,
		CreatedAt:  file.CreatedAt,
		ModifiedAt: file.ModifiedAt,
		Size:       file.Size,
		Revision:   identity.Revision,
	}, nil
}

// GetNote returns a note by path, with or without extension.
func (s *Service) GetNote(path string) (*types.Note, error) {
	return s.buildNote(path)
}

// GetNoteByID returns a note by its stable id.
func (s *Service) GetNoteByID(noteID string) (*types.Note, error) {
	path, ok := s.index.ResolvePath(noteID)
	if !ok {
		return nil, fmt.Errorf("%w: id %s", notestore.ErrNoteNotFound, noteID)
	}
	return s.buildNote(path)
}

// ResolveNotePath returns the current canonical path for a note id.
func (s *Service) ResolveNotePath(noteID string) (string, bool) {
	return s.index.ResolvePath(noteID)
}

// attachIdentity annotates raw file listings with note ids and
// revisions, minting records for files the index has not seen.
func (s *Service) attachIdentity(files []types.NoteFile) ([]types.NoteListItem, error) {
	items := make([]types.NoteListItem, 0, len(files))
	for _, f := range files {
		identity, err := s.index.EnsurePath(notestore.StripExtension(f.Path))
		if err != nil {
			return nil, err
		}
		items = append(items, types.NoteListItem{
			NoteFile: f,
			NoteID:   identity.NoteID,
			Revision: identity.Revision,
		})
	}
	return items, nil
}

// ListNotes lists the notes in one folder, newest first.
func (s *Service) ListNotes(folder string) ([]types.NoteListItem, error) {
	files, err := s.files.ListNotes(folder)
	if err != nil {
		return nil, err
	}
	return s.attachIdentity(files)
}

// ListAllNotes lists every note recursively, newest first.
func (s *Service) ListAllNotes() ([]types.NoteListItem, error) {
	files, err := s.files.ListAllNotes()
	if err != nil {
		return nil, err
	}
	return s.attachIdentity(files)
}

// CreateNote creates a note in a folder. File type must be txt or md;
// the name is sanitized before use.
func (s *Service) CreateNote(folder, name, content, fileType string) (*types.Note, error) {
	if fileType != "txt" && fileType != "md" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFileType, fileType)
	}
	name = notestore.SanitizeFilename(name)
	if name == "" {
		return nil, fmt.Errorf("%w: note name", notestore.ErrInvalidName)
	}

	notePath := name + "." + fileType
	if folder != "" {
		notePath = folder + "/" + notePath
	}
	// Collision check on the canonical path: a .md and a .txt at the
	// same spot would fight over one index record.
	if s.files.NoteExists(notestore.StripExtension(notePath)) {
		return nil, fmt.Errorf("%w: %s", notestore.ErrNoteExists, notePath)
	}
	if err := s.files.WriteNote(notePath, content); err != nil {
		return nil, err
	}

	note, err := s.buildNote(notestore.StripExtension(notePath))
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("note_id", note.NoteID).Str("path", note.Path).Msg("note created")
	return note, nil
}

// UpdateNote replaces a note's content, guarded by optimistic
// concurrency: the caller's expected revision must match the current
// one or nothing is written.
func (s *Service) UpdateNote(path, content string, expectedRevision *int) (*types.Note, error) {
	if !s.files.NoteExists(path) {
		return nil, fmt.Errorf("%w: %s", notestore.ErrNoteNotFound, path)
	}
	if expectedRevision == nil {
		return nil, ErrExpectedRevisionRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	canonical := notestore.StripExtension(s.files.ResolveNotePath(path))
	identity, err := s.index.EnsurePath(canonical)
	if err != nil {
		return nil, err
	}
	if *expectedRevision != identity.Revision {
		metrics.RevisionConflictsTotal.Inc()
		return nil, &RevisionConflictError{
			NoteID:           identity.NoteID,
			ExpectedRevision: *expectedRevision,
			CurrentRevision:  identity.Revision,
		}
	}

	if err := s.files.WriteNote(canonical, content); err != nil {
		return nil, err
	}
	if _, err := s.index.IncrementRevision(identity.NoteID); err != nil {
		return nil, err
	}
	return s.GetNoteByID(identity.NoteID)
}

// DeleteNote removes the file and tombstones the index record, which
// keeps the id resolvable for job history.
func (s *Service) DeleteNote(path string) error {
	canonical := notestore.StripExtension(s.files.ResolveNotePath(path))
	identity, found := s.index.GetByPath(canonical)

	if err := s.files.DeleteNote(path); err != nil {
		return err
	}
	if found {
		s.index.MarkDeletedByID(identity.NoteID)
	} else {
		s.index.MarkDeletedByPath(canonical)
	}
	s.logger.Info().Str("path", canonical).Msg("note deleted")
	return nil
}

// RenameNote renames a note in place. The id is stable across the
// rename; only the index path changes.
func (s *Service) RenameNote(path, newName string) (*types.Note, error) {
	if !s.files.NoteExists(path) {
		return nil, fmt.Errorf("%w: %s", notestore.ErrNoteNotFound, path)
	}
	canonical := notestore.StripExtension(s.files.ResolveNotePath(path))
	identity, err := s.index.EnsurePath(canonical)
	if err != nil {
		return nil, err
	}

	newPath, err := s.files.RenameNote(path, newName)
	if err != nil {
		return nil, err
	}
	if err := s.index.UpdatePath(identity.NoteID, notestore.StripExtension(newPath)); err != nil {
		return nil, err
	}
	return s.GetNoteByID(identity.NoteID)
}

// MoveNote moves a note into another folder, keeping its id.
func (s *Service) MoveNote(path, targetFolder string) (*types.Note, error) {
	if !s.files.NoteExists(path) {
		return nil, fmt.Errorf("%w: %s", notestore.ErrNoteNotFound, path)
	}
	canonical := notestore.StripExtension(s.files.ResolveNotePath(path))
	identity, err := s.index.EnsurePath(canonical)
	if err != nil {
		return nil, err
	}

	newPath, err := s.files.MoveNote(path, targetFolder)
	if err != nil {
		return nil, err
	}
	if err := s.index.UpdatePath(identity.NoteID, notestore.StripExtension(newPath)); err != nil {
		return nil, err
	}
	return s.GetNoteByID(identity.NoteID)
}
