package notestore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/rs/zerolog"

	"github.com/murmurnotes/murmur/pkg/log"
	"github.com/murmurnotes/murmur/pkg/timeutil"
	"github.com/murmurnotes/murmur/pkg/types"
)

var (
	ErrNoteNotFound   = errors.New("note not found")
	ErrNoteExists     = errors.New("note already exists")
	ErrFolderNotFound = errors.New("folder not found")
	ErrFolderExists   = errors.New("folder already exists")
	ErrFolderNotEmpty = errors.New("folder not empty")
	ErrInvalidPath    = errors.New("invalid or unsafe path")
	ErrInvalidName    = errors.New("invalid name")
	ErrRootFolder     = errors.New("operation not allowed on root folder")
)

// SupportedExtensions lists the note file types the store manages, in
// resolution order.
var SupportedExtensions = []string{".txt", ".md"}

// Store performs filesystem operations on notes and folders under a
// fixed root. It knows nothing about note ids or revisions; identity
// is attached one layer up by the note service.
type Store struct {
	root   string
	logger zerolog.Logger
}

// New creates a note store rooted at dir, creating it if absent.
func New(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve notes directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create notes directory: %w", err)
	}
	return &Store{
		root:   abs,
		logger: log.WithComponent("notestore"),
	}, nil
}

// Root returns the absolute notes root directory.
func (s *Store) Root() string {
	return s.root
}

// HasSupportedExtension reports whether the path already carries a
// note extension.
func HasSupportedExtension(path string) bool {
	for _, ext := range SupportedExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// StripExtension removes a supported note extension, yielding the
// canonical index form of a path.
func StripExtension(path string) string {
	normalized := strings.ReplaceAll(path, "\\", "/")
	for _, ext := range SupportedExtensions {
		if strings.HasSuffix(normalized, ext) {
			return strings.TrimSuffix(normalized, ext)
		}
	}
	return normalized
}

// SanitizeFilename strips leading/trailing whitespace and dots and
// replaces filesystem-hostile characters with "-". An empty result
// means the name was unusable; callers reject it.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	for _, c := range []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|", "\x00"} {
		name = strings.ReplaceAll(name, c, "-")
	}
	return strings.Trim(name, ".")
}

// ValidPath reports whether a relative path is safe to resolve under
// the notes root. Empty means the root itself and is valid.
func (s *Store) ValidPath(path string) bool {
	if path == "" {
		return true
	}
	if strings.Contains(path, "..") || strings.HasPrefix(path, "/") || strings.HasPrefix(path, "\\") {
		return false
	}
	if filepath.IsAbs(path) {
		return false
	}
	full := filepath.Join(s.root, filepath.FromSlash(path))
	rel, err := filepath.Rel(s.root, full)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// fullPath converts a relative path to an absolute one, rejecting
// anything that would escape the root.
func (s *Store) fullPath(rel string) (string, error) {
	if !s.ValidPath(rel) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, rel)
	}
	return filepath.Join(s.root, filepath.FromSlash(rel)), nil
}

// relPath converts an absolute path under the root back to the
// forward-slashed relative form the API speaks.
func (s *Store) relPath(full string) string {
	rel, err := filepath.Rel(s.root, full)
	if err != nil {
		return ""
	}
	return filepath.ToSlash(rel)
}

// ResolveNotePath fills in the extension for a note path. A path that
// already has one is returned unchanged; otherwise the first extension
// whose file exists wins, and new files default to .txt.
func (s *Store) ResolveNotePath(notePath string) string {
	if HasSupportedExtension(notePath) {
		return notePath
	}
	for _, ext := range SupportedExtensions {
		candidate := notePath + ext
		full, err := s.fullPath(candidate)
		if err != nil {
			continue
		}
		if info, err := os.Stat(full); err == nil && info.Mode().IsRegular() {
			return candidate
		}
	}
	return notePath + ".txt"
}

// NoteExists reports whether a note file exists at the path, trying
// each supported extension when none is given.
func (s *Store) NoteExists(notePath string) bool {
	candidates := []string{notePath}
	if !HasSupportedExtension(notePath) {
		candidates = candidates[:0]
		for _, ext := range SupportedExtensions {
			candidates = append(candidates, notePath+ext)
		}
	}
	for _, candidate := range candidates {
		full, err := s.fullPath(candidate)
		if err != nil {
			continue
		}
		if info, err := os.Stat(full); err == nil && info.Mode().IsRegular() {
			return true
		}
	}
	return false
}

// ReadNote returns the content of a note.
func (s *Store) ReadNote(notePath string) (string, error) {
	resolved := s.ResolveNotePath(notePath)
	full, err := s.fullPath(resolved)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNoteNotFound, notePath)
		}
		return "", fmt.Errorf("failed to read note %s: %w", notePath, err)
	}
	return string(data), nil
}

// WriteNote replaces the content of a note, creating it (and parent
// folders) if needed. The write is atomic so a crash never leaves a
// truncated note behind.
func (s *Store) WriteNote(notePath, content string) error {
	resolved := s.ResolveNotePath(notePath)
	full, err := s.fullPath(resolved)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create note directory: %w", err)
	}
	if err := atomic.WriteFile(full, strings.NewReader(content)); err != nil {
		return fmt.Errorf("failed to write note %s: %w", notePath, err)
	}
	s.logger.Debug().Str("path", resolved).Int("size", len(content)).Msg("note written")
	return nil
}

// DeleteNote removes a note file.
func (s *Store) DeleteNote(notePath string) error {
	resolved := s.ResolveNotePath(notePath)
	full, err := s.fullPath(resolved)
	if err != nil {
		return err
	}
	if info, err := os.Stat(full); err != nil || !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNoteNotFound, notePath)
	}
	if err := os.Remove(full); err != nil {
		return fmt.Errorf("failed to delete note %s: %w", notePath, err)
	}
	s.logger.Debug().Str("path", resolved).Msg("note deleted")
	return nil
}

// RenameNote gives a note a new name in its current folder, keeping
// the original extension. Returns the new relative path including the
// extension.
func (s *Store) RenameNote(oldPath, newName string) (string, error) {
	resolved := s.ResolveNotePath(oldPath)

	ext := ".txt"
	for _, candidate := range SupportedExtensions {
		if strings.HasSuffix(resolved, candidate) {
			ext = candidate
			break
		}
	}

	name := SanitizeFilename(newName)
	if name == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, newName)
	}

	fullOld, err := s.fullPath(resolved)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(fullOld); err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", ErrNoteNotFound, oldPath)
	}

	fullNew := filepath.Join(filepath.Dir(fullOld), name+ext)
	if !strings.HasPrefix(fullNew, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, newName)
	}

	if err := os.Rename(fullOld, fullNew); err != nil {
		return "", fmt.Errorf("failed to rename note %s: %w", oldPath, err)
	}
	newRel := s.relPath(fullNew)
	s.logger.Debug().Str("from", resolved).Str("to", newRel).Msg("note renamed")
	return newRel, nil
}

// MoveNote relocates a note into a different folder, keeping its
// filename. Returns the new relative path including the extension.
func (s *Store) MoveNote(notePath, targetFolder string) (string, error) {
	resolved := s.ResolveNotePath(notePath)
	fullNote, err := s.fullPath(resolved)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(fullNote)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNoteNotFound, notePath)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s is not a note", ErrInvalidPath, notePath)
	}

	fullTarget, err := s.fullPath(targetFolder)
	if err != nil {
		return "", err
	}
	targetInfo, err := os.Stat(fullTarget)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrFolderNotFound, targetFolder)
	}
	if !targetInfo.IsDir() {
		return "", fmt.Errorf("%w: %s is not a folder", ErrInvalidPath, targetFolder)
	}

	fullNew := filepath.Join(fullTarget, filepath.Base(fullNote))
	if _, err := os.Stat(fullNew); err == nil {
		return "", fmt.Errorf("%w: %s", ErrNoteExists, filepath.Base(fullNote))
	}

	if err := os.Rename(fullNote, fullNew); err != nil {
		return "", fmt.Errorf("failed to move note %s: %w", notePath, err)
	}
	newRel := s.relPath(fullNew)
	s.logger.Debug().Str("from", resolved).Str("to", newRel).Msg("note moved")
	return newRel, nil
}

// StatNote returns filesystem metadata for a note.
func (s *Store) StatNote(notePath string) (types.NoteFile, error) {
	resolved := s.ResolveNotePath(notePath)
	full, err := s.fullPath(resolved)
	if err != nil {
		return types.NoteFile{}, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return types.NoteFile{}, fmt.Errorf("%w: %s", ErrNoteNotFound, notePath)
	}
	return s.noteFile(full, info), nil
}

// noteFile builds the metadata record for a note file. Creation time
// is not portably available, so both timestamps track mtime.
func (s *Store) noteFile(full string, info fs.FileInfo) types.NoteFile {
	rel := s.relPath(full)
	ext := strings.ToLower(filepath.Ext(rel))
	fileType := "txt"
	if ext == ".md" {
		fileType = "md"
	}
	modified := timeutil.ISO(info.ModTime())
	return types.NoteFile{
		Path:       rel,
		Name:       strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel)),
		FileType:   fileType,
		CreatedAt:  modified,
		ModifiedAt: modified,
		Size:       info.Size(),
	}
}

// ListNotes lists the notes directly inside a folder, newest first.
func (s *Store) ListNotes(folder string) ([]types.NoteFile, error) {
	full, err := s.fullPath(folder)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFolderNotFound, folder)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a folder", ErrInvalidPath, folder)
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, fmt.Errorf("failed to list folder %s: %w", folder, err)
	}

	notes := []types.NoteFile{}
	for _, entry := range entries {
		if entry.IsDir() || !HasSupportedExtension(entry.Name()) {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		notes = append(notes, s.noteFile(filepath.Join(full, entry.Name()), fi))
	}
	sortNotesByModified(notes)
	return notes, nil
}

// ListAllNotes lists every note under the root recursively, newest
// first. Dot-directories are skipped.
func (s *Store) ListAllNotes() ([]types.NoteFile, error) {
	notes := []types.NoteFile{}
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != s.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !HasSupportedExtension(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		notes = append(notes, s.noteFile(path, info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk notes root: %w", err)
	}
	sortNotesByModified(notes)
	return notes, nil
}

// sortNotesByModified orders notes newest first. Timestamps share the
// persistence layout, so lexicographic comparison is chronological.
func sortNotesByModified(notes []types.NoteFile) {
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].ModifiedAt > notes[j].ModifiedAt
	})
}
