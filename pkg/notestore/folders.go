package notestore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/murmurnotes/murmur/pkg/types"
)

// FolderExists reports whether the path exists and is a directory.
// The root always exists.
func (s *Store) FolderExists(path string) bool {
	full, err := s.fullPath(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && info.IsDir()
}

// CreateFolder creates a folder, including missing parents.
func (s *Store) CreateFolder(path string) error {
	if path == "" {
		return fmt.Errorf("%w: cannot create", ErrRootFolder)
	}
	full, err := s.fullPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(full); err == nil {
		return fmt.Errorf("%w: %s", ErrFolderExists, path)
	}
	if err := os.MkdirAll(full, 0755); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", path, err)
	}
	s.logger.Debug().Str("path", path).Msg("folder created")
	return nil
}

// DeleteFolder removes a folder. Without recursive the folder must be
// empty.
func (s *Store) DeleteFolder(path string, recursive bool) error {
	if path == "" {
		return fmt.Errorf("%w: cannot delete", ErrRootFolder)
	}
	full, err := s.fullPath(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(full)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrFolderNotFound, path)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a folder", ErrInvalidPath, path)
	}

	if recursive {
		if err := os.RemoveAll(full); err != nil {
			return fmt.Errorf("failed to delete folder %s: %w", path, err)
		}
	} else {
		entries, err := os.ReadDir(full)
		if err != nil {
			return fmt.Errorf("failed to list folder %s: %w", path, err)
		}
		if len(entries) > 0 {
			return fmt.Errorf("%w: %s", ErrFolderNotEmpty, path)
		}
		if err := os.Remove(full); err != nil {
			return fmt.Errorf("failed to delete folder %s: %w", path, err)
		}
	}
	s.logger.Debug().Str("path", path).Bool("recursive", recursive).Msg("folder deleted")
	return nil
}

// RenameFolder gives a folder a new name in its current parent and
// returns the new relative path.
func (s *Store) RenameFolder(oldPath, newName string) (string, error) {
	if oldPath == "" {
		return "", fmt.Errorf("%w: cannot rename", ErrRootFolder)
	}
	name := SanitizeFilename(newName)
	if name == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, newName)
	}

	fullOld, err := s.fullPath(oldPath)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(fullOld)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrFolderNotFound, oldPath)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a folder", ErrInvalidPath, oldPath)
	}

	fullNew := filepath.Join(filepath.Dir(fullOld), name)
	if !strings.HasPrefix(fullNew, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, newName)
	}
	if _, err := os.Stat(fullNew); err == nil {
		return "", fmt.Errorf("%w: %s", ErrFolderExists, name)
	}

	if err := os.Rename(fullOld, fullNew); err != nil {
		return "", fmt.Errorf("failed to rename folder %s: %w", oldPath, err)
	}
	newRel := s.relPath(fullNew)
	s.logger.Debug().Str("from", oldPath).Str("to", newRel).Msg("folder renamed")
	return newRel, nil
}

// MoveFolder relocates a folder into another folder and returns the
// new relative path. Moving a folder into itself or a descendant is
// rejected.
func (s *Store) MoveFolder(folderPath, targetFolder string) (string, error) {
	if folderPath == "" {
		return "", fmt.Errorf("%w: cannot move", ErrRootFolder)
	}
	fullFolder, err := s.fullPath(folderPath)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(fullFolder)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrFolderNotFound, folderPath)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a folder", ErrInvalidPath, folderPath)
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

	if fullTarget == fullFolder || strings.HasPrefix(fullTarget+string(filepath.Separator), fullFolder+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: cannot move folder into itself", ErrInvalidPath)
	}

	fullNew := filepath.Join(fullTarget, filepath.Base(fullFolder))
	if _, err := os.Stat(fullNew); err == nil {
		return "", fmt.Errorf("%w: %s", ErrFolderExists, filepath.Base(fullFolder))
	}

	if err := os.Rename(fullFolder, fullNew); err != nil {
		return "", fmt.Errorf("failed to move folder %s: %w", folderPath, err)
	}
	newRel := s.relPath(fullNew)
	s.logger.Debug().Str("from", folderPath).Str("to", newRel).Msg("folder moved")
	return newRel, nil
}

// FolderTree builds the nested folder structure starting at path,
// with the notes directly inside each folder. Dot-directories are
// excluded.
func (s *Store) FolderTree(path string) (*types.FolderTree, error) {
	full, err := s.fullPath(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFolderNotFound, path)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a folder", ErrInvalidPath, path)
	}
	return s.buildTree(full)
}

func (s *Store) buildTree(full string) (*types.FolderTree, error) {
	rel := s.relPath(full)
	name := filepath.Base(full)
	if rel == "." || rel == "" {
		rel = ""
		name = "root"
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, fmt.Errorf("failed to list folder %s: %w", rel, err)
	}

	tree := &types.FolderTree{
		Name:     name,
		Path:     rel,
		Children: []*types.FolderTree{},
		Notes:    []types.NoteFile{},
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			child, err := s.buildTree(filepath.Join(full, entry.Name()))
			if err != nil {
				return nil, err
			}
			tree.Children = append(tree.Children, child)
			continue
		}
		if !HasSupportedExtension(entry.Name()) {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		tree.Notes = append(tree.Notes, s.noteFile(filepath.Join(full, entry.Name()), fi))
	}

	sort.Slice(tree.Children, func(i, j int) bool {
		return tree.Children[i].Name < tree.Children[j].Name
	})
	sortNotesByModified(tree.Notes)
	return tree, nil
}
