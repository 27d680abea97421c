package noteindex

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/murmurnotes/murmur/pkg/log"
	"github.com/murmurnotes/murmur/pkg/storage"
	"github.com/murmurnotes/murmur/pkg/timeutil"
	"github.com/murmurnotes/murmur/pkg/types"
)

// ErrNotFound is returned when an id does not resolve to a live
// record.
var ErrNotFound = errors.New("note id not found")

const indexFile = "note_index.json"

// Record is the durable identity of one note. The note id is the map
// key in the index document, not a field.
type Record struct {
	Path      string `json:"path"`
	Revision  int    `json:"revision"`
	Deleted   bool   `json:"deleted"`
	UpdatedAt string `json:"updated_at"`
}

// document is the on-disk shape of the index. path_to_id is a pure
// projection of notes over non-deleted records and is rebuilt on
// every persist; notes is authoritative.
type document struct {
	Version   int               `json:"version"`
	UpdatedAt string            `json:"updated_at"`
	Notes     map[string]Record `json:"notes"`
	PathToID  map[string]string `json:"path_to_id"`
}

// SyncStats summarizes one reconciliation pass against the
// filesystem.
type SyncStats struct {
	Added      int
	Tombstoned int
	Revived    int
}

// Index maps note paths to stable ids and revision counters. One
// mutex covers both the in-memory tables and the on-disk document, so
// every state-changing call persists before it returns.
type Index struct {
	mu       sync.Mutex
	store    storage.Store
	notes    map[string]*Record
	pathToID map[string]string
	logger   zerolog.Logger
}

// New loads the index from the store. An absent or unreadable file
// starts the index empty; the projection is rebuilt from the primary
// table either way.
func New(store storage.Store) *Index {
	idx := &Index{
		store:    store,
		notes:    map[string]*Record{},
		pathToID: map[string]string{},
		logger:   log.WithComponent("noteindex"),
	}

	var doc document
	if err := store.LoadJSON(indexFile, &doc); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			idx.logger.Warn().Err(err).Msg("note index unreadable, starting empty")
		}
		return idx
	}
	for id, rec := range doc.Notes {
		r := rec
		r.Path = normalizePath(r.Path)
		idx.notes[id] = &r
	}
	idx.rebuildProjection()
	idx.logger.Info().Int("notes", len(idx.notes)).Msg("note index loaded")
	return idx
}

// normalizePath is applied at every entry point: surrounding space
// trimmed, backslashes folded to forward slashes.
func normalizePath(path string) string {
	return strings.ReplaceAll(strings.TrimSpace(path), "\\", "/")
}

// rebuildProjection recomputes path_to_id from the primary table.
// Caller holds the lock.
func (ix *Index) rebuildProjection() {
	ix.pathToID = make(map[string]string, len(ix.notes))
	for id, rec := range ix.notes {
		if !rec.Deleted {
			ix.pathToID[rec.Path] = id
		}
	}
}

// persist writes the document atomically. Caller holds the lock.
func (ix *Index) persist() error {
	ix.rebuildProjection()
	doc := document{
		Version:   1,
		UpdatedAt: timeutil.NowISO(),
		Notes:     make(map[string]Record, len(ix.notes)),
		PathToID:  ix.pathToID,
	}
	for id, rec := range ix.notes {
		doc.Notes[id] = *rec
	}
	if err := ix.store.SaveJSON(indexFile, &doc); err != nil {
		return fmt.Errorf("failed to persist note index: %w", err)
	}
	return nil
}

// EnsurePath returns the identity for a path, minting a record on
// first sight. Calling it twice with the same path yields the same
// id. A tombstoned record at the path is revived with its revision
// intact.
func (ix *Index) EnsurePath(path string) (types.Identity, error) {
	path = normalizePath(path)
	if path == "" {
		return types.Identity{}, fmt.Errorf("failed to ensure note path: empty path")
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if id, ok := ix.pathToID[path]; ok {
		return types.Identity{NoteID: id, Revision: ix.notes[id].Revision}, nil
	}

	// A tombstoned record may still own this path; revive it so the
	// id survives delete/recreate cycles.
	for id, rec := range ix.notes {
		if rec.Deleted && rec.Path == path {
			rec.Deleted = false
			rec.UpdatedAt = timeutil.NowISO()
			if err := ix.persist(); err != nil {
				return types.Identity{}, err
			}
			ix.logger.Debug().Str("note_id", id).Str("path", path).Msg("note revived")
			return types.Identity{NoteID: id, Revision: rec.Revision}, nil
		}
	}

	id := uuid.New().String()
	ix.notes[id] = &Record{
		Path:      path,
		Revision:  1,
		Deleted:   false,
		UpdatedAt: timeutil.NowISO(),
	}
	if err := ix.persist(); err != nil {
		delete(ix.notes, id)
		return types.Identity{}, err
	}
	ix.logger.Debug().Str("note_id", id).Str("path", path).Msg("note registered")
	return types.Identity{NoteID: id, Revision: 1}, nil
}

// GetByPath returns the identity currently projected at a path.
func (ix *Index) GetByPath(path string) (types.Identity, bool) {
	path = normalizePath(path)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	id, ok := ix.pathToID[path]
	if !ok {
		return types.Identity{}, false
	}
	return types.Identity{NoteID: id, Revision: ix.notes[id].Revision}, true
}

// GetByID returns the identity for an id. Tombstoned records are
// treated as absent.
func (ix *Index) GetByID(id string) (types.Identity, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	rec, ok := ix.notes[id]
	if !ok || rec.Deleted {
		return types.Identity{}, false
	}
	return types.Identity{NoteID: id, Revision: rec.Revision}, true
}

// ResolvePath returns the current path for an id, false when the id
// is unknown or tombstoned.
func (ix *Index) ResolvePath(id string) (string, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	rec, ok := ix.notes[id]
	if !ok || rec.Deleted {
		return "", false
	}
	return rec.Path, true
}

// IncrementRevision bumps the revision of a live record and returns
// the new value.
func (ix *Index) IncrementRevision(id string) (int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	rec, ok := ix.notes[id]
	if !ok || rec.Deleted {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rec.Revision++
	rec.UpdatedAt = timeutil.NowISO()
	if err := ix.persist(); err != nil {
		rec.Revision--
		return 0, err
	}
	return rec.Revision, nil
}

// CheckExpectedRevision reports whether a live record currently sits
// at the expected revision.
func (ix *Index) CheckExpectedRevision(id string, expected int) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	rec, ok := ix.notes[id]
	return ok && !rec.Deleted && rec.Revision == expected
}

// UpdatePath moves a record to a new path, reviving it if tombstoned.
// Callers ensure the target is collision-free; should a live record
// already occupy it, that record is tombstoned so the projection
// stays a function.
func (ix *Index) UpdatePath(id, newPath string) error {
	newPath = normalizePath(newPath)
	if newPath == "" {
		return fmt.Errorf("failed to update note path: empty path")
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	rec, ok := ix.notes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if occupant, ok := ix.pathToID[newPath]; ok && occupant != id {
		ix.notes[occupant].Deleted = true
		ix.notes[occupant].UpdatedAt = timeutil.NowISO()
		ix.logger.Warn().Str("note_id", occupant).Str("path", newPath).Msg("displaced live record at target path")
	}

	rec.Path = newPath
	rec.Deleted = false
	rec.UpdatedAt = timeutil.NowISO()
	return ix.persist()
}

// MarkDeletedByID tombstones a record, keeping the id around for jobs
// that still reference it. Returns false when the id is unknown.
func (ix *Index) MarkDeletedByID(id string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.tombstone(id)
}

// MarkDeletedByPath tombstones the record currently projected at a
// path. Returns false when nothing is there.
func (ix *Index) MarkDeletedByPath(path string) bool {
	path = normalizePath(path)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	id, ok := ix.pathToID[path]
	if !ok {
		return false
	}
	return ix.tombstone(id)
}

// tombstone marks a record deleted and persists. Caller holds the
// lock.
func (ix *Index) tombstone(id string) bool {
	rec, ok := ix.notes[id]
	if !ok {
		return false
	}
	if rec.Deleted {
		return true
	}
	rec.Deleted = true
	rec.UpdatedAt = timeutil.NowISO()
	if err := ix.persist(); err != nil {
		ix.logger.Error().Err(err).Str("note_id", id).Msg("failed to persist tombstone")
	}
	return true
}

// SyncPaths reconciles the index against the set of paths currently
// on disk: records whose path vanished are tombstoned, tombstoned
// records whose path is back are revived, and unknown paths get fresh
// records. One persist covers the whole pass.
func (ix *Index) SyncPaths(currentPaths []string) (SyncStats, error) {
	present := make(map[string]bool, len(currentPaths))
	for _, p := range currentPaths {
		if normalized := normalizePath(p); normalized != "" {
			present[normalized] = true
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	var stats SyncStats
	now := timeutil.NowISO()
	claimed := map[string]bool{}

	for id, rec := range ix.notes {
		switch {
		case rec.Deleted && present[rec.Path] && !claimed[rec.Path]:
			// Only revive when no live record already owns the path.
			if owner, ok := ix.pathToID[rec.Path]; !ok || owner == id {
				rec.Deleted = false
				rec.UpdatedAt = now
				stats.Revived++
			}
		case !rec.Deleted && !present[rec.Path]:
			rec.Deleted = true
			rec.UpdatedAt = now
			stats.Tombstoned++
		}
		if !rec.Deleted {
			claimed[rec.Path] = true
		}
	}

	for path := range present {
		if !claimed[path] {
			ix.notes[uuid.New().String()] = &Record{
				Path:      path,
				Revision:  1,
				Deleted:   false,
				UpdatedAt: now,
			}
			stats.Added++
		}
	}

	if err := ix.persist(); err != nil {
		return stats, err
	}
	if stats.Added+stats.Tombstoned+stats.Revived > 0 {
		ix.logger.Info().
			Int("added", stats.Added).
			Int("tombstoned", stats.Tombstoned).
			Int("revived", stats.Revived).
			Msg("note index synced")
	}
	return stats, nil
}

// NoteCounts returns the number of live and tombstoned records, for
// the metrics collector.
func (ix *Index) NoteCounts() (live, deleted int) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, rec := range ix.notes {
		if rec.Deleted {
			deleted++
		} else {
			live++
		}
	}
	return live, deleted
}
