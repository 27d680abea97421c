package notes

import (
	"strings"

	"github.com/murmurnotes/murmur/pkg/metrics"
	"github.com/murmurnotes/murmur/pkg/types"
)

// markerCandidates returns the spellings under which a marker token
// may appear in note content. Markdown editors escape square brackets
// on save, so the literal the engine planted is not always the
// literal on disk. Order matters: the raw token wins over escaped
// variants; duplicates collapse when the token has no brackets.
func markerCandidates(token string) []string {
	if token == "" {
		return nil
	}
	candidates := []string{
		token,
		strings.ReplaceAll(token, "[[", `\[\[`),
		strings.ReplaceAll(strings.ReplaceAll(token, "[[", `\[\[`), "]]", `\]\]`),
		strings.ReplaceAll(strings.ReplaceAll(token, "[", `\[`), "]", `\]`),
	}

	seen := make(map[string]bool, len(candidates))
	ordered := candidates[:0]
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		ordered = append(ordered, c)
	}
	return ordered
}

// ReplaceMarker splices replacement text over the first occurrence of
// a marker token in the note identified by id. The outcome is a
// status, not an error: the note being gone or the marker having been
// edited away are expected ends of an async job's life, and the
// caller records them rather than retrying.
//
// Runs under the service write lock; the read-match-write sequence is
// atomic with respect to UpdateNote.
func (s *Service) ReplaceMarker(noteID, markerToken, replacement string) (*types.ApplyResult, error) {
	if markerToken == "" {
		return nil, ErrMarkerRequired
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.MarkerApplyDuration)

	s.mu.Lock()
	defer s.mu.Unlock()

	notePath, ok := s.index.ResolvePath(noteID)
	if !ok {
		return &types.ApplyResult{
			Status: types.ApplyStatusNoteDeleted,
			NoteID: noteID,
		}, nil
	}
	identity, _ := s.index.GetByID(noteID)

	content, err := s.files.ReadNote(notePath)
	if err != nil {
		return nil, err
	}

	matched := ""
	for _, candidate := range markerCandidates(markerToken) {
		if strings.Contains(content, candidate) {
			matched = candidate
			break
		}
	}
	if matched == "" {
		revision := identity.Revision
		return &types.ApplyResult{
			Status:   types.ApplyStatusMarkerMissing,
			NoteID:   noteID,
			NotePath: notePath,
			Revision: &revision,
		}, nil
	}

	updated := strings.Replace(content, matched, replacement, 1)
	if err := s.files.WriteNote(notePath, updated); err != nil {
		return nil, err
	}
	newRevision, err := s.index.IncrementRevision(noteID)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("note_id", noteID).
		Str("note_path", notePath).
		Int("revision", newRevision).
		Int("replacement_length", len(replacement)).
		Msg("marker replaced")

	return &types.ApplyResult{
		Status:   types.ApplyStatusApplied,
		NoteID:   noteID,
		NotePath: notePath,
		Revision: &newRevision,
	}, nil
}
