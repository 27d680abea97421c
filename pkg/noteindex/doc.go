// Package noteindex assigns stable identity to notes.
//
// The filesystem addresses notes by path, but paths change: renames,
// moves, delete-and-recreate. A transcription job that finishes
// minutes after submission must still find its target, so jobs hold a
// note id and the index maps ids to wherever the note lives now.
//
//	path ──EnsurePath──▶ note_id (minted once, survives rename/move)
//	note_id ──ResolvePath──▶ current path, or gone
//
// Each record also carries a revision counter, incremented exactly
// once per committed content mutation. Clients send the revision they
// read; a mismatch on write means someone else got there first.
//
// Deleting a note tombstones its record rather than dropping it, so
// completed jobs can still report which note they wrote to. The
// path_to_id projection covers live records only and is recomputed
// from the primary table on every persist, which makes the projection
// impossible to corrupt independently.
//
// All state lives in note_index.json, rewritten atomically under a
// single mutex on every mutation.
package noteindex
