// Package notes is the high-level note service: filesystem content
// from notestore joined with stable identity from noteindex.
//
//	                 ┌─────────────┐
//	   path ────────▶│   Service   │────────▶ notestore (files)
//	   note_id ─────▶│  write lock │────────▶ noteindex (identity)
//	                 └─────────────┘
//
// Every read attaches {id, revision}; every committed content
// mutation increments the revision exactly once. UpdateNote is
// optimistic: the caller proves it saw the current revision or the
// write is refused with a RevisionConflictError.
//
// ReplaceMarker is the async landing protocol. A transcription job
// holds a note id and a marker token; when the transcript arrives,
// possibly minutes later and after renames, the service re-resolves
// the id, hunts for the token among its escaped spellings, and
// splices the text over the first occurrence. "The note is gone" and
// "the marker is gone" are reported as statuses, not errors, because
// both are legitimate outcomes the job must record.
//
// UpdateNote and ReplaceMarker share one write lock, so concurrent
// completions against the same note serialize and per-note revisions
// stay strictly monotonic.
package notes
