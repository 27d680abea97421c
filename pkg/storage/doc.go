/*
Package storage persists Murmur's durable state as files under a
single state directory.

Unlike a binary key-value database, every artifact here is a
human-readable file a user can inspect or repair with a text editor:
JSON documents for the job snapshot, the note index, and settings; an
append-only JSONL log for events; plain text for saved transcripts.
Local-first means the state outlives the software that wrote it.

# Architecture

	┌───────────────────── STATE DIRECTORY ─────────────────────┐
	│                                                             │
	│  transcription_jobs.snapshot.json   full engine state      │
	│  transcription_jobs.events.jsonl    append-only event log  │
	│  note_index.json                    id ↔ path ↔ revision   │
	│  settings.json                      runtime settings       │
	│  transcripts/<job-id>.txt           rescued transcripts    │
	│                                                             │
	│  Writers:                                                   │
	│    SaveJSON / SaveText → temp file → rename (atomic)       │
	│    AppendLine          → O_APPEND single write             │
	└─────────────────────────────────────────────────────────────┘

# Core Components

Store:
  - Interface over the state directory
  - LoadJSON / SaveJSON for whole-document state
  - AppendLine for the event log
  - SaveText for transcript side files

FileStore:
  - The only implementation
  - Atomic replace via temp-then-rename (natefinch/atomic)
  - Creates parent directories on demand

# Crash Safety

SaveJSON and SaveText never write in place: the document is written to
a sibling temp file and renamed over the target, so a crash mid-write
leaves either the old file or the new one, never a truncated hybrid.
AppendLine relies on O_APPEND; event lines are small enough that a
single write is not interleaved on POSIX filesystems.

Absent files are not an error condition for callers: LoadJSON returns
an error satisfying errors.Is(err, fs.ErrNotExist) and each consumer
decides whether absence means "first run, start empty".

# Usage

	store, err := storage.NewFileStore("/var/lib/murmur")
	if err != nil {
		return err
	}

	var snap snapshot
	if err := store.LoadJSON("transcription_jobs.snapshot.json", &snap); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("snapshot unreadable, starting empty")
		}
		snap = emptySnapshot()
	}

	if err := store.SaveJSON("transcription_jobs.snapshot.json", &snap); err != nil {
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}

# Integration Points

This package integrates with:

  - pkg/jobs: snapshot, event log, transcript side files
  - pkg/noteindex: the note identity document
  - pkg/settings: the runtime settings document

# Thread Safety

FileStore itself is stateless; concurrent callers writing the same
name race at the rename. Every consumer serializes its own writes
under its own mutex, which is the locking model throughout Murmur:
one owner per file.
*/
package storage
