/*
Package api implements the murmur HTTP API server.

The api package is the single external surface of the backend. It wires
the note service, the transcription job engine, the settings service,
and the synchronous transcriber behind a chi router, translating
service-layer errors into one stable JSON error contract.

# Architecture

The server owns no domain state; every handler delegates to a service
and serializes the result:

	┌────────────────────── CLIENT (editor UI) ──────────────────────┐
	│                                                                │
	│   HTTP/JSON, multipart uploads for audio                       │
	└──────────────────────────────┬─────────────────────────────────┘
	                               │
	┌──────────────────────────────▼─────────────────────────────────┐
	│                     HTTP Server (pkg/api)                      │
	│                                                                │
	│   chi router                                                   │
	│   - request ID, real IP, panic recovery                        │
	│   - request logging (zerolog)                                  │
	│   - request metrics (Prometheus)                               │
	│                                                                │
	│   ┌────────────┐ ┌────────────┐ ┌──────────┐ ┌─────────────┐  │
	│   │ pkg/notes  │ │  pkg/jobs  │ │ settings │ │ transcriber │  │
	│   │ notes +    │ │ job engine │ │ runtime  │ │ sync audio  │  │
	│   │ folders    │ │            │ │ settings │ │ endpoint    │  │
	│   └────────────┘ └────────────┘ └──────────┘ └─────────────┘  │
	└────────────────────────────────────────────────────────────────┘

# Endpoints

Notes:
  - GET    /api/notes                     List notes (all, or ?folder=)
  - POST   /api/notes                     Create note
  - GET    /api/notes/id/{noteID}         Get note by stable ID
  - PATCH  /api/notes/id/{noteID}/replace-marker
  - GET    /api/notes/{path}              Get note by path
  - PUT    /api/notes/{path}              Update content (optimistic revision)
  - DELETE /api/notes/{path}              Delete note
  - PATCH  /api/notes/{path}/rename       Rename within folder
  - PATCH  /api/notes/{path}/move         Move to another folder

Folders:
  - GET    /api/folders/tree              Folder tree (?path= for subtree)
  - POST   /api/folders                   Create folder
  - DELETE /api/folders/{path}            Delete (?recursive=true)
  - PATCH  /api/folders/{path}/rename
  - PATCH  /api/folders/{path}/move

Transcription:
  - GET    /api/transcription/formats     Supported extensions, size cap
  - POST   /api/transcription/audio       Synchronous transcribe
  - POST   /api/transcription/jobs        Queue async job (202)
  - GET    /api/transcription/jobs        List jobs, newest first
  - GET    /api/transcription/jobs/{jobID}
  - POST   /api/transcription/jobs/{jobID}/cancel
  - POST   /api/transcription/jobs/{jobID}/resume
  - POST   /api/transcription/jobs/resume-interrupted

Settings:
  - GET    /api/settings                  Effective document
  - PUT    /api/settings                  Merge partial document

Operational:
  - GET    /api/health
  - GET    /metrics                       Prometheus exposition

# Error Contract

Every failure is a JSON object with a machine code and a human
message:

	{"error": "not_found", "message": "note not found"}

Codes map service sentinels onto HTTP statuses:

  - 400 validation: bad input, unsupported format, oversized upload
  - 400 queue_full: job admission refused
  - 404 not_found: note, folder, job, or target note missing
  - 409 note_exists, folder_exists, folder_not_empty, invalid_state
  - 409 revision_conflict: carries a details payload with the
    expected and current revisions so the client can re-fetch and merge
  - 500 internal: anything unclassified, logged server-side

# Upload Custody

Both audio endpoints stage the upload through pkg/uploads before
touching the transcriber or the engine. The synchronous endpoint
always discards its scratch file. The job endpoint commits custody to
the engine only after admission succeeds; a refused job (full queue,
missing target note) discards the file so nothing leaks into the
uploads directory.

# Usage

	srv := api.NewServer(api.Config{
		Notes:       noteService,
		Engine:      engine,
		Settings:    settingsService,
		Transcriber: tr,
		Uploads:     saver,
	})

	// Blocks until Shutdown.
	if err := srv.Start("127.0.0.1:8487"); err != nil {
		log.Logger.Fatal().Err(err).Msg("server failed")
	}

# Integration Points

This package integrates with:

  - pkg/notes: note CRUD, marker replacement, ID resolution
  - pkg/jobs: job creation and lifecycle operations
  - pkg/settings: runtime settings document
  - pkg/transcriber: synchronous transcription and upload validation
  - pkg/uploads: scratch file custody
  - pkg/metrics: request counters and latency histograms
  - pkg/log: request logging
*/
package api
