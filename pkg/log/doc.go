/*
Package log provides structured logging for Murmur using zerolog.

The log package wraps the zerolog library to provide JSON-structured
logging with component-specific loggers, configurable log levels, and
helper functions for common logging patterns. All logs include
timestamps and support filtering by severity level.

# Architecture

Murmur's logging system provides structured JSON logging with minimal
overhead:

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐           │
	│  │            Global Logger                    │           │
	│  │  - Zerolog instance                         │           │
	│  │  - Initialized via log.Init()               │           │
	│  │  - Thread-safe for concurrent use           │           │
	│  └──────────────────┬─────────────────────────┘           │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐           │
	│  │           Configuration                     │           │
	│  │  - Level: debug/info/warn/error             │           │
	│  │  - Format: JSON or console (human)          │           │
	│  │  - Output: stdout, file, or custom writer   │           │
	│  └──────────────────┬─────────────────────────┘           │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐           │
	│  │         Component Loggers                   │           │
	│  │  - WithComponent("jobs")                    │           │
	│  │  - WithJobID("8c1f20…")                     │           │
	│  │  - WithNoteID("45ab99…")                    │           │
	│  └──────────────────┬─────────────────────────┘           │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐           │
	│  │            Log Output                       │           │
	│  │                                              │          │
	│  │  JSON Format:                               │           │
	│  │  {                                           │          │
	│  │    "level": "info",                         │           │
	│  │    "component": "jobs",                     │           │
	│  │    "time": "2026-03-14T10:30:00Z",          │           │
	│  │    "message": "job leased"                  │           │
	│  │  }                                           │          │
	│  │                                              │          │
	│  │  Console Format:                            │           │
	│  │  10:30AM INF job leased component=jobs      │           │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────────┘

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init() from cmd/murmurd
  - Accessible from all Murmur packages
  - Thread-safe concurrent writes

Log Levels:
  - Debug: queue polls, candidate matching, event appends
  - Info: job transitions, note mutations, server lifecycle
  - Warn: best-effort failures (event log append, audio cleanup)
  - Error: operation failures surfaced to callers
  - Fatal: unrecoverable startup errors (process exits)

Context Loggers:
  - WithComponent: add component name to all logs
  - WithJobID: add job id context inside worker runs
  - WithNoteID: add note id context in the note service

# Usage

Initialization (once, at startup):

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: false, // console output for local runs
	})

Component logger:

	logger := log.WithComponent("jobs")
	logger.Info().Str("job_id", job.ID).Msg("job admitted")

Direct helpers:

	log.Info("server started")
	log.Errorf("failed to persist snapshot", err)

# Integration Points

This package integrates with:

  - cmd/murmurd: initializes logging from boot config
  - pkg/jobs: job lifecycle transitions
  - pkg/notes, pkg/noteindex, pkg/notestore: note mutations
  - pkg/api: request-level error logging
  - pkg/events: append failure warnings

# Performance Considerations

Zerolog allocates nothing on disabled levels; debug-level queue-poll
logging is free in production. Console output is for humans and costs
more; JSON output is the production default.
*/
package log
