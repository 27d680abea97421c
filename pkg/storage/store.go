package storage

// Store defines the interface for Murmur's durable state files.
// Every artifact is a named file under a state directory: JSON
// documents rewritten whole (snapshot, index, settings), append-only
// JSONL logs (events), and plain-text side files (saved transcripts).
type Store interface {
	// LoadJSON reads a JSON document into v. Absent files return an
	// error satisfying errors.Is(err, fs.ErrNotExist); callers decide
	// whether absence means "start empty".
	LoadJSON(name string, v any) error

	// SaveJSON atomically replaces a JSON document (temp file then
	// rename), creating parent directories as needed.
	SaveJSON(name string, v any) error

	// SaveText atomically replaces a plain-text file.
	SaveText(name string, data string) error

	// AppendLine appends one line to a log file, creating it if
	// missing. The line must not contain a newline.
	AppendLine(name string, line []byte) error

	// Path resolves a name to its absolute location, for callers that
	// need to report or inspect the file.
	Path(name string) string
}
