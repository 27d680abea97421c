package uploads

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/murmurnotes/murmur/pkg/log"
	"github.com/murmurnotes/murmur/pkg/transcriber"
)

// Saver writes incoming audio streams to scratch files in the uploads
// directory, named by fresh uuid so concurrent uploads never collide.
type Saver struct {
	dir     string
	maxSize int64
	logger  zerolog.Logger
}

// NewSaver creates the uploads directory if needed.
func NewSaver(dir string) (*Saver, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve uploads directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return &Saver{
		dir:     abs,
		maxSize: transcriber.MaxFileSize,
		logger:  log.WithComponent("uploads"),
	}, nil
}

// Receipt tracks custody of one scratch file. Until Commit, Discard
// deletes the file; after Commit the referencing job owns cleanup.
type Receipt struct {
	path string

	mu        sync.Mutex
	committed bool
	discarded bool
	logger    zerolog.Logger
}

// Path returns the absolute scratch file location.
func (r *Receipt) Path() string {
	return r.path
}

// Commit hands custody of the file to the caller. Discard becomes a
// no-op.
func (r *Receipt) Commit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = true
}

// Discard deletes the scratch file unless custody was committed.
// Safe to call more than once, typically via defer.
func (r *Receipt) Discard() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.committed || r.discarded {
		return
	}
	r.discarded = true
	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		r.logger.Warn().Err(err).Str("path", r.path).Msg("failed to remove scratch upload")
	}
}

// Save streams an upload to a scratch file. The extension is checked
// before writing and the size after, so the rejected-size message can
// report the real size. Any validation failure removes the file.
func (s *Saver) Save(src io.Reader, filename string) (*Receipt, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if err := transcriber.ValidateExtension(ext); err != nil {
		return nil, err
	}

	dest := filepath.Join(s.dir, uuid.New().String()+ext)
	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch file: %w", err)
	}

	written, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(dest)
		if copyErr == nil {
			copyErr = closeErr
		}
		return nil, fmt.Errorf("failed to save upload: %w", copyErr)
	}

	if written > s.maxSize {
		os.Remove(dest)
		return nil, &transcriber.ValidationError{Message: fmt.Sprintf(
			"File too large (%.1fMB). Maximum size: 100MB",
			float64(written)/(1024*1024),
		)}
	}

	s.logger.Debug().Str("path", dest).Int64("size", written).Str("source", filename).Msg("upload saved")
	return &Receipt{path: dest, logger: s.logger}, nil
}
