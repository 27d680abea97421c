package transcriber

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/murmurnotes/murmur/pkg/types"
)

// Transcriber turns an audio file into text. Implementations are
// expected to be slow and to serialize their own access; callers hold
// no locks across a call.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (types.Transcript, error)
}

// SupportedFormats lists accepted audio extensions, sorted.
var SupportedFormats = []string{".flac", ".m4a", ".mp3", ".ogg", ".opus", ".wav", ".webm"}

// MaxFileSize is the upload ceiling in bytes.
const MaxFileSize = 100 * 1024 * 1024

// ValidationError reports an unusable audio input. The message is
// user-facing and returned verbatim by the API.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateExtension checks an extension (with leading dot) against
// the supported formats.
func ValidateExtension(ext string) error {
	ext = strings.ToLower(ext)
	for _, supported := range SupportedFormats {
		if ext == supported {
			return nil
		}
	}
	return &ValidationError{Message: fmt.Sprintf(
		"Unsupported file format: %s. Supported formats: %s",
		ext, strings.Join(SupportedFormats, ", "),
	)}
}

// ValidateSize checks a file size against MaxFileSize.
func ValidateSize(size int64) error {
	if size > MaxFileSize {
		return &ValidationError{Message: fmt.Sprintf(
			"File too large (%.1fMB). Maximum size: 100MB",
			float64(size)/(1024*1024),
		)}
	}
	return nil
}

// ValidateAudioFile checks that the file exists, has a supported
// extension, and is within the size limit.
func ValidateAudioFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &ValidationError{Message: fmt.Sprintf("Audio file not found: %s", path)}
	}
	if err := ValidateExtension(filepath.Ext(path)); err != nil {
		return err
	}
	return ValidateSize(info.Size())
}

// transientSubstrings classifies untagged errors by message, for
// transcriber implementations that cannot tag. Matching is
// case-insensitive.
var transientSubstrings = []string{
	"timeout",
	"timed out",
	"temporarily unavailable",
	"connection reset",
	"connection aborted",
	"network",
	"502",
	"503",
	"504",
}

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// MarkTransient tags an error as worth retrying.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether an error should be retried: either it
// was tagged with MarkTransient, or its message matches one of the
// known transient patterns.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sub := range transientSubstrings {
		if strings.Contains(msg, sub) {
			return true
		}
	}
	return false
}
