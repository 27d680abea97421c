package transcriber

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateExtension(t *testing.T) {
	assert.NoError(t, ValidateExtension(".mp3"))
	assert.NoError(t, ValidateExtension(".WAV"))

	err := ValidateExtension(".pdf")
	require.Error(t, err)
	assert.Equal(t,
		"Unsupported file format: .pdf. Supported formats: .flac, .m4a, .mp3, .ogg, .opus, .wav, .webm",
		err.Error())

	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestValidateSize(t *testing.T) {
	assert.NoError(t, ValidateSize(MaxFileSize))

	err := ValidateSize(157286400) // 150 MB
	require.Error(t, err)
	assert.Equal(t, "File too large (150.0MB). Maximum size: 100MB", err.Error())
}

func TestValidateAudioFileMissing(t *testing.T) {
	err := ValidateAudioFile("/nowhere/clip.mp3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Audio file not found")
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("decoder exploded")))

	assert.True(t, IsTransient(MarkTransient(errors.New("anything at all"))))
	assert.True(t, IsTransient(fmt.Errorf("wrapped: %w", MarkTransient(errors.New("inner")))))

	for _, msg := range []string{
		"read timeout",
		"operation timed out",
		"service temporarily unavailable",
		"Connection Reset by peer",
		"connection aborted",
		"network unreachable",
		"upstream returned 502",
		"got 503",
		"HTTP 504",
	} {
		assert.True(t, IsTransient(errors.New(msg)), msg)
	}
}

func TestMarkTransientNil(t *testing.T) {
	assert.NoError(t, MarkTransient(nil))
}

func TestTransientErrorMessagePassesThrough(t *testing.T) {
	err := MarkTransient(errors.New("gpu busy"))
	assert.Equal(t, "gpu busy", err.Error())
}

// writeFakeCommand creates an executable script standing in for the
// external transcription command.
func writeFakeCommand(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-whisper")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))
	return path
}

func writeFakeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFFfake"), 0644))
	return path
}

func TestExecTranscribe(t *testing.T) {
	cmd := writeFakeCommand(t, `echo '{"text": "  hello world  ", "language": "en", "duration": 1.5}'`)
	tr := NewExec(ExecConfig{Command: cmd, Model: "base"})

	got, err := tr.Transcribe(context.Background(), writeFakeAudio(t))
	require.NoError(t, err)
	assert.Equal(t, "hello world", got.Text, "text is trimmed")
	assert.Equal(t, "en", got.Language)
	assert.Equal(t, 1.5, got.Duration)
}

func TestExecTranscribeCommandFailure(t *testing.T) {
	cmd := writeFakeCommand(t, `echo "model load failed" >&2; exit 3`)
	tr := NewExec(ExecConfig{Command: cmd})

	_, err := tr.Transcribe(context.Background(), writeFakeAudio(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model load failed")
	assert.False(t, IsTransient(err))
}

func TestExecTranscribeGarbageOutput(t *testing.T) {
	cmd := writeFakeCommand(t, `echo "not json"`)
	tr := NewExec(ExecConfig{Command: cmd})

	_, err := tr.Transcribe(context.Background(), writeFakeAudio(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse transcription output")
}

func TestExecTranscribeTimeoutIsTransient(t *testing.T) {
	cmd := writeFakeCommand(t, `sleep 5`)
	tr := NewExec(ExecConfig{Command: cmd, Timeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := tr.Transcribe(context.Background(), writeFakeAudio(t))
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestExecTranscribeRejectsBadInput(t *testing.T) {
	tr := NewExec(ExecConfig{Command: "/bin/true"})

	_, err := tr.Transcribe(context.Background(), "/missing/clip.wav")
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestStderrTail(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("line one\n   line two\n")
	assert.Equal(t, "line one line two", stderrTail(&buf))

	buf.Reset()
	assert.Equal(t, "(no stderr)", stderrTail(&buf))
}
