package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/murmurnotes/murmur/pkg/log"
	"github.com/murmurnotes/murmur/pkg/types"
)

// ExecConfig configures the external transcription command.
type ExecConfig struct {
	// Command is the executable to run. It receives --model, an
	// optional --language, and the audio path, and must print one
	// JSON object {"text", "language", "duration"} on stdout.
	Command  string
	Model    string
	Language string
	// Timeout bounds a single run; zero means no limit.
	Timeout time.Duration
}

// ExecTranscriber shells out to a speech-to-text command. A mutex
// serializes runs: the underlying model is not safe for concurrent
// use and loading it twice would double memory.
type ExecTranscriber struct {
	mu     sync.Mutex
	cfg    ExecConfig
	logger zerolog.Logger
}

// NewExec builds an ExecTranscriber. Model defaults to "base".
func NewExec(cfg ExecConfig) *ExecTranscriber {
	if cfg.Model == "" {
		cfg.Model = "base"
	}
	return &ExecTranscriber{
		cfg:    cfg,
		logger: log.WithComponent("transcriber"),
	}
}

// Transcribe runs the command on one audio file. Timeouts come back
// tagged transient so the job engine retries them.
func (t *ExecTranscriber) Transcribe(ctx context.Context, audioPath string) (types.Transcript, error) {
	if err := ValidateAudioFile(audioPath); err != nil {
		return types.Transcript{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	args := []string{"--model", t.cfg.Model}
	if t.cfg.Language != "" {
		args = append(args, "--language", t.cfg.Language)
	}
	args = append(args, audioPath)

	t.logger.Debug().Str("command", t.cfg.Command).Str("audio", audioPath).Msg("starting transcription")
	start := time.Now()

	cmd := exec.CommandContext(ctx, t.cfg.Command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return types.Transcript{}, MarkTransient(fmt.Errorf("transcription timed out after %s", t.cfg.Timeout))
		}
		return types.Transcript{}, fmt.Errorf("transcription command failed: %w: %s", err, stderrTail(&stderr))
	}

	var out struct {
		Text     string  `json:"text"`
		Language string  `json:"language"`
		Duration float64 `json:"duration"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return types.Transcript{}, fmt.Errorf("failed to parse transcription output: %w", err)
	}

	t.logger.Info().
		Str("audio", audioPath).
		Dur("elapsed", time.Since(start)).
		Float64("audio_seconds", out.Duration).
		Msg("transcription finished")

	return types.Transcript{
		Text:     strings.TrimSpace(out.Text),
		Language: out.Language,
		Duration: out.Duration,
	}, nil
}

// stderrTail flattens stderr to a single short line for error
// messages.
func stderrTail(buf *bytes.Buffer) string {
	s := strings.TrimSpace(buf.String())
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 512 {
		s = s[len(s)-512:]
	}
	if s == "" {
		return "(no stderr)"
	}
	return s
}
