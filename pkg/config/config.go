// Package config loads murmurd's boot configuration: an optional YAML
// file, MURMUR_* environment overrides on top, flags on top of that
// (bound by the CLI). Runtime-tunable engine settings live in
// pkg/settings, not here; this file covers only what cannot change
// without a restart.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML and env values can use forms
// like "90s" or "10m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// WhisperConfig configures the external transcription command.
type WhisperConfig struct {
	Command  string   `yaml:"command"`
	Model    string   `yaml:"model"`
	Language string   `yaml:"language"`
	Timeout  Duration `yaml:"timeout"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Config is the full boot configuration.
type Config struct {
	ListenAddr  string        `yaml:"listen_addr"`
	DataDir     string        `yaml:"data_dir"`
	NotesDir    string        `yaml:"notes_dir"`
	UploadsDir  string        `yaml:"uploads_dir"`
	WorkerSlots int           `yaml:"worker_slots"`
	Whisper     WhisperConfig `yaml:"whisper"`
	Log         LogConfig     `yaml:"log"`
}

// Default returns the built-in configuration. Directory fields left
// empty are derived in normalize once the data dir is known.
func Default() Config {
	return Config{
		ListenAddr:  "127.0.0.1:8487",
		WorkerSlots: 8,
		Whisper: WhisperConfig{
			Command: "whisper-cli",
			Model:   "base",
			Timeout: Duration(10 * time.Minute),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the effective configuration: defaults, then the YAML
// file at path (when non-empty), then environment overrides. An
// explicitly named file must exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	for _, s := range []struct {
		key string
		dst *string
	}{
		{"MURMUR_LISTEN_ADDR", &c.ListenAddr},
		{"MURMUR_DATA_DIR", &c.DataDir},
		{"MURMUR_NOTES_DIR", &c.NotesDir},
		{"MURMUR_UPLOADS_DIR", &c.UploadsDir},
		{"MURMUR_WHISPER_COMMAND", &c.Whisper.Command},
		{"MURMUR_WHISPER_MODEL", &c.Whisper.Model},
		{"MURMUR_WHISPER_LANGUAGE", &c.Whisper.Language},
		{"MURMUR_LOG_LEVEL", &c.Log.Level},
	} {
		if v, ok := os.LookupEnv(s.key); ok {
			*s.dst = v
		}
	}

	if v, ok := os.LookupEnv("MURMUR_WORKER_SLOTS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MURMUR_WORKER_SLOTS %q: %w", v, err)
		}
		c.WorkerSlots = n
	}
	if v, ok := os.LookupEnv("MURMUR_WHISPER_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid MURMUR_WHISPER_TIMEOUT %q: %w", v, err)
		}
		c.Whisper.Timeout = Duration(d)
	}
	if v, ok := os.LookupEnv("MURMUR_LOG_PRETTY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid MURMUR_LOG_PRETTY %q: %w", v, err)
		}
		c.Log.Pretty = b
	}
	return nil
}

// normalize fills derived defaults and clamps worker_slots to its
// valid range.
func (c *Config) normalize() {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.DataDir = filepath.Join(home, ".murmur")
	}
	if c.NotesDir == "" {
		c.NotesDir = filepath.Join(c.DataDir, "notes")
	}
	if c.UploadsDir == "" {
		c.UploadsDir = filepath.Join(c.DataDir, "uploads")
	}

	if c.WorkerSlots == 0 {
		c.WorkerSlots = Default().WorkerSlots
	}
	if c.WorkerSlots < 1 {
		c.WorkerSlots = 1
	}
	if c.WorkerSlots > 16 {
		c.WorkerSlots = 16
	}
}
