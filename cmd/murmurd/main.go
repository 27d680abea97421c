package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/murmurnotes/murmur/pkg/api"
	"github.com/murmurnotes/murmur/pkg/config"
	"github.com/murmurnotes/murmur/pkg/events"
	"github.com/murmurnotes/murmur/pkg/jobs"
	"github.com/murmurnotes/murmur/pkg/log"
	"github.com/murmurnotes/murmur/pkg/metrics"
	"github.com/murmurnotes/murmur/pkg/noteindex"
	"github.com/murmurnotes/murmur/pkg/notes"
	"github.com/murmurnotes/murmur/pkg/notestore"
	"github.com/murmurnotes/murmur/pkg/settings"
	"github.com/murmurnotes/murmur/pkg/storage"
	"github.com/murmurnotes/murmur/pkg/transcriber"
	"github.com/murmurnotes/murmur/pkg/uploads"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "murmurd",
	Short: "Murmur - local notes backend with async transcription",
	Long: `Murmur is the backend for a local-first notes app: plain-text notes
on disk with stable identity across renames, and an asynchronous
transcription queue that splices speech-to-text output into notes
at marker tokens and survives backend restarts.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Murmur version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	serveCmd.Flags().String("config", "", "Path to YAML config file")
	serveCmd.Flags().String("listen", "", "Listen address (overrides config)")
	serveCmd.Flags().String("data-dir", "", "Data directory (overrides config)")
	serveCmd.Flags().Int("worker-slots", 0, "Transcription worker slots (overrides config)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Murmur version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the murmur backend",
	Long: `Start the murmur backend: note storage and identity index, the
transcription job engine with restart recovery, and the HTTP API.

Configuration is read from an optional YAML file, then MURMUR_*
environment variables, then flags, each layer overriding the last.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %v", err)
		}
		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			cfg.ListenAddr = listen
		}
		if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
			cfg.DataDir = dir
			cfg.NotesDir = filepath.Join(dir, "notes")
			cfg.UploadsDir = filepath.Join(dir, "uploads")
		}
		if slots, _ := cmd.Flags().GetInt("worker-slots"); slots > 0 {
			cfg.WorkerSlots = slots
		}

		log.Init(log.Config{
			Level:      log.Level(cfg.Log.Level),
			JSONOutput: !cfg.Log.Pretty,
		})
		metrics.SetVersion(Version)

		fmt.Println("Starting murmur backend...")
		fmt.Printf("  Listen Address: %s\n", cfg.ListenAddr)
		fmt.Printf("  Data Directory: %s\n", cfg.DataDir)
		fmt.Printf("  Notes Directory: %s\n", cfg.NotesDir)
		fmt.Println()

		store, err := storage.NewFileStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open data directory: %v", err)
		}

		files, err := notestore.New(cfg.NotesDir)
		if err != nil {
			return fmt.Errorf("failed to open notes directory: %v", err)
		}
		index := noteindex.New(store)
		noteSvc := notes.NewService(files, index)
		if err := noteSvc.SyncIndex(); err != nil {
			return fmt.Errorf("failed to sync note index: %v", err)
		}
		fmt.Println("✓ Note index synced")

		settingsSvc := settings.New(store)

		tr := transcriber.NewExec(transcriber.ExecConfig{
			Command:  cfg.Whisper.Command,
			Model:    cfg.Whisper.Model,
			Language: cfg.Whisper.Language,
			Timeout:  cfg.Whisper.Timeout.Std(),
		})

		saver, err := uploads.NewSaver(cfg.UploadsDir)
		if err != nil {
			return fmt.Errorf("failed to open uploads directory: %v", err)
		}

		// NewEngine replays the snapshot and runs restart recovery
		// before any worker starts.
		engine, err := jobs.NewEngine(jobs.Config{
			Store:       store,
			Events:      events.NewLog(store, jobs.EventsFile),
			Notes:       noteSvc,
			Settings:    settingsSvc,
			Transcriber: tr,
			WorkerSlots: cfg.WorkerSlots,
		})
		if err != nil {
			return fmt.Errorf("failed to start job engine: %v", err)
		}
		engine.Start()
		fmt.Println("✓ Job engine started")

		collector := metrics.NewCollector(engine, index)
		collector.Start()

		server := api.NewServer(api.Config{
			Notes:       noteSvc,
			Engine:      engine,
			Settings:    settingsSvc,
			Transcriber: tr,
			Uploads:     saver,
		})

		errCh := make(chan error, 1)
		go func() {
			if err := server.Start(cfg.ListenAddr); err != nil {
				errCh <- fmt.Errorf("API server error: %v", err)
			}
		}()
		fmt.Printf("✓ API listening on %s\n", cfg.ListenAddr)

		fmt.Println()
		fmt.Println("Murmur is running. Press Ctrl+C to stop.")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			fmt.Println("\nShutting down...")
		case err := <-errCh:
			fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Logger.Warn().Err(err).Msg("http shutdown failed")
		}
		engine.Stop()
		collector.Stop()

		fmt.Println("✓ Shutdown complete")
		return nil
	},
}
