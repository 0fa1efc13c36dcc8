// Command memoire-recorder wires C1-C5 (display/audio capture, the media
// encoder, storage, and the recorder state machine) behind a hard-coded
// default Config, per spec.md §1.1: no flag or file parsing, the module is
// exercised as a library.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"memoire/internal/config"
	"memoire/internal/exitcode"
	"memoire/internal/logging"
	"memoire/internal/metrics"
	"memoire/internal/recorder"
	"memoire/internal/runstate"
	"memoire/internal/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	log := logging.New(os.Stderr, slog.LevelInfo)
	cfg := config.Default()

	displayBackend, audioBackend, err := newBackends()
	if err != nil {
		log.Error("capture backend unavailable", "error", err)
		return exitcode.DependencyMissing
	}

	dbPath := filepath.Join(cfg.DataDir, "memoire.sqlite")
	store, err := storage.Open(dbPath)
	if err != nil {
		log.Error("opening storage", "path", dbPath, "error", err)
		return exitcode.StorageOpenFailure
	}
	defer store.Close()

	met := metrics.NewRegistry()

	rec, err := recorder.New(cfg, store, displayBackend, audioBackend, log, met)
	if err != nil {
		log.Error("initializing recorder", "error", err)
		return exitcode.NoMonitors
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	running := runstate.New()
	go func() {
		<-ctx.Done()
		log.Info("shutdown signal received, finishing current batch")
		running.Stop()
	}()

	if err := rec.Run(ctx, running); err != nil {
		log.Error("recorder exited with error", "error", err)
		return exitcode.StorageOpenFailure
	}
	return exitcode.OK
}
