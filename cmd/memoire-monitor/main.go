package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"memoire/internal/config"
	"memoire/internal/exitcode"
	"memoire/internal/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Default()
	dbPath := filepath.Join(cfg.DataDir, "memoire.sqlite")

	store, err := storage.OpenReadOnly(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "memoire-monitor: opening storage at %s: %v\n", dbPath, err)
		return exitcode.StorageOpenFailure
	}
	defer store.Close()

	m := newModel(store, cfg.DataDir)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "memoire-monitor: %v\n", err)
		return exitcode.StorageOpenFailure
	}
	return exitcode.OK
}
