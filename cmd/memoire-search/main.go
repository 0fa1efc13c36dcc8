package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

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
		fmt.Fprintf(os.Stderr, "memoire-search: opening storage at %s: %v\n", dbPath, err)
		return exitcode.StorageOpenFailure
	}
	defer store.Close()

	s := newSearchServer(store)
	if err := server.ServeStdio(s.mcpServer); err != nil {
		fmt.Fprintf(os.Stderr, "memoire-search: %v\n", err)
		return exitcode.StorageOpenFailure
	}
	return exitcode.OK
}
