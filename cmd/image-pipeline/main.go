// Package main is the entry point for the image-pipeline binary
package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"image-pipeline/internal/cli"
)

// Set at build time via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	// Optional .env next to the binary; real environment variables win.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env file", "error", err)
	}

	os.Exit(cli.Execute(cli.BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}))
}
