package main

import (
	"os"

	"log/slog"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real env vars still win inside config loading.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
